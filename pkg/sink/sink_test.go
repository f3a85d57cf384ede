package sink

import (
	"testing"
)

func TestKinds(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	want := []string{KindFile, KindRemote, KindStdout}
	if len(kinds) != len(want) {
		t.Fatalf("Kinds() returned %d kinds, want %d", len(kinds), len(want))
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("Kinds()[%d] = %q, want %q", i, kinds[i], k)
		}
	}
}

func TestNopSink(t *testing.T) {
	t.Parallel()

	s := &NopSink{}
	if err := s.Write(testRecord()); err != nil {
		t.Errorf("Write() error = %v, want nil", err)
	}
	if err := s.Write(nil); err != nil {
		t.Errorf("Write(nil) error = %v, want nil", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	if got := s.Kind(); got != "nop" {
		t.Errorf("Kind() = %q, want %q", got, "nop")
	}
}
