package ports

import (
	"net"
	"testing"
)

func TestCheck_FreePort(t *testing.T) {
	// Find a port the kernel considers free, release it, then check it
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	if err := Check(port); err != nil {
		t.Errorf("Check(%d) on free port: %v", port, err)
	}
	if !IsAvailable(port) {
		t.Errorf("IsAvailable(%d) should be true", port)
	}
}

func TestCheck_BusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if err := Check(port); err == nil {
		t.Errorf("Check(%d) on busy port should fail", port)
	}
	if IsAvailable(port) {
		t.Errorf("IsAvailable(%d) should be false", port)
	}
}
