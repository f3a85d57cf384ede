// Package sink provides the destinations captured records are emitted to.
//
// Every sink consumes capture.Record values and implements the Sink
// interface: Write, Close, Kind. All writes are best-effort; a sink error
// is reported to the caller but the capture endpoint never relays it to
// the client.
//
// # Built-in Sinks
//
//   - FileSink appends a delimited human-readable text block per record to
//     a local file. Blocks from concurrent requests land intact and
//     non-interleaved; the file only ever grows.
//   - RemoteSink POSTs each record as JSON to a collection endpoint,
//     fire-and-forget. The response is discarded and nothing is retried.
//   - StdoutSink writes records as JSON lines to stdout.
//   - MultiSink fans a record out to several sinks at once.
//   - AsyncSink detaches writes from the caller; the remote sink can be
//     wrapped in one with the config's async flag, so acknowledgements
//     never wait on a slow collection endpoint.
//
// # Configuration
//
// New builds a sink from a Config, typically loaded from the trapd
// configuration file:
//
//	s, err := sink.New(&sink.Config{Kind: sink.KindFile, File: "capture.log"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
// # Extensions
//
// Additional sink kinds can be registered with Register. Entries under
// the config's extensions map are built through the registered factories
// and fanned out alongside the primary sink.
package sink
