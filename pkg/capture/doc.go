// Package capture builds records of ambient request metadata and serves
// the endpoint that collects them.
//
// On each inbound request the Handler reads a fixed set of ambient fields
// (client address, user agent, method, URI, headers), builds a Record, and
// hands it to a Sink. The client always receives the literal body "OK"
// with status 200, whether the record was stored, filtered out, or lost to
// a sink failure. Records live for exactly one request: create, emit,
// discard.
//
// # Records
//
// Record is a flat value of semantic strings plus a header map. Any field
// the request does not supply is set to "N/A" rather than left empty, so
// sinks never see a partially populated record.
//
// # Filtering
//
// A Handler may carry an optional filter expression (expr-lang) evaluated
// against each record, and ignore patterns (doublestar globs) matched
// against the request path. Both decide only whether the record reaches
// the sink; the "OK" response is unconditional. A filter that fails at
// runtime keeps the record rather than dropping traffic.
//
// # Usage
//
//	h, err := capture.NewHandler(fileSink,
//	    capture.WithLogger(logger),
//	    capture.WithIgnorePaths([]string{"/favicon.ico"}),
//	)
//	if err != nil {
//	    return err
//	}
//	http.ListenAndServe(":4180", h)
//
// # Package Design
//
// Sink is defined here as a narrow consumer interface so that pkg/sink can
// import this package for Record without creating an import cycle. The
// concrete sinks live in pkg/sink.
package capture
