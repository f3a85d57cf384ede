// Package server runs the trapd capture listener and its operational
// sidecar.
//
// # Architecture
//
// A Server owns two HTTP listeners bound to separate ports:
//
//	┌───────────────────────────────┐   ┌──────────────────────────┐
//	│   Capture listener (:4180)    │   │   Ops listener (:4181)   │
//	│                               │   │                          │
//	│   every method, every path    │   │   GET /health            │
//	│   -> record to sink           │   │   GET /metrics           │
//	│   -> respond 200 "OK"         │   │                          │
//	└───────────────┬───────────────┘   └──────────────────────────┘
//	                │
//	                ▼
//	          sink.Sink (file, remote, stdout, ...)
//
// The split is deliberate: the capture listener must answer every path
// with "OK", so it cannot also serve health or metrics. The ops listener
// can be disabled entirely, leaving nothing but the trap.
//
// # Lifecycle
//
// New builds a Server from a config.Config; Start binds both listeners
// and returns once they accept connections; Stop drains in-flight
// requests and closes the sink when the server built it. A sink passed
// in with WithSink stays open across Stop, so callers can share one sink
// between runs.
//
//	srv := server.New(cfg, server.WithLogger(log))
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
package server
