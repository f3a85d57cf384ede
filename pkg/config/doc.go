// Package config provides configuration types and utilities for trapd.
//
// This package defines the configuration structures used by the capture
// server:
//   - Config: top-level configuration (listeners, capture rules, sink, logging)
//   - ListenConfig: capture listener address and timeouts
//   - OpsConfig: operational listener for /health and /metrics
//   - CaptureConfig: filter expression and ignore globs
//   - LoggingConfig: operational log level and format
//
// File-based Configuration:
//
// A config can be loaded from a YAML or JSON file; the format is detected
// from the extension:
//
//	cfg, err := config.LoadFromFile("trapd.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Values the file omits keep their defaults, so a minimal file is enough:
//
//	listen:
//	  port: 8080
//	capture:
//	  ignorePaths:
//	    - /favicon.ico
//	sink:
//	  kind: remote
//	  url: https://collector.example.com/ingest
//
// Discover finds trapd.yaml, trapd.yml, or trapd.json in a directory so
// the CLI can pick up a config file without an explicit --config flag.
package config
