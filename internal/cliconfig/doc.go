// Package cliconfig applies environment overrides for the trapd CLI.
//
// Settings are resolved with the following precedence (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables (TRAPD_* prefix)
//  3. Config file (trapd.yaml / trapd.json)
//  4. Default values
//
// ApplyEnv overlays the TRAPD_* variables onto a loaded config.Config and
// records where each value came from, so the serve command can report the
// effective configuration. ResolveOpsURL performs the same flag/env/default
// resolution for client commands that talk to a running server.
package cliconfig
