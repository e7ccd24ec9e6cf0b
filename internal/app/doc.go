// Package app wires application dependencies for the CLI.
//
// It loads the TOML Config, builds the logger, the chosen pre-key storage
// backend and the identity and pre-key services, and exposes them via the
// Wire struct for commands to use.
package app
