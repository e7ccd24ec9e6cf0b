// Package commands defines the signet CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init                 Create or replace the local identity
//   - fingerprint          Print the identity fingerprint
//   - register             Build and cache the public pre-key bundle
//   - prekeys generate     Generate a batch of one-time pre-keys
//   - prekeys show         Print the public half of a stored pre-key
//   - prekeys remove       Delete a consumed one-time pre-key
//   - signed generate      Generate a signed pre-key
//   - signed active        Print the active signed pre-key
//   - signed set-active    Make a stored signed pre-key active
//   - signed clean         Remove archived signed pre-keys past their age
//   - daemon               Rotate signed pre-keys on a schedule
//
// # Implementation
//
// The root command loads the TOML config, applies flag overrides and builds
// the dependency graph (logger, stores, services) before any subcommand
// runs. The graph is closed once the subcommand returns.
package commands
