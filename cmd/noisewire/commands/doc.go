// Package commands defines the noisewire CLI.
//
// Commands
//
//   - keygen  Generate a static identity key pair
//   - listen  Accept authenticated encrypted sessions and echo frames
//   - dial    Connect to a peer and exchange frames from stdin
//
// # Implementation
//
// The root command loads the identity key file and configures logging before
// any subcommand runs, so handlers share one identity and one log setup.
// Onion endpoints are reached through the SOCKS5 proxy given by --proxy.
package commands
