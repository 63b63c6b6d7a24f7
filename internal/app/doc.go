// Package app loads configuration and wires application dependencies for
// the CLI.
//
// Config is read from a YAML file under the home directory and overridden by
// command-line flags. NewWire builds the crypto provider, cloud clients,
// vaults and services from it and exposes them via the Wire struct.
package app
