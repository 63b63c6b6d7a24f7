// Package commands defines the sealkit CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init             Write the configuration file
//   - register         Generate a key pair and publish it to the directory
//   - rotate           Replace the published key with a fresh one
//   - status           Print the key state and fingerprint
//   - backup           Store the private key in the backup vault
//   - restore          Fetch the private key from the backup vault
//   - change-password  Re-encrypt the backup under a new password
//   - reset-backup     Delete one backup, or all with --all
//   - cleanup          Delete the local private key
//   - lookup           Print the published keys of identities
//   - encrypt, decrypt            Seal and open text payloads
//   - encrypt-file, decrypt-file  Seal and open files with progress output
//
// # Implementation
//
// The root command loads config.yaml from the home directory, applies flag
// overrides and builds the dependency graph (vaults, cloud clients, services)
// before any subcommand runs. init skips wiring since it only writes config.
package commands
