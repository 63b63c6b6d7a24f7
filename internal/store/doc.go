// Package store provides the local key vaults: where an identity's private
// key lives between process restarts.
//
// FileKeyVault keeps one JSON file per identity under the configured home
// directory, optionally sealed with a passphrase (scrypt +
// ChaCha20-Poly1305). Writes go through a temp file and never replace an
// existing key. MemoryKeyVault is the in-process equivalent used by tests and
// the "memory" local vault setting. Both are safe for concurrent use.
package store
