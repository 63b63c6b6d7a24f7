// Package directory publishes identity cards and resolves identities to
// public keys.
//
// Every card coming back from the directory is checked by a Verifier before
// its key is used. Batch lookups validate their input before touching the
// network and report partial failures as a *domain.LookupError that keeps
// the identities that did resolve.
package directory
