// Package identity manages the lifecycle of one identity's private key.
//
// A Session registers the identity in the directory, recovers a lost key by
// rotating it, and moves the key between the local key vault and password
// protected backups. Register and RotatePrivateKey are mutually exclusive
// per Session: an overlapping call fails with ConcurrentOperation instead of
// waiting. The guard does not span processes; the directory rejects a
// rotation whose previous card is no longer live.
//
// Register publishes the new card before saving the key locally. A crash in
// between leaves a card without a local key, which State reports as
// KeyLost and RotatePrivateKey repairs.
package identity
