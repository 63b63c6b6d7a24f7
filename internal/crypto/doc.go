// Package crypto is the crypto provider used by sealkit.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 signatures over BLAKE3 digests (SignDigest, VerifyDigest), so a
//     streamed signature equals an in-memory one
//   - Card signatures (SignCard, VerifyCard) under a separate prefix
//   - Provider: key pairs, key import/export, sign-then-encrypt and
//     decrypt-then-verify, and the incremental signer, verifier, cipher and
//     decipher used for large files
//   - Password-derived backup keys (DeriveBackupKey)
//   - Short public-key fingerprints and envelope key ids
//
// # Stream format
//
// A ciphertext is magic "SKS1", a big-endian uint32 header length, a JSON
// header and a sequence of XChaCha20-Poly1305 segments. The header carries an
// ephemeral X25519 key, the content key wrapped for every recipient and,
// optionally, the sender's signature sealed under the content key. Segment
// nonces are a random prefix, a 56-bit counter and a final flag; every
// segment authenticates the SHA-256 of the header. Truncation, reordering or
// a missing final segment fail authentication.
package crypto
