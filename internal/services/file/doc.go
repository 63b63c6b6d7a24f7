// Package file encrypts and decrypts large blobs in bounded memory.
//
// Encryption makes two passes over the source: the first signs the
// plaintext, the second encrypts it with that signature sealed into the
// header. Decryption decrypts into an output buffer, then re-reads the
// plaintext to verify the signature; the result is returned only after
// verification succeeded. Each pass reports progress per chunk and checks
// the context at every chunk boundary.
package file
