// Package message encrypts in-memory payloads for a set of recipients.
//
// Payloads are signed with the sender's key and then encrypted; the sender's
// own public key is always added to the recipients so senders can read what
// they wrote. Decryption verifies the embedded signature before returning
// anything.
package message
