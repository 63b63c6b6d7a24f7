// Package main runs the sealkit directory and backup server used during
// development and tests.
//
// HTTP API
//
//	POST   /v1/cards                                   publish a self-signed card
//	POST   /v1/cards/actions/search                    return live cards for identities
//	PUT    /v1/backups/{identity}/{id}                 store an encrypted key
//	GET    /v1/backups/{identity}/{id}                 fetch an encrypted key
//	DELETE /v1/backups/{identity}/{id}                 delete one backup
//	DELETE /v1/backups/{identity}                      delete every backup
//	POST   /v1/backups/{identity}/{id}/actions/replace swap a backup atomically
//	GET    /metrics                                    Prometheus metrics
//
// Behaviour
//
//   - Cards are held in memory and lost on exit. Backups live in memory or,
//     with --redis, in Redis hashes.
//   - Every published card is countersigned with the issuer key. The issuer
//     seed is read from --issuer-seed-file and created there when missing;
//     the public half is logged in base58 for clients' issuer_key setting.
//   - With --token set, /v1 routes require "Authorization: Bearer <token>".
//   - The default listen address is :8080.
//
// The server never sees plaintext or private keys; it stores public cards
// and password-encrypted backups only.
package main
