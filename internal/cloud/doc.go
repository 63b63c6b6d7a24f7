// Package cloud talks to the identity directory and the backup service.
//
// DirectoryClient and BackupClient are JSON-over-HTTP clients that attach a
// bearer token and a request id to every call and pace themselves with a
// client-side rate limiter. Directory, Server and their routes form the
// development server run by cmd/cloudd; Directory also implements
// domain.DirectoryService directly for in-process use.
//
// Routes (all JSON):
//
//	POST   /v1/cards                                   publish a card
//	POST   /v1/cards/actions/search                    search live cards by identity
//	PUT    /v1/backups/{identity}/{id}                 store a backup
//	GET    /v1/backups/{identity}/{id}                 fetch a backup
//	DELETE /v1/backups/{identity}/{id}                 delete a backup
//	DELETE /v1/backups/{identity}                      delete every backup of identity
//	POST   /v1/backups/{identity}/{id}/actions/replace re-key a backup
package cloud
