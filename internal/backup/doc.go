// Package backup implements domain.BackupVault: password-protected private
// key backups namespaced by identity and addressed by a password-derived id.
//
// Memory is the in-process vault used by tests and the dev server. Redis
// keeps one hash per identity so a namespace can be dropped in one command
// and a password change can swap entries inside a WATCH transaction.
package backup
