package domain

import "errors"

// Sentinel errors for infrastructure facts. Vaults and cloud clients return
// these (optionally wrapped) so services can translate them into domain errors.
var (
	ErrKeyExists      = errors.New("key already exists")
	ErrBackupExists   = errors.New("backup already exists")
	ErrBackupNotFound = errors.New("backup not found")
	ErrStaleRecord    = errors.New("previous record is not the live record")
	ErrUnauthorized   = errors.New("unauthorized")
)
