package cloud

import "sealkit/internal/domain"

// Error codes carried in apiError.Code.
const (
	codeInvalidRequest = "invalid_request"
	codeUnauthorized   = "unauthorized"
	codeStaleRecord    = "stale_record"
	codeBackupExists   = "backup_exists"
	codeBackupNotFound = "backup_not_found"
	codeInternal       = "internal"
)

type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message,omitempty"`
}

type searchRequest struct {
	Identities []domain.Identity `json:"identities"`
}

type searchResponse struct {
	Cards []domain.Card `json:"cards"`
}

type backupBody struct {
	Key []byte `json:"key"`
}

type replaceRequest struct {
	NewID string `json:"new_id"`
	Key   []byte `json:"key"`
}
