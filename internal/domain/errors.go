package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind enumerates every failure the core reports.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindRegistrationRequired
	KindAlreadyRegistered
	KindMultipleRecords
	KindPrivateKeyAlreadyExists
	KindNotFound
	KindLookupAggregate
	KindEmptyInput
	KindDuplicateIdentity
	KindConcurrentOperation
	KindIntegrityCheckFailed
	KindDirectory
	KindBackupVault
	KindLocalVault
)

var kindText = map[ErrorKind]string{
	KindUnknown:                 "unknown error",
	KindRegistrationRequired:    "registration required: no local private key",
	KindAlreadyRegistered:       "identity is already registered",
	KindMultipleRecords:         "multiple directory records",
	KindPrivateKeyAlreadyExists: "private key already exists",
	KindNotFound:                "no directory record",
	KindLookupAggregate:         "public key lookup failed",
	KindEmptyInput:              "no identities given",
	KindDuplicateIdentity:       "duplicate identity",
	KindConcurrentOperation:     "another key operation is in progress",
	KindIntegrityCheckFailed:    "integrity check failed",
	KindDirectory:               "directory service error",
	KindBackupVault:             "backup vault error",
	KindLocalVault:              "local key vault error",
}

func (k ErrorKind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return kindText[KindUnknown]
}

// Error is the single error type of the core. Kind is always set; Identity
// is set for identity-scoped kinds; Err carries the underlying cause.
type Error struct {
	Kind     ErrorKind
	Identity Identity
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Identity != "" {
		fmt.Fprintf(&b, " for %q", e.Identity)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. An empty Identity on target
// matches any identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Identity == "" || t.Identity == e.Identity)
}

// Sentinels for errors.Is checks.
var (
	ErrRegistrationRequired    = &Error{Kind: KindRegistrationRequired}
	ErrAlreadyRegistered       = &Error{Kind: KindAlreadyRegistered}
	ErrMultipleRecords         = &Error{Kind: KindMultipleRecords}
	ErrPrivateKeyAlreadyExists = &Error{Kind: KindPrivateKeyAlreadyExists}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrLookupAggregate         = &Error{Kind: KindLookupAggregate}
	ErrEmptyInput              = &Error{Kind: KindEmptyInput}
	ErrDuplicateIdentity       = &Error{Kind: KindDuplicateIdentity}
	ErrConcurrentOperation     = &Error{Kind: KindConcurrentOperation}
	ErrIntegrityCheckFailed    = &Error{Kind: KindIntegrityCheckFailed}
	ErrDirectory               = &Error{Kind: KindDirectory}
	ErrBackupVault             = &Error{Kind: KindBackupVault}
	ErrLocalVault              = &Error{Kind: KindLocalVault}
)

// RegistrationRequired reports that identity has no local private key.
func RegistrationRequired(identity Identity) error {
	return &Error{Kind: KindRegistrationRequired, Identity: identity}
}

// AlreadyRegistered reports that identity already has a directory record.
func AlreadyRegistered(identity Identity) error {
	return &Error{Kind: KindAlreadyRegistered, Identity: identity}
}

// PrivateKeyAlreadyExists reports that a key for identity is already stored
// where a new one was about to be written.
func PrivateKeyAlreadyExists(identity Identity, cause error) error {
	return &Error{Kind: KindPrivateKeyAlreadyExists, Identity: identity, Err: cause}
}

// ConcurrentOperation reports that a lifecycle operation is already running.
func ConcurrentOperation(identity Identity) error {
	return &Error{Kind: KindConcurrentOperation, Identity: identity}
}

// NotFound reports that identity has no directory record.
func NotFound(identity Identity) error {
	return &Error{Kind: KindNotFound, Identity: identity}
}

// MultipleRecords reports that identity has more than one directory record.
func MultipleRecords(identity Identity) error {
	return &Error{Kind: KindMultipleRecords, Identity: identity}
}

// DuplicateIdentity reports that identity was requested more than once.
func DuplicateIdentity(identity Identity) error {
	return &Error{Kind: KindDuplicateIdentity, Identity: identity}
}

// IntegrityCheckFailed wraps the reason a decrypt or verify step failed.
func IntegrityCheckFailed(cause error) error {
	return &Error{Kind: KindIntegrityCheckFailed, Err: cause}
}

// DirectoryError wraps a directory transport or validation failure.
func DirectoryError(cause error) error {
	return &Error{Kind: KindDirectory, Err: cause}
}

// BackupVaultError wraps a backup vault failure.
func BackupVaultError(cause error) error {
	return &Error{Kind: KindBackupVault, Err: cause}
}

// LocalVaultError wraps a local key vault failure.
func LocalVaultError(cause error) error {
	return &Error{Kind: KindLocalVault, Err: cause}
}

// KindOf returns the kind of the first *Error or *LookupError in err's chain.
func KindOf(err error) ErrorKind {
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return KindLookupAggregate
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// LookupError is returned when some identities of a batch lookup failed.
// Found holds the identities that resolved; Failures the ones that did not.
type LookupError struct {
	Found    LookupResult
	Failures map[Identity]error
}

func (e *LookupError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, e.Failures[Identity(id)].Error())
	}
	return fmt.Sprintf("%s (%d ok, %d failed): %s",
		KindLookupAggregate, len(e.Found), len(e.Failures), strings.Join(parts, "; "))
}

// Is matches ErrLookupAggregate.
func (e *LookupError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindLookupAggregate && t.Identity == ""
}

// Failure returns the error recorded for identity, if any.
func (e *LookupError) Failure(identity Identity) error {
	return e.Failures[identity]
}
