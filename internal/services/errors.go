package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidParty       = errors.New("invalid party")
	ErrDuplicateRequest   = errors.New("a pending request already exists for this pair")
	ErrRequestNotFound    = errors.New("connection request not found")
	ErrRequestNotPending  = errors.New("connection request is not pending")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotRecipient       = errors.New("only the recipient can accept/reject")
	ErrNotSender          = errors.New("only the sender can cancel")
)

const pgUniqueViolation = "23505"

// StorageError reports a failed call to the persistence backend. It matches
// both ErrStorageUnavailable and the underlying cause under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + ErrStorageUnavailable.Error() + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
