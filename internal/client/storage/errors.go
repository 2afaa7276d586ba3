package storage

import "errors"

// Common client storage errors
var (
	// ErrAccountNotFound indicates that account was not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrNoActiveAccount indicates that no account was selected yet
	ErrNoActiveAccount = errors.New("no active account")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrCorruptedRecord indicates that a stored record cannot be decoded
	ErrCorruptedRecord = errors.New("corrupted account record")
)
