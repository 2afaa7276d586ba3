package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iudanet/accswitch/internal/models"
)

// AccountStorage defines interface for storing the account list on client.
// Secret material is persisted verbatim as produced by models.AccountCredential.Blob:
// storage never encrypts, decrypts or inspects it.
type AccountStorage interface {
	// SaveAccount inserts a new account or replaces the existing one with the same ID.
	// A replaced account keeps its position in the list.
	SaveAccount(ctx context.Context, acc *models.AccountCredential) error

	// GetAccount returns account by ID
	// Returns ErrAccountNotFound if no such account exists
	GetAccount(ctx context.Context, id uuid.UUID) (*models.AccountCredential, error)

	// ListAccounts returns all accounts in insertion order
	ListAccounts(ctx context.Context) ([]*models.AccountCredential, error)

	// DeleteAccount removes account by ID, clearing the active mark if it pointed to it
	// Returns ErrAccountNotFound if no such account exists
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// SetActive marks account as the one used last
	SetActive(ctx context.Context, id uuid.UUID) error

	// GetActive returns ID of the account used last
	// Returns ErrNoActiveAccount if nothing was selected
	GetActive(ctx context.Context) (uuid.UUID, error)

	// Close releases underlying resources
	Close() error
}

// Record is the persisted form of an account shared by all backends
type Record struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Kind     models.AccountKind `json:"kind"`
	Blob     []byte             `json:"blob,omitempty"` // tag-prefixed secret material
	Position uint64             `json:"position"`
	Insecure bool               `json:"insecure"`
}

// ToRecord converts account to its persisted form
func ToRecord(acc *models.AccountCredential) (*Record, error) {
	blob, err := acc.Blob()
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:       acc.ID.String(),
		Name:     acc.Name,
		Kind:     acc.Kind,
		Blob:     blob,
		Insecure: acc.Insecure,
	}, nil
}

// Account restores account from its persisted form
func (r *Record) Account() (*models.AccountCredential, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, errors.Join(ErrCorruptedRecord, err)
	}
	acc := &models.AccountCredential{
		ID:       id,
		Name:     r.Name,
		Kind:     r.Kind,
		Insecure: r.Insecure,
	}
	if len(r.Blob) > 0 {
		tag, payload, err := models.ParseBlob(r.Blob)
		if err != nil {
			return nil, errors.Join(ErrCorruptedRecord, err)
		}
		acc.CipherTag = tag
		acc.SecretMaterial = payload
	}
	return acc, nil
}
