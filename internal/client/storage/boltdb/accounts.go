package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/models"
)

var keyActive = []byte("active")

// SaveAccount inserts or replaces account
func (s *Storage) SaveAccount(ctx context.Context, acc *models.AccountCredential) error {
	record, err := storage.ToRecord(acc)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	key := []byte(record.ID)

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		// Сохраняем позицию существующей записи
		if existing := bucket.Get(key); existing != nil {
			var old storage.Record
			if err := json.Unmarshal(existing, &old); err != nil {
				return errors.Join(storage.ErrCorruptedRecord, err)
			}
			record.Position = old.Position
		} else {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate position: %w", err)
			}
			record.Position = seq
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal account: %w", err)
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		return nil
	})
}

// GetAccount retrieves account by ID
func (s *Storage) GetAccount(ctx context.Context, id uuid.UUID) (*models.AccountCredential, error) {
	var acc *models.AccountCredential

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		data := bucket.Get([]byte(id.String()))
		if data == nil {
			return storage.ErrAccountNotFound
		}

		var err error
		acc, err = decode(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	return acc, nil
}

// ListAccounts returns all accounts in insertion order
func (s *Storage) ListAccounts(ctx context.Context) ([]*models.AccountCredential, error) {
	var records []storage.Record

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var r storage.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("%w: key %s: %w", storage.ErrCorruptedRecord, k, err)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Position < records[j].Position })

	accounts := make([]*models.AccountCredential, 0, len(records))
	for i := range records {
		acc, err := records[i].Account()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// DeleteAccount removes account by ID
func (s *Storage) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	key := []byte(id.String())

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAccounts)
		if bucket == nil {
			return fmt.Errorf("accounts bucket not found")
		}

		// Проверяем существование
		if bucket.Get(key) == nil {
			return storage.ErrAccountNotFound
		}
		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}

		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		if string(meta.Get(keyActive)) == id.String() {
			if err := meta.Delete(keyActive); err != nil {
				return fmt.Errorf("failed to clear active account: %w", err)
			}
		}
		return nil
	})
}

// SetActive marks account as the one used last
func (s *Storage) SetActive(ctx context.Context, id uuid.UUID) error {
	return s.update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketAccounts).Get([]byte(id.String())) == nil {
			return storage.ErrAccountNotFound
		}

		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		if err := meta.Put(keyActive, []byte(id.String())); err != nil {
			return fmt.Errorf("failed to save active account: %w", err)
		}
		return nil
	})
}

// GetActive returns ID of the account used last
func (s *Storage) GetActive(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID

	err := s.view(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := meta.Get(keyActive)
		if data == nil {
			return storage.ErrNoActiveAccount
		}

		var err error
		id, err = uuid.ParseBytes(data)
		if err != nil {
			return errors.Join(storage.ErrCorruptedRecord, err)
		}
		return nil
	})

	return id, err
}

func decode(data []byte) (*models.AccountCredential, error) {
	var r storage.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Join(storage.ErrCorruptedRecord, err)
	}
	return r.Account()
}
