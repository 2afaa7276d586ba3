package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/models"
)

const activeKey = "active"

// SaveAccount inserts or replaces account, keeping its position
func (s *Storage) SaveAccount(ctx context.Context, acc *models.AccountCredential) error {
	record, err := storage.ToRecord(acc)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (id, name, kind, blob, insecure)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			blob = excluded.blob,
			insecure = excluded.insecure
	`

	_, err = db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		string(record.Kind),
		record.Blob,
		record.Insecure,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

// GetAccount retrieves account by ID
func (s *Storage) GetAccount(ctx context.Context, id uuid.UUID) (*models.AccountCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT position, id, name, kind, blob, insecure
		FROM accounts
		WHERE id = ?
	`

	record, err := scanRecord(db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return record.Account()
}

// ListAccounts returns all accounts in insertion order
func (s *Storage) ListAccounts(ctx context.Context) ([]*models.AccountCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT position, id, name, kind, blob, insecure
		FROM accounts
		ORDER BY position ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.AccountCredential, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		acc, err := record.Account()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// DeleteAccount removes account by ID and clears the active mark pointing to it
func (s *Storage) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrAccountNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM metadata WHERE key = ? AND value = ?`, activeKey, id.String()); err != nil {
		return fmt.Errorf("failed to clear active account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SetActive marks account as the one used last
func (s *Storage) SetActive(ctx context.Context, id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO metadata (key, value)
		SELECT ?, id FROM accounts WHERE id = ?
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`

	result, err := db.ExecContext(ctx, query, activeKey, id.String())
	if err != nil {
		return fmt.Errorf("failed to save active account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// GetActive returns ID of the account used last
func (s *Storage) GetActive(ctx context.Context) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return uuid.Nil, err
	}

	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, activeKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, storage.ErrNoActiveAccount
		}
		return uuid.Nil, fmt.Errorf("failed to get active account: %w", err)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Join(storage.ErrCorruptedRecord, err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*storage.Record, error) {
	var (
		r        storage.Record
		kind     string
		position int64
	)
	if err := row.Scan(&position, &r.ID, &r.Name, &kind, &r.Blob, &r.Insecure); err != nil {
		return nil, err
	}
	r.Kind = models.AccountKind(kind)
	r.Position = uint64(position)
	return &r, nil
}
