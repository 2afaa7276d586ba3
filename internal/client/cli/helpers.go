package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
)

// accountView - аккаунт в виде для шаблонов, без секретов
type accountView struct {
	Name     string
	Kind     models.AccountKind
	Cipher   string
	ID       uuid.UUID
	Active   bool
	Insecure bool
	Password bool
}

func newAccountView(acc *models.AccountCredential, active uuid.UUID) accountView {
	return accountView{
		Name:     acc.Name,
		Kind:     acc.Kind,
		Cipher:   acc.CipherTag,
		ID:       acc.ID,
		Active:   acc.ID == active,
		Insecure: acc.Insecure,
		Password: acc.CipherTag == crypto.TagPassword,
	}
}

// findAccount ищет аккаунт по UUID или по имени (без учета регистра)
func (c *Cli) findAccount(ctx context.Context, ref string) (*models.AccountCredential, error) {
	if id, err := uuid.Parse(ref); err == nil {
		acc, err := c.store.GetAccount(ctx, id)
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, fmt.Errorf("account not found with ID: %s", ref)
		}
		return acc, err
	}

	accounts, err := c.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var found *models.AccountCredential
	for _, acc := range accounts {
		if !strings.EqualFold(acc.Name, ref) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("several accounts are named %q, use the ID instead", ref)
		}
		found = acc
	}
	if found == nil {
		return nil, fmt.Errorf("account not found: %s", ref)
	}
	return found, nil
}

// activeID возвращает ID активного аккаунта или uuid.Nil
func (c *Cli) activeID(ctx context.Context) (uuid.UUID, error) {
	id, err := c.store.GetActive(ctx)
	if errors.Is(err, storage.ErrNoActiveAccount) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get active account: %w", err)
	}
	return id, nil
}
