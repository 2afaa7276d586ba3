// Package storagetest содержит общий набор проверок для реализаций storage.AccountStorage
package storagetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/models"
)

// Factory создает пустое хранилище для одного теста
type Factory func(t *testing.T) storage.AccountStorage

// Microsoft возвращает аккаунт с зашифрованным секретом
func Microsoft(name string, secret ...byte) *models.AccountCredential {
	if len(secret) == 0 {
		secret = []byte{0x01, 0x02, 0x03}
	}
	return &models.AccountCredential{
		ID:             uuid.New(),
		Name:           name,
		Kind:           models.KindMicrosoft,
		CipherTag:      "password",
		SecretMaterial: secret,
	}
}

// Run прогоняет все проверки контракта AccountStorage
func Run(t *testing.T, newStorage Factory) {
	t.Run("save and get", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		acc := Microsoft("Steve")
		require.NoError(t, s.SaveAccount(ctx, acc))

		got, err := s.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc, got)
	})

	t.Run("offline account without secret", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		acc := models.NewOfflineAccount("Alex")
		require.NoError(t, s.SaveAccount(ctx, acc))

		got, err := s.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, models.KindOffline, got.Kind)
		assert.False(t, got.HasSecret())
		assert.Empty(t, got.CipherTag)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.GetAccount(context.Background(), uuid.New())
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		names := []string{"zeta", "alpha", "Mid_1"}
		var ids []uuid.UUID
		for _, n := range names {
			acc := Microsoft(n)
			ids = append(ids, acc.ID)
			require.NoError(t, s.SaveAccount(ctx, acc))
		}

		list, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i := range names {
			assert.Equal(t, ids[i], list[i].ID)
			assert.Equal(t, names[i], list[i].Name)
		}
	})

	t.Run("list empty", func(t *testing.T) {
		s := newStorage(t)
		list, err := s.ListAccounts(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("replace keeps position", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		first := Microsoft("first")
		second := Microsoft("second")
		require.NoError(t, s.SaveAccount(ctx, first))
		require.NoError(t, s.SaveAccount(ctx, second))

		renamed := *first
		renamed.Name = "renamed"
		renamed.SecretMaterial = []byte{0xAA}
		require.NoError(t, s.SaveAccount(ctx, &renamed))

		list, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, "renamed", list[0].Name)
		assert.Equal(t, []byte{0xAA}, list[0].SecretMaterial)
		assert.Equal(t, second.ID, list[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		acc := Microsoft("gone")
		require.NoError(t, s.SaveAccount(ctx, acc))
		require.NoError(t, s.DeleteAccount(ctx, acc.ID))

		_, err := s.GetAccount(ctx, acc.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		assert.ErrorIs(t, s.DeleteAccount(ctx, acc.ID), storage.ErrAccountNotFound)
	})

	t.Run("active account", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		_, err := s.GetActive(ctx)
		assert.ErrorIs(t, err, storage.ErrNoActiveAccount)

		a := Microsoft("a")
		b := Microsoft("b")
		require.NoError(t, s.SaveAccount(ctx, a))
		require.NoError(t, s.SaveAccount(ctx, b))

		require.NoError(t, s.SetActive(ctx, a.ID))
		id, err := s.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, a.ID, id)

		// удаление другого аккаунта не трогает отметку
		require.NoError(t, s.DeleteAccount(ctx, b.ID))
		id, err = s.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, a.ID, id)

		require.NoError(t, s.DeleteAccount(ctx, a.ID))
		_, err = s.GetActive(ctx)
		assert.ErrorIs(t, err, storage.ErrNoActiveAccount)
	})

	t.Run("set active missing", func(t *testing.T) {
		s := newStorage(t)
		assert.ErrorIs(t, s.SetActive(context.Background(), uuid.New()), storage.ErrAccountNotFound)
	})

	t.Run("closed", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		_, err := s.ListAccounts(context.Background())
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
		assert.ErrorIs(t, s.SaveAccount(context.Background(), Microsoft("late")), storage.ErrStorageClosed)
	})
}
