package models

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflineUUID(t *testing.T) {
	id := OfflineUUID("Notch")

	assert.Equal(t, uuid.Version(3), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
	// детерминированность
	assert.Equal(t, id, OfflineUUID("Notch"))
	assert.NotEqual(t, id, OfflineUUID("notch"))
}

func TestNewOfflineAccount(t *testing.T) {
	acc := NewOfflineAccount("Steve")

	assert.Equal(t, "Steve", acc.Name)
	assert.Equal(t, KindOffline, acc.Kind)
	assert.False(t, acc.HasSecret())

	blob, err := acc.Blob()
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestAccountCredential_Blob(t *testing.T) {
	acc := &AccountCredential{
		ID:             uuid.New(),
		Name:           "Steve",
		Kind:           KindMicrosoft,
		CipherTag:      "hardware",
		SecretMaterial: []byte{1, 2, 3, 4, 5},
	}

	blob, err := acc.Blob()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 8}, blob[:2])

	tag, payload, err := ParseBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, "hardware", tag)
	assert.Equal(t, acc.SecretMaterial, payload)
}

func TestParseBlob_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{name: "empty", blob: nil},
		{name: "single byte", blob: []byte{0}},
		{name: "zero tag length", blob: []byte{0, 0, 1}},
		{name: "tag longer than blob", blob: []byte{0, 10, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseBlob(tt.blob)
			assert.ErrorIs(t, err, ErrMalformedBlob)
		})
	}
}

func TestAccountCredential_String_Redacts(t *testing.T) {
	acc := &AccountCredential{
		ID:             uuid.New(),
		Name:           "Steve",
		Kind:           KindMicrosoft,
		CipherTag:      "password",
		SecretMaterial: []byte("super-secret-material"),
	}

	assert.NotContains(t, acc.String(), "super-secret-material")
	assert.NotContains(t, fmt.Sprintf("%v", acc.LogValue()), "super-secret-material")
}

func TestTokenPair_Binary(t *testing.T) {
	pair := TokenPair{Access: "eyJhbGciOi.access", Refresh: "M.R3_BAY.refresh"}

	data, err := pair.MarshalBinary()
	require.NoError(t, err)

	var got TokenPair
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, pair, got)

	// лишние байты
	err = got.UnmarshalBinary(append(data, 0))
	assert.ErrorIs(t, err, ErrMalformedTokens)

	// обрезанные данные
	err = got.UnmarshalBinary(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrMalformedTokens)

	assert.NotContains(t, pair.String(), "eyJhbGciOi")
	assert.NotContains(t, pair.String(), "M.R3_BAY")
}

func TestWipe(t *testing.T) {
	buf := []byte("secret")
	Wipe(buf)
	assert.Equal(t, make([]byte, 6), buf)
}

func TestStage_Terminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.True(t, StageCancelled.Terminal())
	assert.False(t, StageXSTSToken.Terminal())
}
