package auth

import (
	"fmt"

	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
)

// Seal шифрует пару токенов и собирает аккаунт.
// Открытая форма пары затирается сразу после шифрования.
func Seal(profile models.Profile, pair models.TokenPair, strategy crypto.Strategy) (*models.AccountCredential, error) {
	data, err := pair.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode tokens: %w", err)
	}
	defer models.Wipe(data)

	material, err := crypto.Encrypt(data, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt tokens: %w", err)
	}

	return &models.AccountCredential{
		ID:             profile.ID,
		Name:           profile.Name,
		Kind:           models.KindMicrosoft,
		CipherTag:      strategy.Tag(),
		SecretMaterial: material,
		Insecure:       strategy.Insecure(),
	}, nil
}

// Open расшифровывает пару токенов аккаунта
func Open(acc *models.AccountCredential, strategy crypto.Strategy) (models.TokenPair, error) {
	var pair models.TokenPair

	if !acc.HasSecret() {
		return pair, fmt.Errorf("account %s has no secret material", acc.ID)
	}
	if acc.CipherTag != strategy.Tag() {
		return pair, fmt.Errorf("account %s is sealed with %q, got %q", acc.ID, acc.CipherTag, strategy.Tag())
	}

	data, err := crypto.Decrypt(acc.SecretMaterial, strategy)
	if err != nil {
		return pair, fmt.Errorf("failed to decrypt tokens: %w", err)
	}
	defer models.Wipe(data)

	if err := pair.UnmarshalBinary(data); err != nil {
		return pair, fmt.Errorf("failed to decode tokens: %w", err)
	}
	return pair, nil
}
