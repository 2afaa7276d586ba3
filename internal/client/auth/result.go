package auth

import (
	"fmt"

	"github.com/iudanet/accswitch/internal/models"
)

// LoginResult результат входа в аккаунт
type LoginResult struct {
	// Account аккаунт с актуальным именем. После обновления токенов содержит новый SecretMaterial.
	Account *models.AccountCredential
	// AccessToken игровой токен для запуска. Не сохраняется и не логируется.
	AccessToken string
	// Refreshed токены были обновлены через refresh token
	Refreshed bool
	// Changed аккаунт нужно сохранить заново
	Changed bool
}

// String не раскрывает игровой токен
func (r *LoginResult) String() string {
	return fmt.Sprintf("LoginResult{account=%s, access=[MCA], refreshed=%t, changed=%t}", r.Account, r.Refreshed, r.Changed)
}
