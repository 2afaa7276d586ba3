package iocli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/iudanet/accswitch/internal/crypto"
)

// PasswordPrompt адаптирует IO к crypto.PasswordPrompt.
// Пустой ввод или EOF означают отказ от ввода, а не ошибку.
func PasswordPrompt(term IO, prompt string) crypto.PasswordPrompt {
	return func(ctx context.Context) (string, bool, error) {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		pw, err := term.ReadPassword(prompt)
		if errors.Is(err, io.EOF) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		if strings.TrimSpace(pw) == "" {
			return "", false, nil
		}
		return pw, true, nil
	}
}

// NewPassword запрашивает новый пароль дважды.
// Возвращает ok=false, если ввод пустой.
func NewPassword(term IO) (string, bool, error) {
	pw, err := term.ReadPassword("New password: ")
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(pw) == "" {
		return "", false, nil
	}
	confirm, err := term.ReadPassword("Repeat password: ")
	if err != nil {
		return "", false, err
	}
	if pw != confirm {
		return "", false, ErrPasswordMismatch
	}
	return pw, true, nil
}

// ErrPasswordMismatch - повторный ввод пароля не совпал
var ErrPasswordMismatch = errors.New("passwords do not match")
