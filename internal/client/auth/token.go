package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew запас до истечения токена, чтобы он не истек во время запуска игры
const expirySkew = time.Minute

// tokenUsable проверяет срок действия сохраненного игрового токена по claim exp.
// Подпись не проверяется: решение принимает сервер, здесь только экономится запрос.
// Токен, который не удалось разобрать, считается годным.
func tokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return now.Add(expirySkew).Before(claims.ExpiresAt.Time)
}
