package api

// MinecraftLoginRequest запрос игрового токена по XSTS
type MinecraftLoginRequest struct {
	IdentityToken string `json:"identityToken"` // XBL3.0 x=<uhs>;<xsts>
}

// MinecraftLoginResponse ответ login_with_xbox
type MinecraftLoginResponse struct {
	Username    string `json:"username,omitempty"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// MinecraftProfileResponse профиль игрока
type MinecraftProfileResponse struct {
	ID   string `json:"id"`   // UUID без дефисов
	Name string `json:"name"` // имя игрока
}

// IdentityToken собирает identityToken для login_with_xbox
func IdentityToken(hash, xsts string) string {
	return "XBL3.0 x=" + hash + ";" + xsts
}
