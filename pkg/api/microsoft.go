package api

// Значения для запросов к Microsoft identity platform
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"

	// Коды ошибок device code flow (RFC 8628)
	ErrorAuthorizationPending  = "authorization_pending"
	ErrorAuthorizationDeclined = "authorization_declined"
	ErrorExpiredToken          = "expired_token"
	ErrorAccessDenied          = "access_denied"
)

// DeviceCodeResponse ответ на запрос device code
type DeviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`      // код для обмена на токены
	UserCode        string `json:"user_code"`        // код, который вводит пользователь
	VerificationURI string `json:"verification_uri"` // страница для ввода кода
	Message         string `json:"message"`          // готовое сообщение для пользователя
	ExpiresIn       int64  `json:"expires_in"`       // время жизни в секундах
	Interval        int64  `json:"interval"`         // интервал опроса в секундах
}

// TokenResponse ответ token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// OAuthErrorResponse тело ошибки token endpoint
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
