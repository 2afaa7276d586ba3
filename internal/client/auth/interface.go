package auth

import (
	"context"

	"github.com/iudanet/accswitch/internal/models"
)

// Protocol шаги удаленного протокола, реализуется api.Client
type Protocol interface {
	// AuthCodeURL адрес страницы входа для браузера
	AuthCodeURL(state, redirectURI string) string
	// RequestDeviceCode шаг 0 для входа с другого устройства
	RequestDeviceCode(ctx context.Context) (*models.DeviceCode, error)
	// ExchangeCode шаг 1: код из браузера на токены Microsoft
	ExchangeCode(ctx context.Context, code, redirectURI string) (*models.ProviderTokens, error)
	// ExchangeDeviceCode шаг 1 для device code, блокирующий
	ExchangeDeviceCode(ctx context.Context, deviceCode string) (*models.ProviderTokens, error)
	// RefreshTokens шаг 1 при входе: refresh token на новые токены
	RefreshTokens(ctx context.Context, refresh string) (*models.ProviderTokens, error)
	// AuthenticateXboxLive шаг 2
	AuthenticateXboxLive(ctx context.Context, access string) (*models.XboxToken, error)
	// AuthorizeXSTS шаг 3
	AuthorizeXSTS(ctx context.Context, xbl models.XboxToken) (*models.XboxToken, error)
	// LoginWithXbox шаг 4, возвращает игровой токен
	LoginWithXbox(ctx context.Context, xsts models.XboxToken) (string, error)
	// Profile шаг 5
	Profile(ctx context.Context, access string) (*models.Profile, error)
}
