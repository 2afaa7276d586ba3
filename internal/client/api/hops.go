package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/accswitch/internal/autherr"
	"github.com/iudanet/accswitch/internal/models"
	"github.com/iudanet/accswitch/pkg/api"
)

// минимальный интервал опроса, если провайдер его не прислал
const defaultPollInterval = 5 * time.Second

// RequestDeviceCode запрашивает device code для входа с другого устройства
func (c *Client) RequestDeviceCode(ctx context.Context) (*models.DeviceCode, error) {
	const hop = "unable to request device auth code"
	r := newRedactor()

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("scope", Scope)

	resp, err := c.postForm(ctx, c.endpoints.DeviceCode, form)
	if err != nil {
		return nil, r.failure(hop, nil, err)
	}
	if resp.status != http.StatusOK {
		return nil, r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}

	var dc api.DeviceCodeResponse
	if err := decode(resp.body, &dc); err != nil {
		return nil, r.failure(hop, resp, err)
	}
	r.add("[DAC]", dc.DeviceCode)
	if dc.DeviceCode == "" || dc.UserCode == "" || dc.VerificationURI == "" || dc.ExpiresIn <= 0 {
		return nil, r.failure(hop, resp, fmt.Errorf("%w: missing device code fields", autherr.ErrMalformedResponse))
	}

	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &models.DeviceCode{
		DeviceCode:      dc.DeviceCode,
		UserCode:        dc.UserCode,
		VerificationURI: dc.VerificationURI,
		Message:         dc.Message,
		ExpiresAt:       c.now().Add(time.Duration(dc.ExpiresIn) * time.Second),
		Interval:        interval,
	}, nil
}

// ExchangeCode меняет код авторизации из браузера на токены провайдера
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.ProviderTokens, error) {
	const hop = "unable to convert auth code to provider tokens"
	r := newRedactor("[MSAC]", code)

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("code", code)
	form.Set("grant_type", api.GrantAuthorizationCode)
	form.Set("redirect_uri", redirectURI)
	form.Set("scope", Scope)

	return c.tokens(ctx, hop, c.endpoints.LiveToken, form, r)
}

// RefreshTokens обновляет токены провайдера по refresh token
func (c *Client) RefreshTokens(ctx context.Context, refresh string) (*models.ProviderTokens, error) {
	const hop = "unable to refresh provider tokens"
	r := newRedactor("[MSR]", refresh)

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("refresh_token", refresh)
	form.Set("grant_type", api.GrantRefreshToken)
	form.Set("scope", Scope)

	return c.tokens(ctx, hop, c.endpoints.LiveToken, form, r)
}

// ExchangeDeviceCode однократно пытается обменять device code на токены.
// Вызов блокирующий и предназначен для опроса: пока пользователь не подтвердил вход,
// возвращается autherr.ErrAuthorizationPending.
func (c *Client) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*models.ProviderTokens, error) {
	const hop = "unable to convert device auth code to provider tokens"
	r := newRedactor("[DAC]", deviceCode)

	form := url.Values{}
	form.Set("grant_type", api.GrantDeviceCode)
	form.Set("client_id", c.clientID)
	form.Set("device_code", deviceCode)

	resp, err := c.postForm(ctx, c.endpoints.DeviceToken, form)
	if err != nil {
		return nil, r.failure(hop, nil, err)
	}
	if resp.status != http.StatusOK {
		var oauthErr api.OAuthErrorResponse
		if json.Unmarshal(resp.body, &oauthErr) == nil {
			switch oauthErr.Error {
			case api.ErrorAuthorizationPending:
				return nil, autherr.ErrAuthorizationPending
			case api.ErrorAuthorizationDeclined, api.ErrorAccessDenied:
				return nil, r.failure(hop, resp, autherr.New(autherr.ReasonCancel, "authorization declined by user"))
			case api.ErrorExpiredToken:
				return nil, r.failure(hop, resp, autherr.New(autherr.ReasonExpired, "device code expired"))
			}
		}
		return nil, r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}

	return c.decodeTokens(hop, resp, r)
}

func (c *Client) tokens(ctx context.Context, hop, endpoint string, form url.Values, r *redactor) (*models.ProviderTokens, error) {
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, r.failure(hop, nil, err)
	}
	if !resp.ok() {
		return nil, r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}
	return c.decodeTokens(hop, resp, r)
}

func (c *Client) decodeTokens(hop string, resp *response, r *redactor) (*models.ProviderTokens, error) {
	var tr api.TokenResponse
	if err := decode(resp.body, &tr); err != nil {
		return nil, r.failure(hop, resp, err)
	}
	r.add("[MSA]", tr.AccessToken)
	r.add("[MSR]", tr.RefreshToken)
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, r.failure(hop, resp, fmt.Errorf("%w: missing access_token or refresh_token", autherr.ErrMalformedResponse))
	}
	return &models.ProviderTokens{Access: tr.AccessToken, Refresh: tr.RefreshToken}, nil
}

// AuthenticateXboxLive меняет access token провайдера на токен Xbox Live
func (c *Client) AuthenticateXboxLive(ctx context.Context, access string) (*models.XboxToken, error) {
	const hop = "unable to convert provider access token to Xbox Live token"
	r := newRedactor("[MSA]", access)

	req := api.XboxAuthRequest{
		Properties: api.XboxAuthProperties{
			AuthMethod: api.XboxAuthMethod,
			SiteName:   api.XboxSiteName,
			RpsTicket:  api.XboxRpsTicketPrefix + access,
		},
		RelyingParty: api.XboxRelyingParty,
		TokenType:    api.XboxTokenTypeJWT,
	}

	resp, err := c.postJSON(ctx, c.endpoints.XboxAuth, req)
	if err != nil {
		return nil, r.failure(hop, nil, err)
	}
	if !resp.ok() {
		return nil, r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}

	token, err := decodeXboxToken(resp.body, r, "[XBL]")
	if err != nil {
		return nil, r.failure(hop, resp, err)
	}
	return token, nil
}

// AuthorizeXSTS меняет токен Xbox Live на XSTS токен игрового сервиса.
// 401 с известным XErr означает исправимую пользователем ситуацию.
func (c *Client) AuthorizeXSTS(ctx context.Context, xbl models.XboxToken) (*models.XboxToken, error) {
	const hop = "unable to convert Xbox Live token to XSTS token"
	r := newRedactor("[XBL]", xbl.Token, "[HASH]", xbl.Hash)

	req := api.XSTSRequest{
		Properties: api.XSTSProperties{
			SandboxID:  api.XSTSSandboxID,
			UserTokens: []string{xbl.Token},
		},
		RelyingParty: api.XSTSRelyingParty,
		TokenType:    api.XboxTokenTypeJWT,
	}

	resp, err := c.postJSON(ctx, c.endpoints.XSTSAuth, req)
	if err != nil {
		return nil, r.failure(hop, nil, err)
	}
	if resp.status == http.StatusUnauthorized {
		return nil, r.failure(hop, resp, xstsError(resp.body))
	}
	if !resp.ok() {
		return nil, r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}

	token, err := decodeXboxToken(resp.body, r, "[XSTS]")
	if err != nil {
		return nil, r.failure(hop, resp, err)
	}
	if xbl.Hash != "" && xbl.Hash != token.Hash {
		return nil, r.failure(hop, resp, autherr.ErrHashMismatch)
	}
	return token, nil
}

// xstsError классифицирует ответ 401 от XSTS
func xstsError(body []byte) error {
	var xerr api.XboxErrorResponse
	if err := json.Unmarshal(body, &xerr); err != nil || xerr.XErr == 0 {
		return fmt.Errorf("%w: 401 without XErr", autherr.ErrUnexpectedStatus)
	}
	switch xerr.XErr {
	case api.XErrNoXbox:
		return autherr.New(autherr.ReasonNoXbox, fmt.Sprintf("XErr %d: no Xbox account linked", xerr.XErr))
	case api.XErrXboxUnavailable:
		return autherr.New(autherr.ReasonXboxUnavailable, fmt.Sprintf("XErr %d: Xbox Live not available", xerr.XErr))
	case api.XErrAdultRequired, api.XErrAdultVerify, api.XErrChildAccount:
		return autherr.New(autherr.ReasonXboxAdult, fmt.Sprintf("XErr %d: adult verification required", xerr.XErr))
	default:
		return fmt.Errorf("%w: unknown XErr %d", autherr.ErrUnexpectedStatus, xerr.XErr)
	}
}

func decodeXboxToken(body []byte, r *redactor, placeholder string) (*models.XboxToken, error) {
	var xr api.XboxTokenResponse
	if err := decode(body, &xr); err != nil {
		return nil, err
	}
	r.add(placeholder, xr.Token)
	if xr.Token == "" {
		return nil, fmt.Errorf("%w: missing Token", autherr.ErrMalformedResponse)
	}
	if n := len(xr.DisplayClaims.Xui); n != 1 {
		return nil, fmt.Errorf("%w: expected exactly one xui claim, got %d", autherr.ErrMalformedResponse, n)
	}
	hash := xr.DisplayClaims.Xui[0].UserHash
	r.add("[HASH]", hash)
	if hash == "" {
		return nil, fmt.Errorf("%w: missing uhs", autherr.ErrMalformedResponse)
	}
	return &models.XboxToken{Token: xr.Token, Hash: hash}, nil
}

// LoginWithXbox меняет XSTS токен на токен доступа игрового сервиса
func (c *Client) LoginWithXbox(ctx context.Context, xsts models.XboxToken) (string, error) {
	const hop = "unable to convert XSTS token to game access token"
	r := newRedactor("[XSTS]", xsts.Token, "[HASH]", xsts.Hash)

	req := api.MinecraftLoginRequest{IdentityToken: api.IdentityToken(xsts.Hash, xsts.Token)}

	resp, err := c.postJSON(ctx, c.endpoints.MinecraftLogin, req)
	if err != nil {
		return "", r.failure(hop, nil, err)
	}
	if !resp.ok() {
		return "", r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}

	var lr api.MinecraftLoginResponse
	if err := decode(resp.body, &lr); err != nil {
		return "", r.failure(hop, resp, err)
	}
	r.add("[MCA]", lr.AccessToken)
	if lr.AccessToken == "" {
		return "", r.failure(hop, resp, fmt.Errorf("%w: missing access_token", autherr.ErrMalformedResponse))
	}
	return lr.AccessToken, nil
}

// Profile получает профиль игрока. 404 означает, что игра не куплена на этом аккаунте.
func (c *Client) Profile(ctx context.Context, access string) (*models.Profile, error) {
	const hop = "unable to fetch game profile"
	r := newRedactor("[MCA]", access)

	resp, err := c.get(ctx, c.endpoints.MinecraftProfile, access)
	if err != nil {
		return nil, r.failure(hop, nil, err)
	}
	if resp.status == http.StatusNotFound {
		return nil, r.failure(hop, resp, autherr.New(autherr.ReasonNoProfile, "no game profile on this account"))
	}
	if !resp.ok() {
		return nil, r.failure(hop, resp, autherr.ErrUnexpectedStatus)
	}

	var pr api.MinecraftProfileResponse
	if err := decode(resp.body, &pr); err != nil {
		return nil, r.failure(hop, resp, err)
	}
	if pr.Name == "" {
		return nil, r.failure(hop, resp, fmt.Errorf("%w: missing name", autherr.ErrMalformedResponse))
	}
	id, err := uuid.Parse(pr.ID)
	if err != nil {
		return nil, r.failure(hop, resp, fmt.Errorf("%w: invalid profile id: %w", autherr.ErrMalformedResponse, err))
	}
	return &models.Profile{ID: id, Name: pr.Name}, nil
}

// decode разбирает JSON ответа, любая ошибка - ErrMalformedResponse
func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: invalid JSON at offset %d", autherr.ErrMalformedResponse, syntaxErr.Offset)
		}
		return fmt.Errorf("%w: %w", autherr.ErrMalformedResponse, err)
	}
	return nil
}
