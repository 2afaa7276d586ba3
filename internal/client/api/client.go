package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Параметры приложения в Microsoft identity platform
const (
	// ClientID - идентификатор приложения Azure
	ClientID = "54fd49e4-2103-4044-9603-2b028c814ec3"
	// Scope - запрашиваемые права
	Scope = "XboxLive.signin XboxLive.offline_access"
	// DefaultTimeout - общий таймаут каждого запроса
	DefaultTimeout = 15 * time.Second
)

// maxBodyInError - сколько байт тела ответа попадает в сообщение об ошибке
const maxBodyInError = 1024

// session - идентификатор запуска для User-Agent
var session = uuid.NewString()

// Endpoints адреса всех шагов протокола. В тестах подменяются адресами httptest.
type Endpoints struct {
	Authorize        string // страница входа для браузера
	LiveToken        string // обмен кода и refresh token
	DeviceCode       string // запрос device code
	DeviceToken      string // обмен device code
	XboxAuth         string // токен Xbox Live
	XSTSAuth         string // токен XSTS
	MinecraftLogin   string // login_with_xbox
	MinecraftProfile string // профиль игрока
}

// DefaultEndpoints возвращает боевые адреса
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Authorize:        "https://login.live.com/oauth20_authorize.srf",
		LiveToken:        "https://login.live.com/oauth20_token.srf",
		DeviceCode:       "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode",
		DeviceToken:      "https://login.microsoftonline.com/consumers/oauth2/v2.0/token",
		XboxAuth:         "https://user.auth.xboxlive.com/user/authenticate",
		XSTSAuth:         "https://xsts.auth.xboxlive.com/xsts/authorize",
		MinecraftLogin:   "https://api.minecraftservices.com/authentication/login_with_xbox",
		MinecraftProfile: "https://api.minecraftservices.com/minecraft/profile",
	}
}

// Config настройки клиента. Нулевые значения заменяются значениями по умолчанию.
type Config struct {
	Endpoints Endpoints
	ClientID  string
	UserAgent string
	Timeout   time.Duration
}

// Client выполняет шаги протокола Microsoft -> Xbox Live -> XSTS -> Minecraft.
// Каждый метод - один HTTP запрос, повторов нет.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	endpoints  Endpoints
	clientID   string
	userAgent  string
}

// UserAgent формирует User-Agent приложения
func UserAgent(version string) string {
	return fmt.Sprintf("accswitch/%s (%s; Go %s; %s/%s)", version, session, strings.TrimPrefix(runtime.Version(), "go"), runtime.GOOS, runtime.GOARCH)
}

// NewClient создает новый клиент протокола
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = ClientID
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent("dev")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoints: cfg.Endpoints,
		clientID:  cfg.ClientID,
		userAgent: cfg.UserAgent,
		logger:    logger,
		now:       time.Now,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// редиректы не выполняем, любой 3xx - ошибка шага
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// AuthCodeURL формирует адрес страницы входа для браузера
func (c *Client) AuthCodeURL(state, redirectURI string) string {
	cfg := &oauth2.Config{
		ClientID:    c.clientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.endpoints.Authorize,
			TokenURL: c.endpoints.LiveToken,
		},
	}
	return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// response результат одного запроса
type response struct {
	body   []byte
	status int
}

// ok - любой 2xx
func (r *response) ok() bool {
	return r.status >= 200 && r.status <= 299
}

// postForm отправляет form-urlencoded запрос
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// postJSON отправляет JSON запрос
func (c *Client) postJSON(ctx context.Context, endpoint string, body any) (*response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// get отправляет GET запрос с Bearer авторизацией
func (c *Client) get(ctx context.Context, endpoint, bearer string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return c.do(req)
}

// do выполняет HTTP запрос и читает тело целиком
func (c *Client) do(req *http.Request) (*response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("provider request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", c.now().Sub(start),
	)

	return &response{status: resp.StatusCode, body: respBody}, nil
}

// redactor заменяет известные секреты плейсхолдерами
type redactor struct {
	pairs []string
}

// newRedactor принимает пары плейсхолдер, значение
func newRedactor(pairs ...string) *redactor {
	r := &redactor{}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.add(pairs[i], pairs[i+1])
	}
	return r
}

func (r *redactor) add(placeholder, secret string) {
	if secret == "" {
		return
	}
	r.pairs = append(r.pairs, secret, placeholder)
}

func (r *redactor) apply(s string) string {
	if len(r.pairs) == 0 {
		return s
	}
	return strings.NewReplacer(r.pairs...).Replace(s)
}

// failure оборачивает причину сообщением шага, из которого вырезаны секреты.
// Текст причины тоже проходит через redactor, цепочка errors.Is сохраняется.
func (r *redactor) failure(hop string, resp *response, cause error) error {
	if resp == nil {
		return &hopError{msg: r.apply(hop), cause: cause, redact: r}
	}
	body := resp.body
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError]
	}
	msg := fmt.Sprintf("%s (status %d): %s", hop, resp.status, strings.TrimSpace(string(body)))
	return &hopError{msg: r.apply(msg), cause: cause, redact: r}
}

// hopError ошибка шага протокола с очищенным от секретов текстом
type hopError struct {
	cause  error
	redact *redactor
	msg    string
}

func (e *hopError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.redact.apply(e.cause.Error())
}

func (e *hopError) Unwrap() error {
	return e.cause
}
