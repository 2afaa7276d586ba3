package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/accswitch/internal/autherr"
	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/client/callback"
	"github.com/iudanet/accswitch/internal/client/iocli"
	"github.com/iudanet/accswitch/internal/client/storage/boltdb"
	"github.com/iudanet/accswitch/internal/config"
	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
)

var notch = models.Profile{ID: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"), Name: "Notch"}

// fakeProtocol успешно отвечает на все шаги без сети
type fakeProtocol struct {
	profile models.Profile
	pending int32
	polls   atomic.Int32
	mu      sync.Mutex
	calls   map[string]int
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{profile: notch, calls: map[string]int{}}
}

func (f *fakeProtocol) record(hop string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[hop]++
}

func (f *fakeProtocol) called(hop string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[hop]
}

func (f *fakeProtocol) setProfile(p models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
}

func (f *fakeProtocol) AuthCodeURL(state, redirectURI string) string {
	q := url.Values{"state": {state}, "redirect_uri": {redirectURI}}
	return "https://login.example/authorize?" + q.Encode()
}

func (f *fakeProtocol) RequestDeviceCode(ctx context.Context) (*models.DeviceCode, error) {
	f.record("device_code")
	return &models.DeviceCode{
		DeviceCode:      "dac",
		UserCode:        "ABCD-EFGH",
		VerificationURI: "https://microsoft.com/link",
		ExpiresAt:       time.Now().Add(time.Minute),
		Interval:        10 * time.Millisecond,
	}, nil
}

func (f *fakeProtocol) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.ProviderTokens, error) {
	f.record("exchange_code")
	return &models.ProviderTokens{Access: "msa", Refresh: "msr"}, nil
}

func (f *fakeProtocol) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*models.ProviderTokens, error) {
	f.record("exchange_device_code")
	if f.polls.Add(1) <= f.pending {
		return nil, autherr.ErrAuthorizationPending
	}
	return &models.ProviderTokens{Access: "msa", Refresh: "msr"}, nil
}

func (f *fakeProtocol) RefreshTokens(ctx context.Context, refresh string) (*models.ProviderTokens, error) {
	f.record("refresh")
	return &models.ProviderTokens{Access: "msa2", Refresh: "msr2"}, nil
}

func (f *fakeProtocol) AuthenticateXboxLive(ctx context.Context, access string) (*models.XboxToken, error) {
	f.record("xbl")
	return &models.XboxToken{Token: "xbl", Hash: "uhs"}, nil
}

func (f *fakeProtocol) AuthorizeXSTS(ctx context.Context, xbl models.XboxToken) (*models.XboxToken, error) {
	f.record("xsts")
	return &models.XboxToken{Token: "xsts", Hash: "uhs"}, nil
}

func (f *fakeProtocol) LoginWithXbox(ctx context.Context, xsts models.XboxToken) (string, error) {
	f.record("login_with_xbox")
	return "game-token", nil
}

func (f *fakeProtocol) Profile(ctx context.Context, access string) (*models.Profile, error) {
	f.record("profile")
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profile
	return &p, nil
}

// testEnv - Cli поверх временной BoltDB и fakeProtocol
type testEnv struct {
	cli    *Cli
	proto  *fakeProtocol
	store  *boltdb.Storage
	out    *bytes.Buffer
	env    map[string]string
	opened []string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv создает окружение; input - то, что "введет" пользователь
func newTestEnv(t *testing.T, cipher string, input string) *testEnv {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.Cipher = cipher

	e := &testEnv{
		proto: newFakeProtocol(),
		store: store,
		out:   &bytes.Buffer{},
		env:   map[string]string{},
	}

	logger := discardLogger()
	svc := auth.NewService(e.proto, auth.Options{
		Hardware: crypto.NoHardwareInfo{},
		Callback: callback.Config{PortFrom: -1},
	}, logger)

	e.cli = New(Options{
		IO:          iocli.NewStdioFrom(strings.NewReader(input), e.out),
		Storage:     store,
		Auth:        svc,
		Config:      cfg,
		Logger:      logger,
		OpenBrowser: e.browser,
		Getenv:      func(key string) string { return e.env[key] },
	})
	return e
}

// browser имитирует браузер: сразу возвращается на redirect_uri с кодом и state
func (e *testEnv) browser(u string) error {
	e.opened = append(e.opened, u)

	parsed, err := url.Parse(u)
	if err != nil {
		return err
	}
	q := parsed.Query()
	target := q.Get("redirect_uri") + "?code=M.C507_BAY.abc&state=" + url.QueryEscape(q.Get("state"))

	go func() {
		client := &http.Client{Timeout: 5 * time.Second}
		if resp, err := client.Get(target); err == nil {
			_ = resp.Body.Close()
		}
	}()
	return nil
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
