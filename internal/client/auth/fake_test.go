package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/accswitch/internal/autherr"
	"github.com/iudanet/accswitch/internal/models"
)

var testProfile = models.Profile{ID: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"), Name: "Notch"}

// fakeProtocol отвечает успешно на все шаги, поведение шага можно подменить
type fakeProtocol struct {
	xsts    func(ctx context.Context, xbl models.XboxToken) (*models.XboxToken, error)
	profile func(ctx context.Context, access string) (*models.Profile, error)
	refresh func(ctx context.Context, refresh string) (*models.ProviderTokens, error)
	calls   map[string]int
	pending int32
	polls   atomic.Int32
	mu      sync.Mutex
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{calls: map[string]int{}}
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

func (f *fakeProtocol) AuthCodeURL(state, redirectURI string) string {
	return "https://login.example/authorize?state=" + state + "&redirect_uri=" + redirectURI
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
	if f.refresh != nil {
		return f.refresh(ctx, refresh)
	}
	return &models.ProviderTokens{Access: "msa2", Refresh: "msr2"}, nil
}

func (f *fakeProtocol) AuthenticateXboxLive(ctx context.Context, access string) (*models.XboxToken, error) {
	f.record("xbl")
	return &models.XboxToken{Token: "xbl", Hash: "uhs"}, nil
}

func (f *fakeProtocol) AuthorizeXSTS(ctx context.Context, xbl models.XboxToken) (*models.XboxToken, error) {
	f.record("xsts")
	if f.xsts != nil {
		return f.xsts(ctx, xbl)
	}
	return &models.XboxToken{Token: "xsts", Hash: "uhs"}, nil
}

func (f *fakeProtocol) LoginWithXbox(ctx context.Context, xsts models.XboxToken) (string, error) {
	f.record("login_with_xbox")
	return "mca", nil
}

func (f *fakeProtocol) Profile(ctx context.Context, access string) (*models.Profile, error) {
	f.record("profile")
	if f.profile != nil {
		return f.profile(ctx, access)
	}
	p := testProfile
	return &p, nil
}

// recorder записывает все вызовы Handler
type recorder struct {
	onStage   func(stage models.Stage, args []any)
	args      map[models.Stage][]any
	stages    []models.Stage
	errs      []error
	accounts  []*models.AccountCredential
	results   []*LoginResult
	mu        sync.Mutex
	cancelled atomic.Bool
}

func newRecorder() *recorder {
	return &recorder{args: map[models.Stage][]any{}}
}

func (r *recorder) Stage(stage models.Stage, args ...any) {
	r.mu.Lock()
	r.stages = append(r.stages, stage)
	r.args[stage] = args
	r.mu.Unlock()
	if r.onStage != nil {
		r.onStage(stage, args)
	}
}

func (r *recorder) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Cancelled() bool {
	return r.cancelled.Load()
}

func (r *recorder) snapshot() (stages []models.Stage, errs []error, accounts []*models.AccountCredential, results []*LoginResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Stage(nil), r.stages...), append([]error(nil), r.errs...),
		append([]*models.AccountCredential(nil), r.accounts...), append([]*LoginResult(nil), r.results...)
}

type createRecorder struct{ *recorder }

func (c createRecorder) Success(acc *models.AccountCredential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = append(c.accounts, acc)
}

type loginRecorder struct{ *recorder }

func (l loginRecorder) Success(res *LoginResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, res)
}
