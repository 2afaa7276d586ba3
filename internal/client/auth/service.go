package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/accswitch/internal/autherr"
	"github.com/iudanet/accswitch/internal/client/callback"
	"github.com/iudanet/accswitch/internal/client/device"
	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
)

// errCancelled - сессия отменена, результат шага отброшен
var errCancelled = errors.New("session cancelled")

// Options настройки сервиса
type Options struct {
	Dispatcher Dispatcher          // поток для callback, по умолчанию Inline
	Hardware   crypto.HardwareInfo // сигналы для аппаратного ключа
	Callback   callback.Config     // настройки listener для входа через браузер
}

// Service запускает добавление аккаунтов и вход в них
type Service struct {
	protocol Protocol
	logger   *slog.Logger
	now      func() time.Time
	dispatch Dispatcher
	hardware crypto.HardwareInfo
	callback callback.Config
}

// NewService создает сервис авторизации
func NewService(protocol Protocol, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = Inline
	}
	if opts.Hardware == nil {
		opts.Hardware = crypto.NoHardwareInfo{}
	}
	return &Service{
		protocol: protocol,
		logger:   logger.With("component", "auth"),
		now:      time.Now,
		dispatch: opts.Dispatcher,
		hardware: opts.Hardware,
		callback: opts.Callback,
	}
}

// CreateBrowser добавляет аккаунт через браузер. Адрес страницы входа приходит
// в Handler.Stage(open_browser, url) после того, как listener занял порт.
func (s *Service) CreateBrowser(ctx context.Context, strategy crypto.Strategy, h CreateHandler) (*Flow, error) {
	return s.create(ctx, "browser", strategy, h, s.browser)
}

// CreateDevice добавляет аккаунт через device code. Код для показа пользователю приходит
// в Handler.Stage(device_code_requested, models.DeviceCode).
func (s *Service) CreateDevice(ctx context.Context, strategy crypto.Strategy, h CreateHandler) (*Flow, error) {
	return s.create(ctx, "device", strategy, h, s.device)
}

type createFunc func(ctx context.Context, r *flowRun[*models.AccountCredential], strategy crypto.Strategy) (*models.AccountCredential, error)

func (s *Service) create(ctx context.Context, name string, strategy crypto.Strategy, h CreateHandler, fn createFunc) (*Flow, error) {
	if strategy == nil || h == nil {
		return nil, fmt.Errorf("%w: strategy and handler are required", autherr.ErrInvalidInput)
	}

	r, err := newRun(s, name, newNotifier(h, h.Success, s.dispatch))
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(r.flow.done)
		acc, err := fn(ctx, r, strategy)
		r.finish(ctx, acc, err)
	}()

	return r.flow, nil
}

// Login входит в сохраненный аккаунт: сначала пробует сохраненный игровой токен,
// при неудаче обновляет токены через refresh token и шифрует их той же стратегией.
func (s *Service) Login(ctx context.Context, acc *models.AccountCredential, prompt crypto.PasswordPrompt, h LoginHandler) (*Flow, error) {
	if acc == nil || h == nil {
		return nil, fmt.Errorf("%w: account and handler are required", autherr.ErrInvalidInput)
	}
	if acc.Kind != models.KindMicrosoft || !acc.HasSecret() {
		return nil, fmt.Errorf("%w: account %s has nothing to log in with", autherr.ErrInvalidInput, acc.ID)
	}

	r, err := newRun(s, "login", newNotifier(h, h.Success, s.dispatch))
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(r.flow.done)
		res, err := s.login(ctx, r, acc, prompt)
		r.finish(ctx, res, err)
	}()

	return r.flow, nil
}

// browser ждет редирект из браузера на локальный listener
func (s *Service) browser(ctx context.Context, r *flowRun[*models.AccountCredential], strategy crypto.Strategy) (*models.AccountCredential, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	type outcome struct {
		err  error
		code string
	}
	results := make(chan outcome, 1)

	l, err := callback.Listen(ctx, s.callback, r.flow.session.State(), func(code string, err error) {
		results <- outcome{code: code, err: err}
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	r.flow.track(l)

	redirectURI := l.RedirectURI()
	if err := r.advance(ctx, models.StageOpenBrowser, s.protocol.AuthCodeURL(r.flow.session.State(), redirectURI)); err != nil {
		return nil, err
	}

	var o outcome
	select {
	case o = <-results:
	case <-r.flow.stop:
		return nil, errCancelled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if o.err != nil {
		return nil, o.err
	}

	if err := r.advance(ctx, models.StageCodeReceived); err != nil {
		return nil, err
	}

	ms, err := s.protocol.ExchangeCode(ctx, o.code, redirectURI)
	if err != nil {
		return nil, err
	}

	return s.seal(ctx, r, ms, strategy)
}

// device запрашивает device code и опрашивает провайдера до подтверждения
func (s *Service) device(ctx context.Context, r *flowRun[*models.AccountCredential], strategy crypto.Strategy) (*models.AccountCredential, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	code, err := s.protocol.RequestDeviceCode(ctx)
	if err != nil {
		return nil, err
	}
	r.flow.session.SetDeadline(code.ExpiresAt, code.Interval)

	if err := r.advance(ctx, models.StageDeviceCodeRequested, *code); err != nil {
		return nil, err
	}

	poller := device.NewPoller(s.protocol, *code, r.logger)
	r.flow.track(poller)

	if err := r.advance(ctx, models.StagePolling); err != nil {
		return nil, err
	}

	ms, err := poller.Run(ctx)
	if errors.Is(err, device.ErrClosed) {
		return nil, errCancelled
	}
	if err != nil {
		return nil, err
	}

	return s.seal(ctx, r, ms, strategy)
}

// seal проходит шаги 2-5 и шифрует результат
func (s *Service) seal(ctx context.Context, r *flowRun[*models.AccountCredential], ms *models.ProviderTokens, strategy crypto.Strategy) (*models.AccountCredential, error) {
	if err := r.advance(ctx, models.StageTokensObtained); err != nil {
		return nil, err
	}

	res, err := s.chain(ctx, r, ms.Access)
	if err != nil {
		return nil, err
	}

	if err := r.advance(ctx, models.StageEncrypting); err != nil {
		return nil, err
	}

	acc, err := Seal(res.profile, models.TokenPair{Access: res.access, Refresh: ms.Refresh}, strategy)
	if err != nil {
		return nil, err
	}

	if err := r.commit(); err != nil {
		return nil, err
	}
	return acc, nil
}

// login расшифровывает токены и получает профиль, обновляя токены при необходимости
func (s *Service) login(ctx context.Context, r *flowRun[*LoginResult], acc *models.AccountCredential, prompt crypto.PasswordPrompt) (*LoginResult, error) {
	if err := r.advance(ctx, models.StageDecrypting); err != nil {
		return nil, err
	}

	strategy, err := crypto.ReadStrategy(ctx, acc.CipherTag, s.hardware, prompt)
	if err != nil {
		return nil, err
	}
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	pair, err := Open(acc, strategy)
	if err != nil {
		return nil, err
	}

	var stored error
	if tokenUsable(pair.Access, s.now()) {
		if err := r.advance(ctx, models.StageGameAccessToken); err != nil {
			return nil, err
		}

		profile, err := s.protocol.Profile(ctx, pair.Access)
		if err == nil {
			if err := r.advance(ctx, models.StageProfileObtained); err != nil {
				return nil, err
			}
			updated := *acc
			updated.ID = profile.ID
			updated.Name = profile.Name
			if err := r.check(ctx); err != nil {
				return nil, err
			}
			if err := r.commit(); err != nil {
				return nil, err
			}
			return &LoginResult{
				Account:     &updated,
				AccessToken: pair.Access,
				Changed:     updated.ID != acc.ID || updated.Name != acc.Name,
			}, nil
		}
		stored = err
		r.logger.Info("stored game token rejected, refreshing", "reason", autherr.ReasonOf(err))
	} else {
		stored = errors.New("stored game token expired")
		r.logger.Info("stored game token expired, refreshing")
	}

	if err := r.advance(ctx, models.StageRefreshing); err != nil {
		return nil, err
	}

	ms, err := s.protocol.RefreshTokens(ctx, pair.Refresh)
	if err != nil {
		return nil, refreshFailure(acc, stored, err)
	}
	if err := r.advance(ctx, models.StageTokensObtained); err != nil {
		return nil, err
	}

	res, err := s.chain(ctx, r, ms.Access)
	if err != nil {
		return nil, refreshFailure(acc, stored, err)
	}

	if err := r.advance(ctx, models.StageEncrypting); err != nil {
		return nil, err
	}

	sealed, err := Seal(res.profile, models.TokenPair{Access: res.access, Refresh: ms.Refresh}, strategy)
	if err != nil {
		return nil, err
	}

	if err := r.commit(); err != nil {
		return nil, err
	}
	return &LoginResult{
		Account:     sealed,
		AccessToken: res.access,
		Refreshed:   true,
		Changed:     true,
	}, nil
}

func refreshFailure(acc *models.AccountCredential, stored, err error) error {
	return fmt.Errorf("unable to refresh account %s/%s (stored token: %v): %w", acc.ID, acc.Name, stored, err)
}

type chainResult struct {
	access  string
	profile models.Profile
}

// stepper переводит сессию в следующую стадию с проверкой отмены
type stepper interface {
	advance(ctx context.Context, stage models.Stage, args ...any) error
}

// chain выполняет шаги 2-5: Xbox Live, XSTS, игровой токен, профиль
func (s *Service) chain(ctx context.Context, st stepper, access string) (*chainResult, error) {
	xbl, err := s.protocol.AuthenticateXboxLive(ctx, access)
	if err != nil {
		return nil, err
	}
	if err := st.advance(ctx, models.StageXboxToken); err != nil {
		return nil, err
	}

	xsts, err := s.protocol.AuthorizeXSTS(ctx, *xbl)
	if err != nil {
		return nil, err
	}
	if err := st.advance(ctx, models.StageXSTSToken); err != nil {
		return nil, err
	}

	game, err := s.protocol.LoginWithXbox(ctx, *xsts)
	if err != nil {
		return nil, err
	}
	if err := st.advance(ctx, models.StageGameAccessToken); err != nil {
		return nil, err
	}

	profile, err := s.protocol.Profile(ctx, game)
	if err != nil {
		return nil, err
	}
	if err := st.advance(ctx, models.StageProfileObtained); err != nil {
		return nil, err
	}

	return &chainResult{access: game, profile: *profile}, nil
}

// flowRun связывает flow, его notifier и логгер
type flowRun[T any] struct {
	flow   *Flow
	n      *notifier[T]
	logger *slog.Logger
}

func newRun[T any](s *Service, name string, n *notifier[T]) (*flowRun[T], error) {
	session, err := NewSession()
	if err != nil {
		return nil, err
	}
	return &flowRun[T]{
		flow:   newFlow(session),
		n:      n,
		logger: s.logger.With("flow", name, "session", session.ID().String()),
	}, nil
}

// check проверяет отмену перед шагом с побочными эффектами
func (r *flowRun[T]) check(ctx context.Context) error {
	if ctx.Err() != nil || r.n.cancelled() {
		r.flow.Cancel()
	}
	if r.flow.session.Cancelled() {
		return errCancelled
	}
	return nil
}

// advance переводит сессию в stage и уведомляет handler. Отмена проверяется
// и до, и после уведомления: handler мог отменить flow прямо в Stage.
func (r *flowRun[T]) advance(ctx context.Context, stage models.Stage, args ...any) error {
	if err := r.check(ctx); err != nil {
		return err
	}
	if err := r.flow.session.Advance(stage); err != nil {
		return err
	}
	r.logger.Debug("stage", "stage", stage)
	r.n.stage(stage, args...)
	if stage == models.StageEncrypting {
		// после начала шифрования отмена уже не действует
		return nil
	}
	return r.check(ctx)
}

// commit завершает сессию после шифрования. Отмена здесь уже не действует.
func (r *flowRun[T]) commit() error {
	if err := r.flow.session.Advance(models.StageDone); err != nil {
		return err
	}
	r.n.stage(models.StageDone)
	return nil
}

// finish - единственное место, где результат flow превращается в Success или Error
func (r *flowRun[T]) finish(ctx context.Context, v T, err error) {
	session := r.flow.session

	if err == nil {
		r.logger.Info("flow completed", "stage", session.Stage())
		r.n.ok(v)
		return
	}

	if ctx.Err() != nil || r.n.cancelled() || errors.Is(err, crypto.ErrPromptCancelled) {
		session.Cancel()
	}
	if session.Cancelled() {
		from := session.Stage()
		if advErr := session.Advance(models.StageCancelled); advErr != nil {
			_ = session.Advance(models.StageFailed)
		}
		r.logger.Info("flow cancelled", "stage", from)
		r.n.discard()
		return
	}

	from := session.Stage()
	_ = session.Advance(models.StageFailed)
	r.logger.Warn("flow failed", "stage", from, "reason", autherr.ReasonOf(err), "error", err)
	r.n.fail(err)
}
