package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/accswitch/internal/autherr"
	"github.com/iudanet/accswitch/internal/models"
)

// ErrClosed - опрос остановлен вызовом Close
var ErrClosed = errors.New("device poller closed")

// minInterval нижняя граница интервала опроса
const minInterval = 10 * time.Millisecond

// Exchanger выполняет один блокирующий обмен device code на токены
type Exchanger interface {
	ExchangeDeviceCode(ctx context.Context, deviceCode string) (*models.ProviderTokens, error)
}

// Poller опрашивает провайдера, пока пользователь не подтвердит вход на другом устройстве.
// Одновременно выполняется не больше одного запроса: следующий тик планируется после завершения предыдущего.
type Poller struct {
	exchanger Exchanger
	logger    *slog.Logger
	now       func() time.Time
	stop      chan struct{}
	code      models.DeviceCode
	attempts  atomic.Int32
	closeOnce sync.Once
}

// NewPoller создает опрос для полученного device code
func NewPoller(exchanger Exchanger, code models.DeviceCode, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if code.Interval < minInterval {
		code.Interval = minInterval
	}
	return &Poller{
		exchanger: exchanger,
		code:      code,
		logger:    logger.With("component", "device_poller"),
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

// Attempts возвращает количество выполненных запросов
func (p *Poller) Attempts() int {
	return int(p.attempts.Load())
}

// Start запускает опрос в отдельной горутине. onResult вызывается ровно один раз.
func (p *Poller) Start(ctx context.Context, onResult func(*models.ProviderTokens, error)) {
	go func() {
		onResult(p.Run(ctx))
	}()
}

// Run блокирует до конечного результата: токены, отказ пользователя, истечение срока,
// ошибка, отмена ctx или Close.
func (p *Poller) Run(ctx context.Context) (*models.ProviderTokens, error) {
	timer := time.NewTimer(p.code.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.stop:
			return nil, ErrClosed
		case <-timer.C:
		}

		if !p.now().Before(p.code.ExpiresAt) {
			p.logger.Info("device code expired", "attempts", p.Attempts())
			return nil, autherr.New(autherr.ReasonExpired, "device code expired before approval")
		}

		tokens, err := p.exchanger.ExchangeDeviceCode(ctx, p.code.DeviceCode)
		attempt := p.attempts.Add(1)

		// закрыт во время запроса: результат не используется
		if p.closed() {
			return nil, ErrClosed
		}

		if errors.Is(err, autherr.ErrAuthorizationPending) {
			p.logger.Debug("device authorization pending", "attempt", attempt)
			timer.Reset(p.code.Interval)
			continue
		}
		if err != nil {
			p.logger.Info("device polling failed", "attempt", attempt, "reason", autherr.ReasonOf(err))
			return nil, err
		}

		p.logger.Info("device authorization approved", "attempt", attempt)
		return tokens, nil
	}
}

// Close останавливает опрос. Повторный вызов ничего не делает.
func (p *Poller) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
	})
	return nil
}

func (p *Poller) closed() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}
