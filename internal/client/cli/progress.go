package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/iudanet/accswitch/internal/autherr"
	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/models"
)

// stageLabels - что показывать пользователю на каждой стадии
var stageLabels = map[models.Stage]string{
	models.StageCodeReceived:    "Sign-in confirmed in browser",
	models.StagePolling:         "Waiting for confirmation on the other device...",
	models.StageDecrypting:      "Decrypting stored tokens",
	models.StageRefreshing:      "Refreshing tokens",
	models.StageTokensObtained:  "Microsoft tokens obtained",
	models.StageXboxToken:       "Xbox Live token obtained",
	models.StageXSTSToken:       "XSTS token obtained",
	models.StageGameAccessToken: "Game access token obtained",
	models.StageProfileObtained: "Profile loaded",
	models.StageEncrypting:      "Encrypting tokens",
}

// progress печатает стадии flow и запоминает его результат.
// Реализует auth.CreateHandler и auth.LoginHandler.
type progress[T any] struct {
	ctx    context.Context
	cli    *Cli
	result T
	err    error
	mu     sync.Mutex
	done   bool
}

var (
	_ auth.CreateHandler = (*progress[*models.AccountCredential])(nil)
	_ auth.LoginHandler  = (*progress[*auth.LoginResult])(nil)
)

func newProgress[T any](ctx context.Context, c *Cli) *progress[T] {
	return &progress[T]{ctx: ctx, cli: c}
}

func (p *progress[T]) Stage(stage models.Stage, args ...any) {
	c := p.cli
	switch stage {
	case models.StageOpenBrowser:
		url, _ := argAt[string](args, 0)
		c.io.Println("Open this address to sign in:")
		c.io.Println(url)
		if c.openBrowser != nil {
			if err := c.openBrowser(url); err != nil {
				c.logger.Warn("failed to open browser", "error", err)
			}
		}
		c.io.Println(dimStyle.Render("Waiting for the browser, press Ctrl+C to cancel..."))
	case models.StageDeviceCodeRequested:
		code, _ := argAt[models.DeviceCode](args, 0)
		c.io.Printf("Go to %s and enter the code:\n", code.VerificationURI)
		c.io.Println(codeStyle.Render(code.UserCode))
		c.io.Printf("The code expires at %s\n", code.ExpiresAt.Format("15:04:05"))
	default:
		if label, ok := stageLabels[stage]; ok {
			c.io.Println(dimStyle.Render("• " + label))
		}
	}
}

func (p *progress[T]) Success(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = v
	p.done = true
}

func (p *progress[T]) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	p.done = true
}

func (p *progress[T]) Cancelled() bool {
	return p.ctx.Err() != nil
}

// wait ждет конца flow. Отмена ctx отменяет сессию; отмененный flow
// не вызывает ни Success, ни Error и возвращает ErrCancelled.
func (p *progress[T]) wait(ctx context.Context, flow *auth.Flow) (T, error) {
	select {
	case <-flow.Done():
	case <-ctx.Done():
		flow.Cancel()
		<-flow.Done()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	switch {
	case !p.done:
		return zero, ErrCancelled
	case p.err != nil:
		return zero, describe(p.err)
	default:
		return p.result, nil
	}
}

// describe добавляет к ошибке код причины, понятный пользователю
func describe(err error) error {
	reason := autherr.ReasonOf(err)
	if reason == autherr.ReasonCancel {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return fmt.Errorf("authentication failed [%s]: %w", reason, err)
}

func argAt[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	return v, ok
}
