package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/models"
)

// runLogin входит в сохраненный аккаунт и делает его активным.
// Для offline аккаунта вход - это только переключение.
func (c *Cli) runLogin(ctx context.Context, ref string, printToken bool) error {
	acc, err := c.findAccount(ctx, ref)
	if err != nil {
		return err
	}

	if acc.Kind == models.KindOffline {
		if err := c.store.SetActive(ctx, acc.ID); err != nil {
			return fmt.Errorf("failed to set active account: %w", err)
		}
		c.io.Println(okStyle.Render("✓ Switched to offline account " + acc.Name))
		return nil
	}

	p := newProgress[*auth.LoginResult](ctx, c)
	flow, err := c.auth.Login(ctx, acc, c.passwordPrompt(), p)
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	res, err := p.wait(ctx, flow)
	if err != nil {
		return err
	}

	if res.Changed {
		if err := c.replace(ctx, acc, res.Account); err != nil {
			return err
		}
	}
	if err := c.store.SetActive(ctx, res.Account.ID); err != nil {
		return fmt.Errorf("failed to set active account: %w", err)
	}

	msg := "✓ Logged in as " + res.Account.Name
	if res.Refreshed {
		msg += " (tokens refreshed)"
	}
	c.io.Println(okStyle.Render(msg))

	if printToken {
		c.io.Println(res.AccessToken)
	}
	return nil
}

// replace сохраняет обновленный аккаунт; если сменился UUID профиля, старая запись
// удаляется только после успешного сохранения новой
func (c *Cli) replace(ctx context.Context, old, updated *models.AccountCredential) error {
	if err := c.store.SaveAccount(ctx, updated); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if old.ID != updated.ID {
		err := c.store.DeleteAccount(ctx, old.ID)
		if err != nil && !errors.Is(err, storage.ErrAccountNotFound) {
			return fmt.Errorf("failed to remove outdated account: %w", err)
		}
	}
	c.logger.Info("account updated after login", "account", updated)
	return nil
}
