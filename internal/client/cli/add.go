package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/models"
	"github.com/iudanet/accswitch/internal/validation"
)

// runAddMicrosoft добавляет аккаунт Microsoft через браузер или device code
func (c *Cli) runAddMicrosoft(ctx context.Context, device bool) error {
	strategy, err := c.strategy(c.cfg.Cipher)
	if err != nil {
		return err
	}
	if strategy.Insecure() {
		c.io.Println(warnStyle.Render("Warning: tokens will be stored with the dummy cipher and are not protected."))
	}

	p := newProgress[*models.AccountCredential](ctx, c)
	var flow *auth.Flow
	if device {
		flow, err = c.auth.CreateDevice(ctx, strategy, p)
	} else {
		flow, err = c.auth.CreateBrowser(ctx, strategy, p)
	}
	if err != nil {
		return fmt.Errorf("failed to start sign-in: %w", err)
	}

	acc, err := p.wait(ctx, flow)
	if err != nil {
		return err
	}

	return c.saveNew(ctx, acc)
}

// runAddOffline добавляет offline аккаунт. Только пустое имя запрещено,
// остальные замечания к имени выводятся как предупреждение.
func (c *Cli) runAddOffline(ctx context.Context, name string) error {
	if err := validation.ValidateName(name); err != nil {
		if validation.IsBlocking(err) {
			return err
		}
		c.io.Println(warnStyle.Render("Warning: " + err.Error()))
	}

	return c.saveNew(ctx, models.NewOfflineAccount(name))
}

// saveNew сохраняет аккаунт и делает его активным
func (c *Cli) saveNew(ctx context.Context, acc *models.AccountCredential) error {
	_, err := c.store.GetAccount(ctx, acc.ID)
	existed := err == nil
	if err != nil && !errors.Is(err, storage.ErrAccountNotFound) {
		return fmt.Errorf("failed to check account: %w", err)
	}

	if err := c.store.SaveAccount(ctx, acc); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if err := c.store.SetActive(ctx, acc.ID); err != nil {
		return fmt.Errorf("failed to set active account: %w", err)
	}
	c.logger.Info("account saved", "account", acc, "replaced", existed)

	if existed {
		c.io.Println(okStyle.Render("✓ Account updated: " + acc.Name))
	} else {
		c.io.Println(okStyle.Render("✓ Account added: " + acc.Name))
	}
	return render(c.io, accountTmpl, newAccountView(acc, acc.ID))
}
