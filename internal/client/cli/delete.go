package cli

import (
	"context"
	"fmt"
	"strings"
)

// runDelete удаляет аккаунт. Без force спрашивает подтверждение.
func (c *Cli) runDelete(ctx context.Context, ref string, force bool) error {
	acc, err := c.findAccount(ctx, ref)
	if err != nil {
		return err
	}

	if err := render(c.io, accountTmpl, newAccountView(acc, acc.ID)); err != nil {
		return err
	}

	if !force {
		answer, err := c.io.ReadInput("Delete this account? [y/N]: ")
		if err != nil {
			return fmt.Errorf("failed to read answer: %w", err)
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			c.io.Println("Deletion cancelled.")
			return nil
		}
	}

	if err := c.store.DeleteAccount(ctx, acc.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	c.logger.Info("account deleted", "account", acc)
	c.io.Println(okStyle.Render("✓ Account deleted: " + acc.Name))
	return nil
}
