package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runList(ctx context.Context) error {
	accounts, err := c.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		c.io.Println("No accounts found.")
		c.io.Println()
		c.io.Println("Use 'accswitch add microsoft' or 'accswitch add offline <name>' to add your first account.")
		return nil
	}

	active, err := c.activeID(ctx)
	if err != nil {
		return err
	}

	views := make([]accountView, 0, len(accounts))
	for _, acc := range accounts {
		views = append(views, newAccountView(acc, active))
	}
	return render(c.io, listTmpl, views)
}
