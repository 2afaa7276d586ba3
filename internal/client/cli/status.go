package cli

import (
	"context"
	"fmt"
)

type statusView struct {
	Active     *accountView
	ConfigPath string
	Storage    string
	DBPath     string
	Cipher     string
	Count      int
}

func (c *Cli) runStatus(ctx context.Context, configPath string) error {
	accounts, err := c.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	view := statusView{
		ConfigPath: configPath,
		Storage:    c.cfg.Storage,
		DBPath:     c.cfg.DBPath,
		Cipher:     c.cfg.Cipher,
		Count:      len(accounts),
	}

	active, err := c.activeID(ctx)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if acc.ID == active {
			v := newAccountView(acc, active)
			view.Active = &v
			break
		}
	}

	return render(c.io, statusTmpl, view)
}
