package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/client/callback"
	"github.com/iudanet/accswitch/internal/config"
	"github.com/iudanet/accswitch/internal/crypto"
)

// newTestRoot собирает дерево команд с fakeProtocol вместо сети
func newTestRoot(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a := &app{
		info:     BuildInfo{Version: "1.2.3", BuildDate: "2026-01-01", GitCommit: "abc123"},
		hardware: crypto.NoHardwareInfo{},
	}
	a.newAuth = func(cfg *config.Config, hw crypto.HardwareInfo, logger *slog.Logger) Authenticator {
		return auth.NewService(newFakeProtocol(), auth.Options{
			Hardware: hw,
			Callback: callback.Config{PortFrom: -1},
		}, logger)
	}

	root := a.command()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(&bytes.Buffer{})
	return root, out
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, out := newTestRoot(t)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    1.2.3")
	assert.Contains(t, out, "Git Commit: abc123")
}

func TestRootCommand_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendBolt, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			db := filepath.Join(t.TempDir(), "nested", "accounts.db")
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			common := []string{"--config", cfgPath, "--db", db, "--storage", backend}

			out, err := execute(t, append([]string{"add", "offline", "Steve"}, common...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "Account added: Steve")

			out, err = execute(t, append([]string{"add", "microsoft", "--device", "--cipher", "dummy"}, common...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "ABCD-EFGH")

			out, err = execute(t, append([]string{"list"}, common...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "1. Steve")
			assert.Contains(t, out, "2. Notch")

			out, err = execute(t, append([]string{"login", "Steve"}, common...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "Switched to offline account Steve")

			out, err = execute(t, append([]string{"status"}, common...)...)
			require.NoError(t, err)
			assert.Contains(t, out, backend)
			assert.Contains(t, out, "Accounts: 2")

			_, err = execute(t, append([]string{"delete", "-f", "Notch"}, common...)...)
			require.NoError(t, err)

			out, err = execute(t, append([]string{"ls"}, common...)...)
			require.NoError(t, err)
			assert.NotContains(t, out, "Notch")
		})
	}
}

func TestRootCommand_InvalidFlags(t *testing.T) {
	db := filepath.Join(t.TempDir(), "accounts.db")

	_, err := execute(t, "list", "--db", db, "--storage", "mongo")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = execute(t, "list", "--db", db, "--log-level", "loud")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRootCommand_Args(t *testing.T) {
	db := filepath.Join(t.TempDir(), "accounts.db")

	_, err := execute(t, "login", "--db", db)
	assert.Error(t, err)

	_, err = execute(t, "add", "offline", "--db", db)
	assert.Error(t, err)
}
