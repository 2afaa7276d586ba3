package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iudanet/accswitch/internal/client/api"
	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/client/callback"
	"github.com/iudanet/accswitch/internal/client/iocli"
	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/client/storage/boltdb"
	"github.com/iudanet/accswitch/internal/client/storage/sqlite"
	"github.com/iudanet/accswitch/internal/config"
	"github.com/iudanet/accswitch/internal/crypto"
)

// BuildInfo информация о сборке, задается через ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

type rootFlags struct {
	configPath   string
	db           string
	storage      string
	cipher       string
	logLevel     string
	passwordFile string
}

// AuthFactory создает Authenticator по загруженным настройкам
type AuthFactory func(cfg *config.Config, hardware crypto.HardwareInfo, logger *slog.Logger) Authenticator

type app struct {
	store       storage.AccountStorage
	cli         *Cli
	newAuth     AuthFactory
	openBrowser func(url string) error
	hardware    crypto.HardwareInfo
	info        BuildInfo
	flags       rootFlags
}

// NewRootCommand собирает дерево команд accswitch
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{
		info:        info,
		openBrowser: OpenBrowser,
		hardware:    crypto.SysfsInfo{},
	}
	a.newAuth = a.defaultAuth
	return a.command()
}

// defaultAuth - боевой клиент протокола и сервис авторизации поверх него
func (a *app) defaultAuth(cfg *config.Config, hardware crypto.HardwareInfo, logger *slog.Logger) Authenticator {
	client := api.NewClient(api.Config{
		UserAgent: api.UserAgent(a.info.Version),
		Timeout:   cfg.Timeout,
	}, logger)

	return auth.NewService(client, auth.Options{
		Hardware: hardware,
		Callback: callback.Config{PortFrom: cfg.PortFrom, PortTo: cfg.PortTo},
	}, logger)
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "accswitch",
		Short: "Switch between stored Minecraft accounts",
		Long: `accswitch keeps a list of Microsoft and offline Minecraft accounts.
Microsoft tokens are stored encrypted with a hardware-bound key, a password
or (insecure) a constant key, and refreshed on demand when you log in.`,
		Version:           a.info.Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "Path to config file (default: "+config.Path()+")")
	f.StringVar(&a.flags.db, "db", "", "Path to local database")
	f.StringVar(&a.flags.storage, "storage", "", "Storage backend: bolt or sqlite")
	f.StringVar(&a.flags.cipher, "cipher", "", "Cipher for new accounts: hardware, password or dummy")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&a.flags.passwordFile, "password-file", "", "Path to file containing the encryption password")

	root.AddCommand(
		a.addCommand(),
		a.loginCommand(),
		a.listCommand(),
		a.deleteCommand(),
		a.statusCommand(),
		a.versionCommand(),
	)
	return root
}

// setup загружает настройки и открывает хранилище перед любой командой
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	store, err := OpenStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.store = store

	a.cli = New(Options{
		IO:           iocli.NewStdioFrom(cmd.InOrStdin(), cmd.OutOrStdout()),
		Storage:      store,
		Auth:         a.newAuth(cfg, a.hardware, logger),
		Config:       cfg,
		Hardware:     a.hardware,
		Logger:       logger,
		OpenBrowser:  a.openBrowser,
		PasswordFile: a.flags.passwordFile,
	})
	return nil
}

// applyFlags переопределяет настройки явно заданными флагами
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := map[string]*string{
		"db":        &cfg.DBPath,
		"storage":   &cfg.Storage,
		"cipher":    &cfg.Cipher,
		"log-level": &cfg.LogLevel,
	}
	values := map[string]string{
		"db":        a.flags.db,
		"storage":   a.flags.storage,
		"cipher":    a.flags.cipher,
		"log-level": a.flags.logLevel,
	}
	for name, dst := range set {
		if flags.Changed(name) {
			*dst = values[name]
		}
	}
}

// runE оборачивает команду: хранилище закрывается и после ошибки,
// cobra в этом случае PersistentPostRun не вызывает
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if cerr := a.close(); err == nil {
			err = cerr
		}
		return err
	}
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// OpenStorage открывает хранилище аккаунтов выбранного backend
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.AccountStorage, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	switch cfg.Storage {
	case config.BackendSQLite:
		s, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return s, nil
	case config.BackendBolt:
		s, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
	}
}
