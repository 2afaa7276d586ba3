package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/iudanet/accswitch/internal/client/auth"
	"github.com/iudanet/accswitch/internal/client/iocli"
	"github.com/iudanet/accswitch/internal/client/storage"
	"github.com/iudanet/accswitch/internal/config"
	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
)

// PasswordEnv переменная окружения с паролем шифрования
const PasswordEnv = config.EnvPrefix + "PASSWORD"

// ErrCancelled - пользователь прервал операцию
var ErrCancelled = errors.New("cancelled")

// Authenticator запускает добавление аккаунта и вход, реализуется auth.Service
type Authenticator interface {
	CreateBrowser(ctx context.Context, strategy crypto.Strategy, h auth.CreateHandler) (*auth.Flow, error)
	CreateDevice(ctx context.Context, strategy crypto.Strategy, h auth.CreateHandler) (*auth.Flow, error)
	Login(ctx context.Context, acc *models.AccountCredential, prompt crypto.PasswordPrompt, h auth.LoginHandler) (*auth.Flow, error)
}

// Options зависимости CLI
type Options struct {
	IO           iocli.IO
	Storage      storage.AccountStorage
	Auth         Authenticator
	Config       *config.Config
	Hardware     crypto.HardwareInfo
	Logger       *slog.Logger
	OpenBrowser  func(url string) error // nil - адрес только печатается
	Getenv       func(key string) string
	PasswordFile string
}

type Cli struct {
	io           iocli.IO
	store        storage.AccountStorage
	auth         Authenticator
	cfg          *config.Config
	hardware     crypto.HardwareInfo
	logger       *slog.Logger
	openBrowser  func(url string) error
	getenv       func(key string) string
	passwordFile string
}

func New(opts Options) *Cli {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Hardware == nil {
		opts.Hardware = crypto.NoHardwareInfo{}
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	return &Cli{
		io:           opts.IO,
		store:        opts.Storage,
		auth:         opts.Auth,
		cfg:          opts.Config,
		hardware:     opts.Hardware,
		logger:       opts.Logger.With("component", "cli"),
		openBrowser:  opts.OpenBrowser,
		getenv:       opts.Getenv,
		passwordFile: opts.PasswordFile,
	}
}

// presetPassword reads password from non-interactive sources with priority:
// 1. Environment variable ACCSWITCH_PASSWORD
// 2. File given by --password-file
// ok == false means no source is configured and the user has to be asked.
func (c *Cli) presetPassword() (string, bool, error) {
	if pw := c.getenv(PasswordEnv); pw != "" {
		return pw, true, nil
	}

	if c.passwordFile != "" {
		content, err := os.ReadFile(c.passwordFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		pw := strings.TrimSpace(string(content))
		if pw == "" {
			return "", false, fmt.Errorf("password file is empty")
		}
		return pw, true, nil
	}

	return "", false, nil
}

// newPassword возвращает пароль для шифрования нового аккаунта
func (c *Cli) newPassword() (string, error) {
	pw, ok, err := c.presetPassword()
	if err != nil || ok {
		return pw, err
	}

	pw, ok, err = iocli.NewPassword(c.io)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !ok {
		return "", ErrCancelled
	}
	return pw, nil
}

// passwordPrompt возвращает prompt для расшифровки сохраненного аккаунта
func (c *Cli) passwordPrompt() crypto.PasswordPrompt {
	interactive := iocli.PasswordPrompt(c.io, "Password: ")
	return func(ctx context.Context) (string, bool, error) {
		pw, ok, err := c.presetPassword()
		if err != nil || ok {
			return pw, ok, err
		}
		return interactive(ctx)
	}
}

// strategy создает стратегию шифрования нового аккаунта по тегу
func (c *Cli) strategy(tag string) (crypto.Strategy, error) {
	switch tag {
	case crypto.TagHardware:
		return crypto.NewHardware(c.hardware), nil
	case crypto.TagDummy:
		return crypto.Dummy(), nil
	case crypto.TagPassword:
		pw, err := c.newPassword()
		if err != nil {
			return nil, err
		}
		return crypto.NewPassword(pw)
	default:
		return nil, fmt.Errorf("unknown cipher %q. Use: %s, %s or %s", tag, crypto.TagHardware, crypto.TagPassword, crypto.TagDummy)
	}
}
