// Package config загружает настройки accswitch: значения по умолчанию,
// затем YAML файл, затем переменные окружения ACCSWITCH_*.
// Флаги командной строки применяются поверх в cli.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iudanet/accswitch/internal/crypto"
)

// Поддерживаемые backend хранилища
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "ACCSWITCH_"

const fileName = "config.yaml"

// ErrInvalidConfig - значение настройки вне допустимого диапазона
var ErrInvalidConfig = errors.New("invalid config")

// Config настройки клиента
type Config struct {
	Storage  string        `yaml:"storage"`   // bolt или sqlite
	DBPath   string        `yaml:"db_path"`   // путь к файлу БД
	Cipher   string        `yaml:"cipher"`    // стратегия шифрования по умолчанию
	LogLevel string        `yaml:"log_level"` // debug, info, warn, error
	PortFrom int           `yaml:"port_from"` // диапазон портов callback listener
	PortTo   int           `yaml:"port_to"`
	Timeout  time.Duration `yaml:"timeout"` // общий таймаут HTTP запросов
}

// Default возвращает настройки по умолчанию
func Default() *Config {
	return &Config{
		Storage:  BackendBolt,
		DBPath:   filepath.Join(Dir(), "accounts.db"),
		Cipher:   crypto.TagHardware,
		LogLevel: "warn",
		PortFrom: 59125,
		PortTo:   59135,
		Timeout:  15 * time.Second,
	}
}

// Dir возвращает каталог настроек: $XDG_CONFIG_HOME/accswitch или ~/.config/accswitch
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "accswitch")
}

// Path возвращает путь к файлу настроек по умолчанию
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// Load читает настройки. Отсутствующий файл не является ошибкой.
// Пустой path означает путь по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save записывает настройки в YAML файл
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}

// applyEnv переопределяет значения из окружения
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"STORAGE":   &c.Storage,
		"DB":        &c.DBPath,
		"CIPHER":    &c.Cipher,
		"LOG_LEVEL": &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT_FROM": &c.PortFrom,
		"PORT_TO":   &c.PortTo,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sTIMEOUT: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Timeout = d
	}

	return nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Storage {
	case BackendBolt, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}

	switch c.Cipher {
	case crypto.TagDummy, crypto.TagHardware, crypto.TagPassword:
	default:
		return fmt.Errorf("%w: unknown cipher %q", ErrInvalidConfig, c.Cipher)
	}

	if c.DBPath == "" {
		return fmt.Errorf("%w: empty db path", ErrInvalidConfig)
	}
	if c.PortFrom < 1 || c.PortTo > 65535 || c.PortFrom > c.PortTo {
		return fmt.Errorf("%w: bad port range %d-%d", ErrInvalidConfig, c.PortFrom, c.PortTo)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level разбирает уровень логирования
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}
