package crypto

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/accswitch/internal/autherr"
)

// Теги стратегий, сохраняются вместе с зашифрованными данными
const (
	TagDummy    = "dummy"
	TagHardware = "hardware"
	TagPassword = "password"
)

// dummySecret - постоянный секрет dummy стратегии
const dummySecret = "accswitch:dummy"

// ErrPromptCancelled - пользователь не ввел пароль. Это отмена, а не ошибка.
var ErrPromptCancelled = errors.New("password prompt cancelled")

// Strategy поставляет секрет для шифра
type Strategy interface {
	// Secret возвращает строку, из которой выводится ключ
	Secret() (string, error)
	// Insecure сообщает, что стратегия не защищает данные
	Insecure() bool
	// Tag возвращает стабильный тег для хранения
	Tag() string
}

// PasswordPrompt запрашивает пароль у пользователя.
// ok == false означает, что пользователь отказался вводить пароль.
type PasswordPrompt func(ctx context.Context) (password string, ok bool, err error)

type dummyStrategy struct{}

// Dummy возвращает стратегию без защиты. Использовать только после явного согласия пользователя.
func Dummy() Strategy { return dummyStrategy{} }

func (dummyStrategy) Secret() (string, error) { return dummySecret, nil }
func (dummyStrategy) Insecure() bool          { return true }
func (dummyStrategy) Tag() string             { return TagDummy }
func (dummyStrategy) String() string          { return "DummyStrategy{}" }

type passwordStrategy struct {
	password string
}

// NewPassword создает стратегию на основе пароля пользователя
func NewPassword(password string) (Strategy, error) {
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password cannot be blank", autherr.ErrInvalidInput)
	}
	return passwordStrategy{password: password}, nil
}

func (s passwordStrategy) Secret() (string, error) { return s.password, nil }
func (passwordStrategy) Insecure() bool            { return false }
func (passwordStrategy) Tag() string               { return TagPassword }

// String не раскрывает пароль
func (passwordStrategy) String() string { return "PasswordStrategy{password=[PASSWORD]}" }

type hardwareStrategy struct {
	info HardwareInfo
}

// NewHardware создает стратегию, привязывающую данные к этой машине.
// info может быть nil, тогда используются только сигналы ОС и сети.
func NewHardware(info HardwareInfo) Strategy {
	if info == nil {
		info = NoHardwareInfo{}
	}
	return hardwareStrategy{info: info}
}

func (s hardwareStrategy) Secret() (secret string, err error) {
	// сторонний HardwareInfo не должен ронять процесс
	defer func() {
		if r := recover(); r != nil {
			secret = ""
			err = fmt.Errorf("%w: %v", autherr.ErrHardwareKey, r)
		}
	}()

	secret = hardwareID(s.info)
	if secret == "" {
		return "", autherr.ErrHardwareKey
	}
	return secret, nil
}

func (hardwareStrategy) Insecure() bool { return false }
func (hardwareStrategy) Tag() string    { return TagHardware }
func (hardwareStrategy) String() string { return "HardwareStrategy{}" }

// ReadStrategy восстанавливает стратегию по сохраненному тегу.
// Для password запрашивает пароль через prompt; отказ от ввода возвращает ErrPromptCancelled.
func ReadStrategy(ctx context.Context, tag string, info HardwareInfo, prompt PasswordPrompt) (Strategy, error) {
	switch tag {
	case TagDummy:
		return Dummy(), nil
	case TagHardware:
		return NewHardware(info), nil
	case TagPassword:
		if prompt == nil {
			return nil, ErrPromptCancelled
		}
		password, ok, err := prompt(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		if !ok {
			return nil, ErrPromptCancelled
		}
		return NewPassword(password)
	default:
		return nil, fmt.Errorf("%w: %q", autherr.ErrUnknownCipherKind, tag)
	}
}
