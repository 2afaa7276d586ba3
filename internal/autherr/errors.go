package autherr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Reason - стабильный код причины для локализованного показа пользователю
type Reason string

// Причины, которые пользователь может исправить сам
const (
	ReasonCancel          Reason = "cancel"        // пользователь отказал в доступе
	ReasonNoProfile       Reason = "noProfile"     // к аккаунту не привязан игровой профиль
	ReasonNoXbox          Reason = "noXbox"        // нет аккаунта Xbox
	ReasonXboxUnavailable Reason = "xboxAvailable" // Xbox Live недоступен в регионе
	ReasonXboxAdult       Reason = "xboxAdult"     // аккаунт ребенка без разрешения взрослого
	ReasonConnect         Reason = "connect"       // нет соединения с сервером
	ReasonQuery           Reason = "query"         // порт открыт напрямую, без параметров
	ReasonMalformed       Reason = "malformed"     // callback не соответствует ожидаемому формату
	ReasonExpired         Reason = "expired"       // истек срок действия device code
	ReasonNameBlank       Reason = "nameBlank"
	ReasonNameShort       Reason = "nameShort"
	ReasonNameLong        Reason = "nameLong"
	ReasonNameChars       Reason = "nameChars"
	ReasonUnknown         Reason = "unknown" // все остальное
)

// Ошибки протокола и окружения
var (
	// ErrStateMismatch - state из callback не совпал со state сессии
	ErrStateMismatch = errors.New("anti-CSRF state mismatch")

	// ErrUnexpectedStatus - сервер вернул неожиданный HTTP статус
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrMalformedResponse - ответ не является ожидаемым JSON
	ErrMalformedResponse = errors.New("malformed response")

	// ErrHashMismatch - user hash XBL и XSTS не совпадают
	ErrHashMismatch = errors.New("mismatching XBL and XSTS user hashes")

	// ErrUnknownCipherKind - неизвестный тег шифра в сохраненных данных
	ErrUnknownCipherKind = errors.New("unknown cipher kind")

	// ErrNoPortAvailable - все порты из разрешенного диапазона заняты
	ErrNoPortAvailable = errors.New("no port available")

	// ErrHardwareKey - не удалось собрать ни одного сигнала для аппаратного ключа
	ErrHardwareKey = errors.New("unable to derive hardware key")

	// ErrInvalidInput - некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthorizationPending - пользователь еще не подтвердил вход на другом устройстве
	ErrAuthorizationPending = errors.New("authorization pending")
)

// FriendlyError - ошибка с кодом причины, которую пользователь может исправить
type FriendlyError struct {
	Err    error
	Msg    string
	Reason Reason
}

// New создает FriendlyError без вложенной причины
func New(reason Reason, msg string) *FriendlyError {
	return &FriendlyError{Reason: reason, Msg: msg}
}

// Wrap создает FriendlyError поверх err
func Wrap(reason Reason, msg string, err error) *FriendlyError {
	return &FriendlyError{Reason: reason, Msg: msg, Err: err}
}

func (e *FriendlyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Msg, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %v", e.Msg, e.Reason, e.Err)
}

func (e *FriendlyError) Unwrap() error {
	return e.Err
}

// IsFriendly проверяет, есть ли в цепочке err дружественная ошибка
func IsFriendly(err error) bool {
	var fe *FriendlyError
	return errors.As(err, &fe)
}

// ReasonOf определяет причину для показа пользователю.
// Первая FriendlyError в цепочке побеждает, затем сетевые ошибки, иначе ReasonUnknown.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}

	var fe *FriendlyError
	if errors.As(err, &fe) {
		return fe.Reason
	}

	if IsNetwork(err) {
		return ReasonConnect
	}

	return ReasonUnknown
}

// IsNetwork проверяет, относится ли ошибка к классу "нет сети":
// DNS, отказ в соединении, нет маршрута, таймаут.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
