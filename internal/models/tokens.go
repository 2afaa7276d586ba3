package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedTokens - расшифрованные данные не являются парой токенов
var ErrMalformedTokens = errors.New("malformed token pair")

// TokenPair пара токенов, которая шифруется в SecretMaterial.
// Access - токен игрового сервиса, Refresh - refresh token провайдера.
// Существует только в памяти, в открытом виде не сохраняется и не логируется.
type TokenPair struct {
	Access  string
	Refresh string
}

// MarshalBinary кодирует пару как две строки с u16 префиксом длины
func (p TokenPair) MarshalBinary() ([]byte, error) {
	if len(p.Access) > 0xFFFF || len(p.Refresh) > 0xFFFF {
		return nil, fmt.Errorf("%w: token too long", ErrMalformedTokens)
	}
	out := make([]byte, 0, 4+len(p.Access)+len(p.Refresh))
	out = binary.BigEndian.AppendUint16(out, uint16(len(p.Access)))
	out = append(out, p.Access...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(p.Refresh)))
	out = append(out, p.Refresh...)
	return out, nil
}

// UnmarshalBinary разбирает результат MarshalBinary, лишние байты считаются ошибкой
func (p *TokenPair) UnmarshalBinary(data []byte) error {
	access, rest, err := readString(data)
	if err != nil {
		return err
	}
	refresh, rest, err := readString(rest)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: %d leftover bytes", ErrMalformedTokens, len(rest))
	}
	p.Access = access
	p.Refresh = refresh
	return nil
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("%w: truncated length", ErrMalformedTokens)
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) < 2+n {
		return "", nil, fmt.Errorf("%w: truncated value", ErrMalformedTokens)
	}
	return string(data[2 : 2+n]), data[2+n:], nil
}

// String не раскрывает токены
func (p TokenPair) String() string {
	return "TokenPair{access=[MCA], refresh=[MSR]}"
}

// Wipe затирает буфер с открытыми данными
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ProviderTokens ответ провайдера (Microsoft) на обмен кода/refresh токена
type ProviderTokens struct {
	Access  string
	Refresh string
}

// String не раскрывает токены
func (t ProviderTokens) String() string {
	return "ProviderTokens{access=[MSA], refresh=[MSR]}"
}

// XboxToken токен Xbox Live или XSTS вместе с user hash
type XboxToken struct {
	Token string
	Hash  string
}

// String не раскрывает токен
func (t XboxToken) String() string {
	return "XboxToken{token=[XBL], hash=[HASH]}"
}

// Profile игровой профиль
type Profile struct {
	Name string
	ID   uuid.UUID
}

// DeviceCode ответ на запрос device code
type DeviceCode struct {
	ExpiresAt       time.Time
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Message         string
	Interval        time.Duration
}

// String не раскрывает device code
func (d DeviceCode) String() string {
	return fmt.Sprintf("DeviceCode{user=%s, uri=%s, expires=%s, interval=%s, device=[DAC]}",
		d.UserCode, d.VerificationURI, d.ExpiresAt.Format(time.RFC3339), d.Interval)
}
