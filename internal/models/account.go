package models

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// AccountKind тип учетной записи
type AccountKind string

const (
	// KindMicrosoft - аккаунт с полной цепочкой Microsoft -> Xbox -> Minecraft
	KindMicrosoft AccountKind = "microsoft"
	// KindOffline - аккаунт без секрета, только имя
	KindOffline AccountKind = "offline"
)

// maxTagLen ограничение на длину тега шифра (u16 префикс длины)
const maxTagLen = 0xFFFF

// ErrMalformedBlob - сохраненный blob не удалось разобрать
var ErrMalformedBlob = errors.New("malformed credential blob")

// AccountCredential представляет сохраненный аккаунт.
// SecretMaterial всегда хранится только в зашифрованном виде и никогда не логируется.
type AccountCredential struct {
	Name           string      `json:"name"`            // отображаемое имя, обновляется при каждом входе
	Kind           AccountKind `json:"kind"`            // microsoft или offline
	CipherTag      string      `json:"cipher_tag"`      // тег стратегии, которой зашифрован SecretMaterial
	SecretMaterial []byte      `json:"secret_material"` // зашифрованная пара токенов (nil для offline)
	ID             uuid.UUID   `json:"id"`              // UUID профиля
	Insecure       bool        `json:"insecure"`        // зашифрован dummy стратегией
}

// NewOfflineAccount создает offline аккаунт с UUID, вычисляемым из имени
// так же, как это делает игра для offline игроков
func NewOfflineAccount(name string) *AccountCredential {
	return &AccountCredential{
		ID:   OfflineUUID(name),
		Name: name,
		Kind: KindOffline,
	}
}

// OfflineUUID возвращает name-based UUID (v3) от "OfflinePlayer:<name>" без namespace
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30 // версия 3
	sum[8] = (sum[8] & 0x3f) | 0x80 // вариант RFC 4122
	return uuid.UUID(sum)
}

// HasSecret сообщает, есть ли у аккаунта зашифрованные токены
func (a *AccountCredential) HasSecret() bool {
	return len(a.SecretMaterial) > 0
}

// Blob кодирует секрет в формат хранения: u16 длина тега, тег (UTF-8), затем payload шифра
func (a *AccountCredential) Blob() ([]byte, error) {
	if !a.HasSecret() {
		return nil, nil
	}
	if a.CipherTag == "" || len(a.CipherTag) > maxTagLen {
		return nil, fmt.Errorf("invalid cipher tag length %d", len(a.CipherTag))
	}

	out := make([]byte, 2, 2+len(a.CipherTag)+len(a.SecretMaterial))
	binary.BigEndian.PutUint16(out, uint16(len(a.CipherTag)))
	out = append(out, a.CipherTag...)
	out = append(out, a.SecretMaterial...)
	return out, nil
}

// ParseBlob разбирает формат хранения обратно в тег и payload
func ParseBlob(blob []byte) (tag string, payload []byte, err error) {
	if len(blob) < 2 {
		return "", nil, fmt.Errorf("%w: too short", ErrMalformedBlob)
	}
	n := int(binary.BigEndian.Uint16(blob))
	if n == 0 || len(blob) < 2+n {
		return "", nil, fmt.Errorf("%w: bad tag length %d", ErrMalformedBlob, n)
	}
	payload = make([]byte, len(blob)-2-n)
	copy(payload, blob[2+n:])
	return string(blob[2 : 2+n]), payload, nil
}

// String не раскрывает SecretMaterial
func (a *AccountCredential) String() string {
	return fmt.Sprintf("AccountCredential{id=%s, name=%q, kind=%s, cipher=%s, data=[DATA]}", a.ID, a.Name, a.Kind, a.CipherTag)
}

// LogValue реализует slog.LogValuer, секрет в лог не попадает
func (a *AccountCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", a.ID.String()),
		slog.String("name", a.Name),
		slog.String("kind", string(a.Kind)),
		slog.String("cipher", a.CipherTag),
	)
}
