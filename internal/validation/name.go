package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iudanet/accswitch/internal/autherr"
)

// NamePattern определяет допустимый формат имени игрока
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
var NamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

const (
	// MinNameLen минимальная длина имени
	MinNameLen = 3
	// MaxNameLen максимальная длина имени
	MaxNameLen = 16
)

// ValidateName проверяет имя offline аккаунта.
// Возвращает autherr.FriendlyError с причиной nameBlank, nameShort, nameLong или nameChars.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return autherr.New(autherr.ReasonNameBlank, "name cannot be blank")
	}

	length := utf8.RuneCountInString(name)
	if length < MinNameLen {
		return autherr.New(autherr.ReasonNameShort, fmt.Sprintf("name must be at least %d characters long", MinNameLen))
	}

	if length > MaxNameLen {
		return autherr.New(autherr.ReasonNameLong, fmt.Sprintf("name must not exceed %d characters", MaxNameLen))
	}

	if !NamePattern.MatchString(name) {
		return autherr.New(autherr.ReasonNameChars, "name can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// IsBlocking сообщает, запрещает ли ошибка создание аккаунта.
// Пустое имя запрещено, остальные причины - только предупреждение: игра допускает такие имена offline.
func IsBlocking(err error) bool {
	if err == nil {
		return false
	}
	return autherr.ReasonOf(err) == autherr.ReasonNameBlank
}
