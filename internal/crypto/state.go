package crypto

import (
	"crypto/rand"
	"fmt"
	"math"
)

const (
	// StateAlphabet - символы anti-CSRF state
	StateAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.-_"
	// StateMinLength - минимальная длина state
	StateMinLength = 96
	// StateMaxLength - максимальная длина state (не включительно)
	StateMaxLength = 128
)

// маска для индексации алфавита из 65 символов
const stateMask = 127

// GenerateState генерирует новый anti-CSRF state случайной длины из [StateMinLength, StateMaxLength).
// Символы выбираются отбраковкой по маске, поэтому распределение равномерное.
func GenerateState() (string, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate state length: %w", err)
	}
	size := StateMinLength + int(b[0])%(StateMaxLength-StateMinLength)

	alphabetLen := len(StateAlphabet)
	step := int(math.Ceil(1.6 * float64(stateMask*size) / float64(alphabetLen)))

	state := make([]byte, size)
	buffer := make([]byte, step)
	for position := 0; position < size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", fmt.Errorf("failed to generate state: %w", err)
		}
		for i := 0; i < step && position < size; i++ {
			index := int(buffer[i] & stateMask)
			if index < alphabetLen {
				state[position] = StateAlphabet[index]
				position++
			}
		}
	}

	return string(state), nil
}
