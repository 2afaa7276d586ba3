package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Формат зашифрованных данных (контракт хранения, менять только вместе с тегом стратегии):
//
//	salt (128 bytes) || iv (16 bytes) || ciphertext (AES-256-CBC, PKCS#5) || mac (32 bytes)
//
// mac = HMAC-SHA256(macKey, salt || iv || ciphertext).
// Ключи выводятся PBKDF2-HMAC-SHA512 из секрета стратегии: первые 32 байта - ключ AES, следующие 32 - ключ HMAC.
const (
	// SaltSize - размер соли PBKDF2 в байтах
	SaltSize = 128
	// IVSize - размер IV для CBC (размер блока AES)
	IVSize = aes.BlockSize
	// MACSize - размер HMAC-SHA256
	MACSize = sha256.Size
	// KeySize - размер ключа AES-256
	KeySize = 32
	// Iterations - количество итераций PBKDF2, понижать нельзя
	Iterations = 300_000
)

// ErrCryptoFailure - любая ошибка шифрования/дешифрования.
// Сообщение никогда не содержит секрет или открытые данные.
var ErrCryptoFailure = errors.New("crypto failure")

// Encrypt шифрует plaintext ключом, выведенным из секрета стратегии
func Encrypt(plaintext []byte, strategy Strategy) ([]byte, error) {
	secret, err := strategy.Secret()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to obtain %s secret: %w", ErrCryptoFailure, strategy.Tag(), err)
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: failed to generate salt: %w", ErrCryptoFailure, err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: failed to generate iv: %w", ErrCryptoFailure, err)
	}

	encKey, macKey := deriveKeys(secret, salt)

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %w", ErrCryptoFailure, err)
	}

	padded := pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	wipe(padded)

	// salt || iv || ciphertext || mac
	result := make([]byte, 0, SaltSize+IVSize+len(ciphertext)+MACSize)
	result = append(result, salt...)
	result = append(result, iv...)
	result = append(result, ciphertext...)
	result = append(result, sum(macKey, result)...)

	return result, nil
}

// Decrypt проверяет целостность и дешифрует данные, созданные Encrypt
func Decrypt(encrypted []byte, strategy Strategy) ([]byte, error) {
	// минимум: соль, IV, один блок и MAC
	if len(encrypted) < SaltSize+IVSize+aes.BlockSize+MACSize {
		return nil, fmt.Errorf("%w: encrypted data too short", ErrCryptoFailure)
	}
	body := encrypted[:len(encrypted)-MACSize]
	mac := encrypted[len(encrypted)-MACSize:]
	salt := body[:SaltSize]
	iv := body[SaltSize : SaltSize+IVSize]
	ciphertext := body[SaltSize+IVSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrCryptoFailure)
	}

	secret, err := strategy.Secret()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to obtain %s secret: %w", ErrCryptoFailure, strategy.Tag(), err)
	}

	encKey, macKey := deriveKeys(secret, salt)

	if !hmac.Equal(mac, sum(macKey, body)) {
		return nil, fmt.Errorf("%w: authentication failed or corrupted data", ErrCryptoFailure)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %w", ErrCryptoFailure, err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpad(padded, aes.BlockSize)
	if err != nil {
		wipe(padded)
		return nil, fmt.Errorf("%w: %w", ErrCryptoFailure, err)
	}

	return plaintext, nil
}

// deriveKeys выводит ключ шифрования и ключ MAC из секрета и соли
func deriveKeys(secret string, salt []byte) (encKey, macKey []byte) {
	key := pbkdf2.Key([]byte(secret), salt, Iterations, 2*KeySize, sha512.New)
	return key[:KeySize], key[KeySize:]
}

func sum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// pad дополняет данные по PKCS#5/PKCS#7
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded data length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
