// Package crypto generates the random secrets used to operate the server.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// Key sizes.
const (
	// SigningKeySize is the default size in bytes of a generated token signing key.
	SigningKeySize = 32

	// MinSigningKeySize is the smallest signing key the generator will produce.
	MinSigningKeySize = 32

	// DefaultPasswordLength is the length of generated account passwords.
	DefaultPasswordLength = 20
)

// passwordChars contains characters used in generated passwords.
const passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

var (
	// ErrKeyTooShort indicates a requested signing key below MinSigningKeySize.
	ErrKeyTooShort = errors.New("signing key must be at least 32 bytes")

	// ErrInvalidLength indicates a non-positive password length.
	ErrInvalidLength = errors.New("length must be positive")
)

// GenerateSigningKey returns size random bytes hex-encoded, suitable for
// auth.jwt_secret.
func GenerateSigningKey(size int) (string, error) {
	if size < MinSigningKeySize {
		return "", ErrKeyTooShort
	}
	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate signing key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// GeneratePassword returns a random password of the given length drawn
// from an alphabet without look-alike characters.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	return generateRandomString(length, passwordChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set. Bytes that would bias
// the distribution are rejected.
func generateRandomString(length int, charset string) (string, error) {
	charsetLen := len(charset)
	limit := 256 - 256%charsetLen

	result := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(result) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			result = append(result, charset[int(b)%charsetLen])
			if len(result) == length {
				break
			}
		}
	}

	return string(result), nil
}
