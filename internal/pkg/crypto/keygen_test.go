package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSigningKey(t *testing.T) {
	key, err := GenerateSigningKey(SigningKeySize)
	require.NoError(t, err)
	assert.Len(t, key, SigningKeySize*2)

	raw, err := hex.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, SigningKeySize)

	other, err := GenerateSigningKey(SigningKeySize)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestGenerateSigningKey_TooShort(t *testing.T) {
	_, err := GenerateSigningKey(16)
	assert.ErrorIs(t, err, ErrKeyTooShort)
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(DefaultPasswordLength)
	require.NoError(t, err)
	assert.Len(t, pw, DefaultPasswordLength)
	for _, c := range pw {
		assert.True(t, strings.ContainsRune(passwordChars, c), "unexpected character %q", c)
	}

	_, err = GeneratePassword(0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
