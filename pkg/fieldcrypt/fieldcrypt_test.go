package fieldcrypt

import (
	"crypto/aes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lingkod/pkg/domain-errors"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New("unit-test-secret")
	require.NoError(t, err)
	return c
}

func TestNewRejectsMissingSecret(t *testing.T) {
	for _, secret := range []string{"", "   ", "\t\n"} {
		_, err := New(secret)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeEncryption, dErrors.CodeOf(err))
	}
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	cases := []string{
		"",
		"Maria Clara",
		"Blk 4 Lot 7, Barangay San Isidro",
		"1990-02-03",
		"ñÑ áéíóú 李",
		strings.Repeat("x", 1000),
		"line1\nline2\x01\x02",
	}
	for _, plain := range cases {
		field, err := c.Encrypt(plain)
		require.NoError(t, err)
		require.True(t, field.Present())

		got, err := c.Decrypt(field.Ciphertext, field.IV)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncryptMariaClaraShape(t *testing.T) {
	c := newTestCipher(t)

	field, err := c.Encrypt("Maria Clara")
	require.NoError(t, err)

	iv, err := hex.DecodeString(field.IV)
	require.NoError(t, err)
	assert.Len(t, iv, aes.BlockSize)

	raw, err := hex.DecodeString(field.Ciphertext)
	require.NoError(t, err)
	assert.Zero(t, len(raw)%aes.BlockSize, "hex-decoded ciphertext must be block aligned")

	got, err := c.Decrypt(field.Ciphertext, field.IV)
	require.NoError(t, err)
	assert.Equal(t, "Maria Clara", got)
}

func TestIVIsFreshPerCall(t *testing.T) {
	c := newTestCipher(t)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		field, err := c.Encrypt("same plaintext every time")
		require.NoError(t, err)
		_, dup := seen[field.IV]
		require.False(t, dup, "iv reused on iteration %d", i)
		seen[field.IV] = struct{}{}
	}
}

func TestTamperedCiphertextFails(t *testing.T) {
	c := newTestCipher(t)

	field, err := c.Encrypt("Crisostomo Ibarra")
	require.NoError(t, err)

	// Flip every hex character in turn; decryption must fail every time,
	// including flips inside non-final blocks that raw CBC would let through.
	for i := 0; i < len(field.Ciphertext); i++ {
		mutated := []byte(field.Ciphertext)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		_, err := c.Decrypt(string(mutated), field.IV)
		require.Error(t, err, "flip at hex position %d", i)
		assert.Equal(t, dErrors.CodeDecryption, dErrors.CodeOf(err))
	}
}

func TestTamperedIVFails(t *testing.T) {
	c := newTestCipher(t)

	field, err := c.Encrypt("Padre Damaso")
	require.NoError(t, err)

	mutated := []byte(field.IV)
	if mutated[0] == 'f' {
		mutated[0] = 'e'
	} else {
		mutated[0] = 'f'
	}
	_, err = c.Decrypt(field.Ciphertext, string(mutated))
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeDecryption, dErrors.CodeOf(err))
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	c := newTestCipher(t)

	cases := []struct {
		name       string
		ciphertext string
		iv         string
	}{
		{"not hex ciphertext", "zzzz", strings.Repeat("00", 16)},
		{"not hex iv", strings.Repeat("00", 48), "zz"},
		{"short iv", strings.Repeat("00", 48), "0011"},
		{"short ciphertext", "0011", strings.Repeat("00", 16)},
		{"misaligned ciphertext", strings.Repeat("00", 49), strings.Repeat("00", 16)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decrypt(tc.ciphertext, tc.iv)
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeDecryption, dErrors.CodeOf(err))
		})
	}
}

func TestChangedSecretFailsDecryption(t *testing.T) {
	c1, err := New("secret-before-rotation")
	require.NoError(t, err)
	c2, err := New("secret-after-rotation")
	require.NoError(t, err)

	field, err := c1.Encrypt("Sisa")
	require.NoError(t, err)

	_, err = c2.Decrypt(field.Ciphertext, field.IV)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeDecryption, dErrors.CodeOf(err))
}

func TestEncryptedFieldValidity(t *testing.T) {
	assert.True(t, EncryptedField{}.Valid())
	assert.False(t, EncryptedField{}.Present())

	full := EncryptedField{Ciphertext: "aa", IV: "bb"}
	assert.True(t, full.Valid())
	assert.True(t, full.Present())

	assert.False(t, EncryptedField{Ciphertext: "aa"}.Valid())
	assert.False(t, EncryptedField{IV: "bb"}.Valid())
}
