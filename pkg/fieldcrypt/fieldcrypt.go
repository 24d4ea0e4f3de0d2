// Package fieldcrypt encrypts individual record attributes before they reach
// the storage layer. Each sensitive column is encrypted on its own with a
// fresh IV rather than as part of a serialized record blob, so responses can
// decrypt only the fields they need and a leaked pair exposes a single value.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"

	dErrors "lingkod/pkg/domain-errors"
)

// kdfSalt is deliberately static: the process-wide secret is the only input
// that must stay private, and a fixed salt keeps derivation deterministic so
// every replica can decrypt every field.
const kdfSalt = "lingkod/fieldcrypt/v1"

// Argon2id parameters. Derivation runs once per process, so the memory-hard
// cost is paid at startup, not per field.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	kdfKeyLen  = 64 // 32 bytes AES-256 + 32 bytes HMAC-SHA256
)

const macSize = sha256.Size

// EncryptedField is the ciphertext+IV column pair embedded in records that
// hold sensitive data. A field is either fully populated or fully absent;
// a half-populated pair is a persistence bug.
type EncryptedField struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
}

// Present reports whether the field holds an encrypted value.
func (f EncryptedField) Present() bool {
	return f.Ciphertext != "" && f.IV != ""
}

// Valid reports whether the pair is consistent: both columns set, or both
// empty. Callers treat an empty pair as "never encrypted", not as an error.
func (f EncryptedField) Valid() bool {
	return (f.Ciphertext == "") == (f.IV == "")
}

// Cipher performs field-level encryption with a key derived once at
// construction. The derived key is immutable afterwards, so a single Cipher
// is safe for concurrent use across requests.
type Cipher struct {
	aesKey []byte
	macKey []byte
}

// New derives the field-encryption keys from the process-wide secret.
// A missing secret is a startup error: silently encrypting under a wrong or
// empty key would corrupt every sensitive column written afterwards.
func New(secret string) (*Cipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, dErrors.New(dErrors.CodeEncryption, "field encryption secret is not configured")
	}
	derived := argon2.IDKey([]byte(secret), []byte(kdfSalt), kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	return &Cipher{
		aesKey: derived[:32],
		macKey: derived[32:],
	}, nil
}

// Encrypt turns a plaintext string into a hex ciphertext+IV pair. The IV is
// freshly random on every call, so encrypting the same value twice never
// yields the same pair. The ciphertext is AES-256-CBC with PKCS#7 padding,
// followed by an HMAC-SHA256 tag over iv||ciphertext so Decrypt can reject
// tampered input instead of returning garbage.
func (c *Cipher) Encrypt(plaintext string) (EncryptedField, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedField{}, dErrors.Wrap(err, dErrors.CodeEncryption, "generate iv")
	}

	block, err := aes.NewCipher(c.aesKey)
	if err != nil {
		return EncryptedField{}, dErrors.Wrap(err, dErrors.CodeEncryption, "init cipher")
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ct)
	ct = mac.Sum(ct)

	return EncryptedField{
		Ciphertext: hex.EncodeToString(ct),
		IV:         hex.EncodeToString(iv),
	}, nil
}

// Decrypt reverses Encrypt. Any malformed, mismatched, or tampered input
// fails with a decryption error; no partial plaintext is ever returned.
// Callers must treat the failure as hard — display layers may substitute a
// sentinel, but nothing downstream may mistake the output for real data.
func (c *Cipher) Decrypt(cipherHex, ivHex string) (string, error) {
	raw, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryption, "ciphertext is not valid hex")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryption, "iv is not valid hex")
	}
	if len(iv) != aes.BlockSize {
		return "", dErrors.Newf(dErrors.CodeDecryption, "iv must be %d bytes", aes.BlockSize)
	}
	if len(raw) < macSize+aes.BlockSize || (len(raw)-macSize)%aes.BlockSize != 0 {
		return "", dErrors.New(dErrors.CodeDecryption, "ciphertext has invalid length")
	}

	ct, tag := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ct)
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return "", dErrors.New(dErrors.CodeDecryption, "ciphertext authentication failed")
	}

	block, err := aes.NewCipher(c.aesKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryption, "init cipher")
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryption, "invalid padding")
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, dErrors.New(dErrors.CodeDecryption, "data is not block aligned")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize {
		return nil, dErrors.New(dErrors.CodeDecryption, "padding byte out of range")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, dErrors.New(dErrors.CodeDecryption, "padding bytes inconsistent")
		}
	}
	return data[:len(data)-pad], nil
}
