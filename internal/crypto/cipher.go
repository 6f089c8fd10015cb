// Package crypto provides symmetric encryption for tenant credentials and
// cookie payloads.
package crypto

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt is returned when a token fails verification or decryption.
var ErrDecrypt = errors.New("decryption failed")

// Cipher encrypts and decrypts secrets with Fernet. The first key signs
// new tokens; every key is tried on verification, so old keys can stay in
// the list during rotation.
type Cipher struct {
	keys []*fernet.Key
}

// NewCipher creates a Cipher from base64-encoded Fernet keys.
func NewCipher(encodedKeys []string) (*Cipher, error) {
	if len(encodedKeys) == 0 {
		return nil, errors.New("at least one encryption key is required")
	}

	keys := make([]*fernet.Key, 0, len(encodedKeys))
	for i, s := range encodedKeys {
		key, err := fernet.DecodeKey(s)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key at index %d: %w", i, err)
		}
		keys = append(keys, key)
	}

	return &Cipher{keys: keys}, nil
}

// Encrypt returns a Fernet token for the plaintext.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	tok, err := fernet.EncryptAndSign(plaintext, c.keys[0])
	if err != nil {
		return "", err
	}
	return string(tok), nil
}

// Decrypt verifies and decrypts a Fernet token. Tokens do not expire;
// lifetime is governed by whatever the token protects (e.g. the JWT
// inside a cookie payload).
func (c *Cipher) Decrypt(token string) ([]byte, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, c.keys)
	if msg == nil {
		return nil, ErrDecrypt
	}
	return msg, nil
}

// GenerateKey returns a new base64-encoded Fernet key.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", err
	}
	return key.Encode(), nil
}
