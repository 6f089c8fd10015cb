package crypto

import (
	"errors"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCipher([]string{key})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	tok, err := c.Encrypt([]byte("greythr-password"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if tok == "greythr-password" {
		t.Fatal("token equals plaintext")
	}

	got, err := c.Decrypt(tok)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(got) != "greythr-password" {
		t.Errorf("expected round trip, got %q", string(got))
	}
}

func TestCipher_TamperedToken(t *testing.T) {
	c := newTestCipher(t)

	tok, err := c.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	tampered := []byte(tok)
	tampered[len(tampered)/2] ^= 0x01

	if _, err := c.Decrypt(string(tampered)); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt, got %v", err)
	}
}

func TestCipher_WrongKey(t *testing.T) {
	c1 := newTestCipher(t)
	c2 := newTestCipher(t)

	tok, err := c1.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c2.Decrypt(tok); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt with wrong key, got %v", err)
	}
}

func TestCipher_KeyRotation(t *testing.T) {
	oldKey, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	newKey, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	oldCipher, err := NewCipher([]string{oldKey})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := oldCipher.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	// New signing key first, old key kept for verification.
	rotated, err := NewCipher([]string{newKey, oldKey})
	if err != nil {
		t.Fatal(err)
	}
	got, err := rotated.Decrypt(tok)
	if err != nil {
		t.Fatalf("rotated cipher should decrypt old tokens: %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("expected secret, got %q", got)
	}
}

func TestNewCipher_Invalid(t *testing.T) {
	if _, err := NewCipher(nil); err == nil {
		t.Error("expected error for empty key list")
	}
	if _, err := NewCipher([]string{"not-a-key"}); err == nil {
		t.Error("expected error for malformed key")
	}
}
