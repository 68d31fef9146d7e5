package secretbox

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := 0; i < 32; i++ {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	c, err := New(testKey(1))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	msgs := []string{
		"ya29.a0AfH6SM...",
		"hola mundo ✓ — secreto",
		"",
	}
	for _, msg := range msgs {
		ct, err := c.Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt err: %v", err)
		}
		pt, err := c.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt err: %v", err)
		}
		if pt != msg {
			t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
		}
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	t.Parallel()
	c, err := New(testKey(200))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	ct, err := c.Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected ct format")
	}
	// corromper un byte del ciphertext (base64 -> bytes -> flip -> base64)
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01 // flip
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := c.Decrypt(corrupted); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecrypt_ErrDecryptOnGarbage(t *testing.T) {
	t.Parallel()
	c, err := New(testKey(7))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	for _, bad := range []string{"", "no-sep", "a|b|c", "!!!|###"} {
		if _, err := c.Decrypt(bad); !errors.Is(err, ErrDecrypt) {
			t.Fatalf("Decrypt(%q): expected ErrDecrypt, got %v", bad, err)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()
	a, _ := New(testKey(1))
	b, _ := New(testKey(2))

	ct, err := a.Encrypt("refresh-token")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	if _, err := b.Decrypt(ct); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt with wrong key, got %v", err)
	}
}

func TestNew_RejectsBadKeyLength(t *testing.T) {
	t.Parallel()
	if _, err := New([]byte("short")); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}
}
