// Package secretbox cifra secretos en reposo (tokens de providers) con
// AES-256-GCM. Formato: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// EnvKey es la variable de entorno con la clave maestra (base64, 32 bytes).
	EnvKey = "SECRETBOX_MASTER_KEY"

	nonceSizeGCM      = 12  // AES-GCM nonce recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	// ErrKeyMissing indica que no hay clave maestra configurada.
	ErrKeyMissing = errors.New("secretbox: master key not set")

	// ErrKeyInvalid indica que la clave no decodifica a 32 bytes.
	ErrKeyInvalid = errors.New("secretbox: invalid master key")

	// ErrDecrypt indica ciphertext inutilizable (corrupto o clave equivocada).
	// Los callers deben tratar el link como roto y pedir re-vinculación,
	// nunca reintentar en loop.
	ErrDecrypt = errors.New("secretbox: decryption failed")
)

// Cipher cifra y descifra con una clave fija. Es seguro para uso concurrente.
type Cipher struct {
	aead cipher.AEAD
}

// New crea un Cipher a partir de una clave cruda de 32 bytes.
func New(key []byte) (*Cipher, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeyInvalid, len(key), requiredKeyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: cipher.NewGCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewFromEnv carga la clave maestra desde SECRETBOX_MASTER_KEY (base64).
// Generar una con: openssl rand -base64 32
func NewFromEnv() (*Cipher, error) {
	kb64 := strings.TrimSpace(os.Getenv(EnvKey))
	if kb64 == "" {
		return nil, ErrKeyMissing
	}
	k, err := base64.StdEncoding.DecodeString(kb64)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrKeyInvalid, EnvKey, err)
	}
	return New(k)
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func (c *Cipher) Encrypt(plainText string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}

	ct := c.aead.Seal(nil, nonce, []byte(plainText), nil)

	nonceB64 := base64.StdEncoding.EncodeToString(nonce)
	ctB64 := base64.StdEncoding.EncodeToString(ct)
	return nonceB64 + sep + ctB64, nil
}

// Decrypt recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
// Cualquier fallo de formato o autenticación se reporta como ErrDecrypt.
func (c *Cipher) Decrypt(cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: bad format, want base64(nonce)|base64(ciphertext)", ErrDecrypt)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode nonce: %v", ErrDecrypt, err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrDecrypt, err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("%w: nonce size %d, want %d", ErrDecrypt, len(nonce), nonceSizeGCM)
	}

	pt, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: gcm auth", ErrDecrypt)
	}
	return string(pt), nil
}
