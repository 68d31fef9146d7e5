// Package pkce implementa Proof Key for Code Exchange (RFC 7636) para el
// flujo authorization-code de los providers sociales.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// MethodS256 es el único code_challenge_method soportado.
const MethodS256 = "S256"

const verifierBytes = 32

// Challenge es un par verifier/challenge efímero para un intento de autorización.
type Challenge struct {
	CodeVerifier        string `json:"code_verifier"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// Generate produce un verifier aleatorio de 32 bytes (base64url sin padding)
// y deriva el challenge como base64url(sha256(verifier)). Sin side effects.
func Generate() (*Challenge, error) {
	raw := make([]byte, verifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("pkce: random verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	return &Challenge{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeFor(verifier),
		CodeChallengeMethod: MethodS256,
	}, nil
}

// ChallengeFor deriva el code_challenge S256 de un verifier dado.
func ChallengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
