// Package providers encapsulates the per-provider wire differences of the
// social identity sources (Google, Apple, Instagram) behind a single
// registry: authorize-URL construction, code exchange, user-info retrieval
// and token refresh.
package providers

import (
	"errors"
	"fmt"
	"time"
)

// Provider identifies a social identity source.
type Provider string

const (
	Google    Provider = "google"
	Apple     Provider = "apple"
	Instagram Provider = "instagram"
)

// ErrUnsupportedProvider indicates an unknown provider key.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ErrUserInfoUnsupported indicates the provider has no user-info endpoint.
// Apple only delivers identity claims in the initial form-post callback.
var ErrUserInfoUnsupported = errors.New("provider does not expose a user-info endpoint")

// Parse validates a provider key from a request path.
func Parse(s string) (Provider, error) {
	switch Provider(s) {
	case Google, Apple, Instagram:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}

// TokenSet is the normalized result of a code exchange or refresh.
// ExpiresAt is absolute (computed from expires_in at call time); nil means
// the provider never expires this token.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time

	// IDToken only comes back from providers that speak OIDC on the
	// token endpoint (Apple delivers identity claims exclusively here).
	IDToken string
}

// UserInfo is the normalized profile shape across providers.
type UserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// TokenExchangeError wraps a provider-side failure during exchange or refresh.
// Error() is deliberately generic; raw provider detail is only surfaced via
// Detail for non-production diagnostics.
type TokenExchangeError struct {
	Provider Provider
	Op       string // "exchange" | "refresh"
	Status   int    // 0 on network error
	Detail   string
	Err      error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token %s failed", e.Provider, e.Op)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// UserInfoError wraps a provider-side failure during profile retrieval.
type UserInfoError struct {
	Provider Provider
	Status   int
	Detail   string
	Err      error
}

func (e *UserInfoError) Error() string {
	return fmt.Sprintf("%s user-info fetch failed", e.Provider)
}

func (e *UserInfoError) Unwrap() error { return e.Err }
