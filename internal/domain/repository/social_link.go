package repository

import (
	"context"
	"time"
)

// SocialAuthLink vincula una cuenta con una identidad de provider.
// Invariante: el par (Provider, ProviderUserID) es globalmente único —
// el constraint vive en el schema, no solo en código.
type SocialAuthLink struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	ProviderEmail  string
	ProviderName   string

	// Tokens del provider, siempre cifrados en reposo (secretbox).
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateSocialLinkInput contiene los datos para crear un link.
type CreateSocialLinkInput struct {
	UserID                string
	Provider              string
	ProviderUserID        string
	ProviderEmail         string
	ProviderName          string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time
}

// UpdateLinkTokensInput actualiza los tokens de un link tras re-login o
// refresh. RefreshTokenEncrypted nil retiene el refresh token anterior
// (hay providers que no rotan).
type UpdateLinkTokensInput struct {
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time
}

// SocialLinkRepository define operaciones sobre social auth links.
type SocialLinkRepository interface {
	// GetByID busca un link por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*SocialAuthLink, error)

	// GetByProvider busca el link por (provider, providerUserID).
	// Retorna ErrNotFound si no existe.
	GetByProvider(ctx context.Context, provider, providerUserID string) (*SocialAuthLink, error)

	// ListByAccount lista los links de una cuenta.
	ListByAccount(ctx context.Context, userID string) ([]SocialAuthLink, error)

	// ListExpired lista links cuyo token_expires_at es anterior al corte.
	ListExpired(ctx context.Context, cutoff time.Time) ([]SocialAuthLink, error)

	// Create crea un link. Retorna ErrConflict si (provider, providerUserID)
	// ya está reclamado.
	Create(ctx context.Context, input CreateSocialLinkInput) (*SocialAuthLink, error)

	// UpdateTokens persiste tokens nuevos en un link existente.
	UpdateTokens(ctx context.Context, id string, input UpdateLinkTokensInput) error

	// Delete elimina un link por ID. Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error
}
