package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
)

type linkRepo struct {
	q querier
}

const linkCols = `id, user_id, provider, provider_user_id, provider_email, provider_name,
	access_token_enc, refresh_token_enc, token_expires_at, created_at, updated_at`

func scanLink(row interface{ Scan(...any) error }) (*repository.SocialAuthLink, error) {
	var l repository.SocialAuthLink
	err := row.Scan(
		&l.ID, &l.UserID, &l.Provider, &l.ProviderUserID, &l.ProviderEmail, &l.ProviderName,
		&l.AccessTokenEncrypted, &l.RefreshTokenEncrypted, &l.TokenExpiresAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &l, nil
}

func (r *linkRepo) GetByID(ctx context.Context, id string) (*repository.SocialAuthLink, error) {
	row := r.q.QueryRow(ctx, `SELECT `+linkCols+` FROM social_auth_link WHERE id = $1`, id)
	return scanLink(row)
}

func (r *linkRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*repository.SocialAuthLink, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+linkCols+` FROM social_auth_link WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	)
	return scanLink(row)
}

func (r *linkRepo) list(ctx context.Context, query string, args ...any) ([]repository.SocialAuthLink, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []repository.SocialAuthLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *linkRepo) ListByAccount(ctx context.Context, userID string) ([]repository.SocialAuthLink, error) {
	return r.list(ctx,
		`SELECT `+linkCols+` FROM social_auth_link WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
}

func (r *linkRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]repository.SocialAuthLink, error) {
	return r.list(ctx,
		`SELECT `+linkCols+` FROM social_auth_link WHERE token_expires_at IS NOT NULL AND token_expires_at < $1 ORDER BY token_expires_at`,
		cutoff,
	)
}

func (r *linkRepo) Create(ctx context.Context, input repository.CreateSocialLinkInput) (*repository.SocialAuthLink, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.q.Exec(ctx, `
		INSERT INTO social_auth_link
			(id, user_id, provider, provider_user_id, provider_email, provider_name,
			 access_token_enc, refresh_token_enc, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		id, input.UserID, input.Provider, input.ProviderUserID, input.ProviderEmail, input.ProviderName,
		input.AccessTokenEncrypted, input.RefreshTokenEncrypted, input.TokenExpiresAt, now,
	)
	if err != nil {
		return nil, mapPgError(err)
	}

	return &repository.SocialAuthLink{
		ID:                    id,
		UserID:                input.UserID,
		Provider:              input.Provider,
		ProviderUserID:        input.ProviderUserID,
		ProviderEmail:         input.ProviderEmail,
		ProviderName:          input.ProviderName,
		AccessTokenEncrypted:  input.AccessTokenEncrypted,
		RefreshTokenEncrypted: input.RefreshTokenEncrypted,
		TokenExpiresAt:        input.TokenExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func (r *linkRepo) UpdateTokens(ctx context.Context, id string, input repository.UpdateLinkTokensInput) error {
	// refresh_token_enc NULL en el input retiene el valor anterior:
	// hay providers que rotan el refresh token y otros que no.
	tag, err := r.q.Exec(ctx, `
		UPDATE social_auth_link
		SET access_token_enc = $2,
		    refresh_token_enc = COALESCE($3, refresh_token_enc),
		    token_expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1`,
		id, input.AccessTokenEncrypted, input.RefreshTokenEncrypted, input.TokenExpiresAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *linkRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM social_auth_link WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
