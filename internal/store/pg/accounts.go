package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
)

type accountRepo struct {
	q querier
}

const accountCols = `id, email, password_hash, role, display_name, is_email_verified, created_at, updated_at`

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	acc, err := r.scanOne(ctx, `SELECT `+accountCols+` FROM account WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	acc, err := r.scanOne(ctx, `SELECT `+accountCols+` FROM account WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *accountRepo) scanOne(ctx context.Context, query string, arg any) (*repository.Account, error) {
	var acc repository.Account
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.DisplayName,
		&acc.IsEmailVerified, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &acc, nil
}

func (r *accountRepo) loadLinks(ctx context.Context, acc *repository.Account) error {
	links, err := (&linkRepo{q: r.q}).ListByAccount(ctx, acc.ID)
	if err != nil {
		return err
	}
	acc.SocialLinks = links
	return nil
}

func (r *accountRepo) Create(ctx context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var hash *string
	if input.PasswordHash != "" {
		hash = &input.PasswordHash
	}
	role := input.Role
	if role == "" {
		role = repository.RoleParent
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO account (id, email, password_hash, role, display_name, is_email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, input.Email, hash, role, input.DisplayName, input.IsEmailVerified, now,
	)
	if err != nil {
		return nil, mapPgError(err)
	}

	// settings por defecto de la plataforma
	_, err = r.q.Exec(ctx, `
		INSERT INTO account_settings (user_id, created_at, updated_at)
		VALUES ($1, $2, $2)`,
		id, now,
	)
	if err != nil {
		return nil, mapPgError(err)
	}

	return &repository.Account{
		ID:              id,
		Email:           input.Email,
		PasswordHash:    hash,
		Role:            role,
		DisplayName:     input.DisplayName,
		IsEmailVerified: input.IsEmailVerified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
