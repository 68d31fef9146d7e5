package repository

import (
	"context"
	"time"
)

// Roles de la plataforma. PARENT es el rol base asignado a cuentas creadas
// por social login.
const (
	RoleParent = "PARENT"
	RoleChild  = "CHILD"
	RoleAdmin  = "ADMIN"
)

// Account es la vista simplificada de una cuenta que toca este core.
// Invariante: una cuenta retiene al menos un factor de autenticación
// (PasswordHash o un SocialAuthLink) en todo momento.
type Account struct {
	ID              string
	Email           string
	PasswordHash    *string // nil = sin credencial first-party
	Role            string
	DisplayName     string
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// SocialLinks viene cargado eager en GetByEmail.
	SocialLinks []SocialAuthLink
}

// HasPassword indica si la cuenta tiene credencial de password utilizable.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// CreateAccountInput contiene los datos para crear una cuenta.
type CreateAccountInput struct {
	Email           string
	PasswordHash    string
	Role            string
	DisplayName     string
	IsEmailVerified bool
}

// AccountRepository define operaciones sobre cuentas.
type AccountRepository interface {
	// GetByEmail busca una cuenta por email, con social links eager.
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID busca una cuenta por ID (con social links eager).
	GetByID(ctx context.Context, id string) (*Account, error)

	// Create crea una cuenta junto con sus settings por defecto.
	// Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreateAccountInput) (*Account, error)
}
