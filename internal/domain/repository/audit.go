package repository

import (
	"context"
	"time"
)

// Tipos de evento del audit trail de seguridad.
const (
	EventAuthentication = "AUTHENTICATION"
	EventAccountChange  = "ACCOUNT_CHANGE"
	EventAccessControl  = "ACCESS_CONTROL"
)

// AuditEvent es un evento de seguridad append-only. Este core nunca lo
// muta ni lo borra; solo lo consulta read-only.
type AuditEvent struct {
	ID        string
	EventType string
	UserID    *string
	Details   map[string]any
	IPAddress string
	UserAgent string
	Timestamp time.Time
}

// AuditFilter filtra la consulta de eventos.
type AuditFilter struct {
	Provider  string
	EventType string
	From      *time.Time
	To        *time.Time
	Limit     int // default 50, max 200
	Offset    int
}

// AuditRepository define el trail append-only.
type AuditRepository interface {
	// Append agrega un evento. Nunca actualiza ni borra.
	Append(ctx context.Context, ev AuditEvent) error

	// Query retorna eventos paginados y el total sin paginar.
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, int, error)
}
