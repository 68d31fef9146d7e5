// Package social define los DTOs del API de social login.
package social

import "time"

// StartResponse es la respuesta de GET /v1/auth/social/{provider}/start.
type StartResponse struct {
	AuthURL  string `json:"authUrl"`
	State    string `json:"state"`
	UsesPKCE bool   `json:"usesPKCE"`
}

// CallbackRequest son los parámetros que el provider devuelve al callback.
// Llegan por query (GET) o por form-post (Apple).
type CallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
	// User: solo Apple, JSON con nombre/email en el primer consent.
	User string `json:"user,omitempty"`
	// Error del provider cuando el usuario cancela el consent.
	Error string `json:"error,omitempty"`
}

// AccountResponse es la vista pública de la cuenta autenticada.
type AccountResponse struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	Role            string         `json:"role"`
	DisplayName     string         `json:"displayName,omitempty"`
	IsEmailVerified bool           `json:"isEmailVerified"`
	SocialLinks     []LinkResponse `json:"socialLinks"`
}

// LinkResponse es la vista pública de un social link. Nunca incluye
// tokens, ni cifrados ni en claro.
type LinkResponse struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"providerUserId"`
	ProviderEmail  string     `json:"providerEmail,omitempty"`
	ProviderName   string     `json:"providerName,omitempty"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CallbackResponse es la respuesta del callback reconciliado.
type CallbackResponse struct {
	User          AccountResponse `json:"user"`
	AccessToken   string          `json:"accessToken"`
	RefreshToken  string          `json:"refreshToken"`
	TokenType     string          `json:"tokenType"`
	ExpiresIn     int64           `json:"expiresIn"`
	IsNewUser     bool            `json:"isNewUser"`
	LinkedAccount bool            `json:"linkedAccount"`

	// ConflictResolution viene seteado solo cuando la identidad se enganchó
	// a una cuenta existente por email ("linked_to_existing_email").
	ConflictResolution string `json:"conflictResolution,omitempty"`
}

// LinkRequest vincula un provider extra a la cuenta autenticada.
type LinkRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
	User  string `json:"user,omitempty"`
}

// UnlinkRequest pide desvincular uno o más providers.
type UnlinkRequest struct {
	Providers []string `json:"providers"`
}

// UnlinkResponse reporta el resultado por provider.
type UnlinkResponse struct {
	Success []string          `json:"success"`
	Failed  []string          `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ConflictResponse es la respuesta del pre-flight de linking.
type ConflictResponse struct {
	HasConflict  bool           `json:"hasConflict"`
	ConflictType string         `json:"conflictType,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// AuditEventResponse es la vista de un evento del trail.
type AuditEventResponse struct {
	ID        string         `json:"id"`
	EventType string         `json:"eventType"`
	UserID    *string        `json:"userId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditListResponse pagina eventos del trail.
type AuditListResponse struct {
	Events []AuditEventResponse `json:"events"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// CleanupResponse reporta el resultado del sweep de tokens.
type CleanupResponse struct {
	Refreshed int                 `json:"refreshed"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	Errors    []CleanupEntryError `json:"errors,omitempty"`
}

// CleanupEntryError identifica un registro que falló durante el sweep.
type CleanupEntryError struct {
	LinkID   string `json:"linkId"`
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}
