// Package social contiene los services de social login: inicio del flujo
// de autorizacion, reconciliacion de identidades y ciclo de vida de tokens.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
)

// StartService begins the authorization flow for a provider.
type StartService interface {
	// Start builds the provider authorization URL, generating and storing
	// a PKCE challenge under the state nonce when the provider uses PKCE.
	Start(ctx context.Context, provider providers.Provider) (*StartResult, error)
}

// StartResult is what the frontend needs to redirect the user.
type StartResult struct {
	AuthURL  string `json:"authUrl"`
	State    string `json:"state"`
	UsesPKCE bool   `json:"usesPKCE"`
}

// ReconcileService decides what a provider identity means for the local
// account base and applies the decision atomically.
type ReconcileService interface {
	// HandleCallback reconciles the identity returned by a provider after
	// a successful code exchange. Exactly one of the four outcomes applies:
	// re-authentication over an existing link, a brand new account, linking
	// to an existing account matched by email, or a conflict rejection.
	HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error)

	// CheckConflicts evaluates, without mutating anything, whether linking
	// the given identity to currentUserID would be rejected.
	CheckConflicts(ctx context.Context, currentUserID string, provider providers.Provider, info providers.UserInfo) (*ConflictReport, error)

	// Link attaches a provider identity to an already authenticated account.
	// It runs the same conflict checks as HandleCallback and fails with
	// *AccountLinkConflictError instead of creating anything ambiguous.
	Link(ctx context.Context, currentUserID string, in CallbackInput) (*repository.SocialAuthLink, error)
}

// CallbackInput carries the provider identity and tokens obtained by the
// transport layer. The service never talks to the provider itself.
type CallbackInput struct {
	Provider  providers.Provider
	UserInfo  providers.UserInfo
	Tokens    providers.TokenSet
	IPAddress string
	UserAgent string
}

// CallbackResult reports which branch of the reconciliation applied.
type CallbackResult struct {
	Account       *repository.Account
	IsNewUser     bool
	LinkedAccount bool

	// ConflictResolution names how an email collision was resolved.
	// Empty unless the identity was attached to an existing account.
	ConflictResolution string
}

// ResolutionLinkedToExistingEmail is the only conflict resolution today:
// the identity was attached to the account matched by email.
const ResolutionLinkedToExistingEmail = "linked_to_existing_email"

// ConflictType clasifica el tipo de conflicto detectado.
type ConflictType string

const (
	ConflictNone                     ConflictType = ""
	ConflictProviderAlreadyLinked    ConflictType = "provider_already_linked"
	ConflictEmailDifferentProviderID ConflictType = "email_different_provider_id"
)

// ConflictReport is the read-only pre-flight answer for the linking UI.
type ConflictReport struct {
	HasConflict  bool           `json:"hasConflict"`
	ConflictType ConflictType   `json:"conflictType,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// LifecycleService manages stored provider tokens after the link exists.
type LifecycleService interface {
	// RefreshLink refreshes the provider tokens of a single link and
	// persists the re-encrypted result. A token still outside the skew
	// window is left alone.
	RefreshLink(ctx context.Context, linkID string) error

	// CleanupExpired walks every link whose token expired or expires
	// within the skew window and tries to refresh it. One bad record
	// never aborts the batch.
	CleanupExpired(ctx context.Context) (*CleanupReport, error)

	// BulkUnlink removes several provider links from one account. The
	// whole batch is rejected up front if it would leave the account
	// without any authentication factor.
	BulkUnlink(ctx context.Context, userID string, provs []providers.Provider) (*UnlinkReport, error)
}

// CleanupReport summarizes a cleanup pass.
type CleanupReport struct {
	Refreshed int            `json:"refreshed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Errors    []CleanupError `json:"errors,omitempty"`
}

// CleanupError identifies the record that failed and why.
type CleanupError struct {
	LinkID   string `json:"linkId"`
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// UnlinkReport lists the per-provider result of a bulk unlink.
type UnlinkReport struct {
	Success []string          `json:"success"`
	Failed  []string          `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// AccountLinkConflictError rejects a reconciliation that would bind the
// same provider to two different remote identities on one account.
type AccountLinkConflictError struct {
	Provider providers.Provider
	Email    string
}

func (e *AccountLinkConflictError) Error() string {
	return fmt.Sprintf("cannot link %s account: the account for %s already uses a different %s identity", e.Provider, e.Email, e.Provider)
}

// Errores del ciclo de vida.
var (
	ErrLastFactor     = errors.New("cannot unlink: account would be left without any authentication factor")
	ErrNoRefreshToken = errors.New("link has no refresh token")
)

// NeedsRefresh reports whether a token expiry falls within the skew
// window. A nil expiry means the provider token never expires.
func NeedsRefresh(expiresAt *time.Time, skew time.Duration, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return now.Add(skew).After(*expiresAt)
}
