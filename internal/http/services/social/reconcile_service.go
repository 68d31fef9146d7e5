package social

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/audit"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
)

// ReconcileDeps contains dependencies for the reconcile service.
type ReconcileDeps struct {
	DA     repository.DataAccess
	Cipher *secretbox.Cipher
	Audit  *audit.Recorder
}

type reconcileService struct {
	da     repository.DataAccess
	cipher *secretbox.Cipher
	audit  *audit.Recorder
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(d ReconcileDeps) ReconcileService {
	return &reconcileService{da: d.DA, cipher: d.Cipher, audit: d.Audit}
}

// outcome etiqueta la rama de reconciliación que aplicó. El switch sobre
// este tag es exhaustivo; agregar una rama nueva obliga a decidir su
// handling acá y no en un if colgado.
type outcome int

const (
	outcomeReauthenticated outcome = iota
	outcomeNewAccount
	outcomeLinkedByEmail
	outcomeConflict
)

func (s *reconcileService) HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.reconcile"),
		logger.Provider(string(in.Provider)),
	)

	encTokens, err := s.encryptTokens(in.Tokens)
	if err != nil {
		return nil, fmt.Errorf("encrypt provider tokens: %w", err)
	}

	var res *CallbackResult
	txErr := s.da.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		o, acc, err := s.classify(ctx, r, in)
		if err != nil {
			return err
		}

		switch o {
		case outcomeReauthenticated:
			link := findLink(acc, string(in.Provider), in.UserInfo.ID)
			if link == nil {
				return fmt.Errorf("reauth: link disappeared for account %s", acc.ID)
			}
			if err := r.Links.UpdateTokens(ctx, link.ID, repository.UpdateLinkTokensInput{
				AccessTokenEncrypted:  encTokens.access,
				RefreshTokenEncrypted: encTokens.refresh,
				TokenExpiresAt:        in.Tokens.ExpiresAt,
			}); err != nil {
				return err
			}
			// Re-fetch para que el caller vea los tokens ya rotados.
			fresh, err := r.Accounts.GetByID(ctx, acc.ID)
			if err != nil {
				return err
			}
			res = &CallbackResult{Account: fresh}
			return nil

		case outcomeNewAccount:
			created, err := s.createAccountWithLink(ctx, r, in, encTokens)
			if err != nil {
				return err
			}
			res = &CallbackResult{Account: created, IsNewUser: true}
			return nil

		case outcomeLinkedByEmail:
			if _, err := r.Links.Create(ctx, s.linkInput(acc.ID, in, encTokens)); err != nil {
				return err
			}
			fresh, err := r.Accounts.GetByID(ctx, acc.ID)
			if err != nil {
				return err
			}
			res = &CallbackResult{
				Account:            fresh,
				LinkedAccount:      true,
				ConflictResolution: ResolutionLinkedToExistingEmail,
			}
			return nil

		case outcomeConflict:
			return &AccountLinkConflictError{Provider: in.Provider, Email: in.UserInfo.Email}

		default:
			return fmt.Errorf("unhandled reconciliation outcome %d", o)
		}
	})

	// El trail se escribe fuera de la transacción: en éxito queda
	// post-commit, y un conflicto se registra aunque todo lo demás
	// haya hecho rollback.
	s.recordCallback(ctx, in, res, txErr)

	if txErr != nil {
		var conflict *AccountLinkConflictError
		if errors.As(txErr, &conflict) {
			log.Warn("social link conflict rejected", logger.Email(in.UserInfo.Email))
			return nil, conflict
		}
		log.Error("callback reconciliation failed", logger.Err(txErr))
		return nil, txErr
	}

	log.Info("callback reconciled",
		logger.UserID(res.Account.ID),
		logger.Bool("new_user", res.IsNewUser),
		logger.Bool("linked", res.LinkedAccount),
	)
	return res, nil
}

// classify evalúa las ramas en orden; gana la primera que matchea.
func (s *reconcileService) classify(ctx context.Context, r repository.Repositories, in CallbackInput) (outcome, *repository.Account, error) {
	link, err := r.Links.GetByProvider(ctx, string(in.Provider), in.UserInfo.ID)
	if err == nil {
		acc, err := r.Accounts.GetByID(ctx, link.UserID)
		if err != nil {
			return 0, nil, err
		}
		return outcomeReauthenticated, acc, nil
	}
	if !repository.IsNotFound(err) {
		return 0, nil, err
	}

	acc, err := r.Accounts.GetByEmail(ctx, s.accountEmail(in))
	if repository.IsNotFound(err) {
		return outcomeNewAccount, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}

	// Misma cuenta, mismo provider, identidad remota distinta: rechazo.
	if other := findProviderLink(acc, string(in.Provider)); other != nil && other.ProviderUserID != in.UserInfo.ID {
		return outcomeConflict, acc, nil
	}
	return outcomeLinkedByEmail, acc, nil
}

func (s *reconcileService) CheckConflicts(ctx context.Context, currentUserID string, provider providers.Provider, info providers.UserInfo) (*ConflictReport, error) {
	r := s.da.Repos()

	// Una identidad ya reclamada reporta conflicto aunque el dueño sea la
	// propia cuenta; el caller distingue con linkedToUser.
	link, err := r.Links.GetByProvider(ctx, string(provider), info.ID)
	if err == nil {
		return &ConflictReport{
			HasConflict:  true,
			ConflictType: ConflictProviderAlreadyLinked,
			Details: map[string]any{
				"linkedToUser": link.UserID,
				"linkedAt":     link.CreatedAt,
			},
		}, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	if info.Email == "" {
		return &ConflictReport{}, nil
	}
	acc, err := r.Accounts.GetByEmail(ctx, info.Email)
	if repository.IsNotFound(err) {
		return &ConflictReport{}, nil
	}
	if err != nil {
		return nil, err
	}
	if acc.ID != currentUserID {
		if other := findProviderLink(acc, string(provider)); other != nil && other.ProviderUserID != info.ID {
			return &ConflictReport{
				HasConflict:  true,
				ConflictType: ConflictEmailDifferentProviderID,
				Details: map[string]any{
					"existingUserId":         acc.ID,
					"existingProviderUserId": other.ProviderUserID,
				},
			}, nil
		}
	}
	return &ConflictReport{}, nil
}

func (s *reconcileService) Link(ctx context.Context, currentUserID string, in CallbackInput) (*repository.SocialAuthLink, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.link"),
		logger.Provider(string(in.Provider)),
		logger.UserID(currentUserID),
	)

	report, err := s.CheckConflicts(ctx, currentUserID, in.Provider, in.UserInfo)
	if err != nil {
		return nil, err
	}
	if report.HasConflict && !isOwnRelink(report, currentUserID) {
		return nil, &AccountLinkConflictError{Provider: in.Provider, Email: in.UserInfo.Email}
	}

	encTokens, err := s.encryptTokens(in.Tokens)
	if err != nil {
		return nil, fmt.Errorf("encrypt provider tokens: %w", err)
	}

	var link *repository.SocialAuthLink
	txErr := s.da.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		// Relink de la misma identidad: refresca tokens y listo.
		if existing, err := r.Links.GetByProvider(ctx, string(in.Provider), in.UserInfo.ID); err == nil {
			if existing.UserID != currentUserID {
				return &AccountLinkConflictError{Provider: in.Provider, Email: in.UserInfo.Email}
			}
			if err := r.Links.UpdateTokens(ctx, existing.ID, repository.UpdateLinkTokensInput{
				AccessTokenEncrypted:  encTokens.access,
				RefreshTokenEncrypted: encTokens.refresh,
				TokenExpiresAt:        in.Tokens.ExpiresAt,
			}); err != nil {
				return err
			}
			link = existing
			return nil
		} else if !repository.IsNotFound(err) {
			return err
		}

		created, err := r.Links.Create(ctx, s.linkInput(currentUserID, in, encTokens))
		if err != nil {
			return err
		}
		link = created
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.audit.Record(ctx, audit.Event(repository.EventAccountChange, currentUserID, map[string]any{
		"action":   "provider_linked",
		"provider": string(in.Provider),
	}, in.IPAddress, in.UserAgent))
	log.Info("provider linked")
	return link, nil
}

// --- helpers ---

type encryptedTokens struct {
	access  string
	refresh *string
}

func (s *reconcileService) encryptTokens(t providers.TokenSet) (encryptedTokens, error) {
	access, err := s.cipher.Encrypt(t.AccessToken)
	if err != nil {
		return encryptedTokens{}, err
	}
	out := encryptedTokens{access: access}
	if t.RefreshToken != "" {
		enc, err := s.cipher.Encrypt(t.RefreshToken)
		if err != nil {
			return encryptedTokens{}, err
		}
		out.refresh = &enc
	}
	return out, nil
}

// accountEmail resuelve el email con el que se busca/crea la cuenta local.
// Instagram no entrega email: se sintetiza uno determinístico por identidad
// para que re-logins del mismo usuario caigan siempre en la misma cuenta.
func (s *reconcileService) accountEmail(in CallbackInput) string {
	if in.UserInfo.Email != "" {
		return in.UserInfo.Email
	}
	return fmt.Sprintf("%s.%s@social.local", in.Provider, in.UserInfo.ID)
}

func (s *reconcileService) createAccountWithLink(ctx context.Context, r repository.Repositories, in CallbackInput, enc encryptedTokens) (*repository.Account, error) {
	hash, err := placeholderPasswordHash()
	if err != nil {
		return nil, err
	}
	name := in.UserInfo.Name
	if name == "" {
		name = in.UserInfo.Email
	}
	acc, err := r.Accounts.Create(ctx, repository.CreateAccountInput{
		Email:        s.accountEmail(in),
		PasswordHash: hash,
		Role:         repository.RoleParent,
		DisplayName:  name,
		// El provider ya verificó la casilla; no se re-verifica localmente.
		IsEmailVerified: true,
	})
	if err != nil {
		return nil, err
	}
	if _, err := r.Links.Create(ctx, s.linkInput(acc.ID, in, enc)); err != nil {
		return nil, err
	}
	return r.Accounts.GetByID(ctx, acc.ID)
}

func (s *reconcileService) linkInput(userID string, in CallbackInput, enc encryptedTokens) repository.CreateSocialLinkInput {
	return repository.CreateSocialLinkInput{
		UserID:                userID,
		Provider:              string(in.Provider),
		ProviderUserID:        in.UserInfo.ID,
		ProviderEmail:         in.UserInfo.Email,
		ProviderName:          in.UserInfo.Name,
		AccessTokenEncrypted:  enc.access,
		RefreshTokenEncrypted: enc.refresh,
		TokenExpiresAt:        in.Tokens.ExpiresAt,
	}
}

func (s *reconcileService) recordCallback(ctx context.Context, in CallbackInput, res *CallbackResult, txErr error) {
	var conflict *AccountLinkConflictError
	switch {
	case txErr == nil:
		if res.LinkedAccount {
			// El enganche por email es un cambio de cuenta, no solo un login.
			s.audit.Record(ctx, audit.Event(repository.EventAccountChange, res.Account.ID, map[string]any{
				"action":             "social_account_linked",
				"provider":           string(in.Provider),
				"conflictResolution": res.ConflictResolution,
			}, in.IPAddress, in.UserAgent))
			return
		}
		action := "social_login"
		if res.IsNewUser {
			action = "social_signup"
		}
		s.audit.Record(ctx, audit.Event(repository.EventAuthentication, res.Account.ID, map[string]any{
			"action":   action,
			"provider": string(in.Provider),
		}, in.IPAddress, in.UserAgent))

	case errors.As(txErr, &conflict):
		s.audit.Record(ctx, audit.Event(repository.EventAccountChange, "", map[string]any{
			"action":       "social_link_conflict",
			"conflictType": "different_provider_id_same_email",
			"provider":     string(in.Provider),
			"email":        in.UserInfo.Email,
		}, in.IPAddress, in.UserAgent))

	default:
		s.audit.Record(ctx, audit.Event(repository.EventAuthentication, "", map[string]any{
			"action":   "oauth_callback_error",
			"provider": string(in.Provider),
			"error":    txErr.Error(),
		}, in.IPAddress, in.UserAgent))
	}
}

// isOwnRelink detecta el caso "la identidad ya es mía": el pre-check lo
// reporta como ocupada, pero para Link significa refrescar tokens, no
// rechazar.
func isOwnRelink(report *ConflictReport, currentUserID string) bool {
	return report.ConflictType == ConflictProviderAlreadyLinked &&
		report.Details["linkedToUser"] == currentUserID
}

// findLink busca el link de (provider, providerUserID) en los links eager.
func findLink(acc *repository.Account, provider, providerUserID string) *repository.SocialAuthLink {
	for i := range acc.SocialLinks {
		l := &acc.SocialLinks[i]
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			return l
		}
	}
	return nil
}

// findProviderLink busca cualquier link del provider dado.
func findProviderLink(acc *repository.Account, provider string) *repository.SocialAuthLink {
	for i := range acc.SocialLinks {
		if acc.SocialLinks[i].Provider == provider {
			return &acc.SocialLinks[i]
		}
	}
	return nil
}

// placeholderPasswordHash genera una credencial aleatoria para cuentas
// nacidas por social login. No habilita login por password (nadie conoce
// el secreto) pero deja a la cuenta recuperable vía password reset.
func placeholderPasswordHash() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(base64.RawStdEncoding.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
