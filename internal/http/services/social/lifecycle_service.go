package social

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/audit"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
)

// LifecycleDeps contains dependencies for the lifecycle service.
type LifecycleDeps struct {
	DA       repository.DataAccess
	Registry *providers.Registry
	Cipher   *secretbox.Cipher
	Audit    *audit.Recorder

	// RefreshSkew: margen refresh-before-expiry. Default 5m.
	RefreshSkew time.Duration
	// Concurrency: refreshes en paralelo durante el sweep. Default 4.
	Concurrency int

	// Now permite fijar el reloj en tests. Default time.Now.
	Now func() time.Time
}

type lifecycleService struct {
	da          repository.DataAccess
	registry    *providers.Registry
	cipher      *secretbox.Cipher
	audit       *audit.Recorder
	refreshSkew time.Duration
	concurrency int
	now         func() time.Time
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(d LifecycleDeps) LifecycleService {
	if d.RefreshSkew <= 0 {
		d.RefreshSkew = 5 * time.Minute
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 4
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &lifecycleService{
		da:          d.DA,
		registry:    d.Registry,
		cipher:      d.Cipher,
		audit:       d.Audit,
		refreshSkew: d.RefreshSkew,
		concurrency: d.Concurrency,
		now:         d.Now,
	}
}

func (s *lifecycleService) RefreshLink(ctx context.Context, linkID string) error {
	link, err := s.da.Repos().Links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	// Token todavía lejos de vencer: no se gasta una llamada al provider.
	if !NeedsRefresh(link.TokenExpiresAt, s.refreshSkew, s.now()) {
		return nil
	}
	return s.refreshOne(ctx, link)
}

// refreshOne descifra el refresh token, pide tokens nuevos al provider y
// persiste el resultado re-cifrado. Si el provider no rota el refresh
// token, el anterior se retiene (RefreshTokenEncrypted nil en el update).
func (s *lifecycleService) refreshOne(ctx context.Context, link *repository.SocialAuthLink) error {
	if link.RefreshTokenEncrypted == nil || *link.RefreshTokenEncrypted == "" {
		return ErrNoRefreshToken
	}
	refreshToken, err := s.cipher.Decrypt(*link.RefreshTokenEncrypted)
	if err != nil {
		return fmt.Errorf("decrypt refresh token for link %s: %w", link.ID, err)
	}

	ts, err := s.registry.Refresh(ctx, providers.Provider(link.Provider), refreshToken)
	if err != nil {
		return err
	}

	accessEnc, err := s.cipher.Encrypt(ts.AccessToken)
	if err != nil {
		return err
	}
	var refreshEnc *string
	if ts.RefreshToken != "" {
		enc, err := s.cipher.Encrypt(ts.RefreshToken)
		if err != nil {
			return err
		}
		refreshEnc = &enc
	}

	return s.da.Repos().Links.UpdateTokens(ctx, link.ID, repository.UpdateLinkTokensInput{
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		TokenExpiresAt:        ts.ExpiresAt,
	})
}

func (s *lifecycleService) CleanupExpired(ctx context.Context) (*CleanupReport, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.lifecycle"),
		logger.Op("CleanupExpired"),
	)

	// El corte incluye tokens que vencen dentro de la ventana refreshSkew,
	// no solo los ya vencidos: el sweep llega antes de que dejen de servir.
	expired, err := s.da.Repos().Links.ListExpired(ctx, s.now().Add(s.refreshSkew))
	if err != nil {
		return nil, err
	}

	report := &CleanupReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range expired {
		link := expired[i]
		g.Go(func() error {
			// Un registro malo nunca aborta el sweep: todo error queda
			// en el reporte y el goroutine retorna nil.
			if link.RefreshTokenEncrypted == nil || *link.RefreshTokenEncrypted == "" {
				s.audit.Record(gctx, audit.Event(repository.EventAuthentication, link.UserID, map[string]any{
					"action":   "token_expired_no_refresh",
					"provider": link.Provider,
					"linkId":   link.ID,
				}, "", ""))
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}

			if err := s.refreshOne(gctx, &link); err != nil {
				mu.Lock()
				report.Failed++
				report.Errors = append(report.Errors, CleanupError{
					LinkID:   link.ID,
					Provider: link.Provider,
					Reason:   err.Error(),
				})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Refreshed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info("token cleanup sweep finished",
		logger.Count(len(expired)),
		logger.Int("refreshed", report.Refreshed),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *lifecycleService) BulkUnlink(ctx context.Context, userID string, provs []providers.Provider) (*UnlinkReport, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.lifecycle"),
		logger.Op("BulkUnlink"),
		logger.UserID(userID),
	)

	acc, err := s.da.Repos().Accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(provs))
	for _, p := range provs {
		requested[string(p)] = true
	}

	// Chequeo last-factor una sola vez, antes de mutar nada: si remover
	// TODOS los providers pedidos deja cero factores, el batch entero
	// se rechaza y ningún link se toca.
	remaining := 0
	for _, l := range acc.SocialLinks {
		if !requested[l.Provider] {
			remaining++
		}
	}
	if !acc.HasPassword() && remaining == 0 && len(acc.SocialLinks) > 0 {
		log.Warn("bulk unlink rejected: last authentication factor")
		return nil, ErrLastFactor
	}

	report := &UnlinkReport{Errors: map[string]string{}}
	for _, p := range provs {
		link := findProviderLink(acc, string(p))
		if link == nil {
			report.Failed = append(report.Failed, string(p))
			report.Errors[string(p)] = "provider not linked"
			continue
		}
		if err := s.da.Repos().Links.Delete(ctx, link.ID); err != nil {
			report.Failed = append(report.Failed, string(p))
			report.Errors[string(p)] = err.Error()
			continue
		}
		s.audit.Record(ctx, audit.Event(repository.EventAccountChange, userID, map[string]any{
			"action":   "provider_unlinked",
			"provider": string(p),
		}, "", ""))
		report.Success = append(report.Success, string(p))
	}

	log.Info("bulk unlink finished",
		logger.Int("success", len(report.Success)),
		logger.Int("failed", len(report.Failed)),
	)
	return report, nil
}
