package social

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
)

// StartDeps contains dependencies for the start service.
type StartDeps struct {
	Registry *providers.Registry
	PKCE     *pkce.Store
}

type startService struct {
	registry *providers.Registry
	pkce     *pkce.Store
}

// NewStartService creates a new StartService.
func NewStartService(d StartDeps) StartService {
	return &startService{registry: d.Registry, pkce: d.PKCE}
}

func (s *startService) Start(ctx context.Context, provider providers.Provider) (*StartResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.start"),
		logger.Provider(string(provider)),
	)

	state, err := newStateNonce()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	// El state siempre se persiste, use PKCE o no: el callback lo consume
	// una sola vez y eso es lo que corta replays y CSRF.
	usesPKCE := s.registry.UsesPKCE(provider)
	stored := &pkce.Challenge{}
	var ch *pkce.Challenge
	if usesPKCE {
		ch, err = pkce.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate pkce challenge: %w", err)
		}
		stored = ch
	}
	if err := s.pkce.Put(ctx, state, stored); err != nil {
		return nil, fmt.Errorf("store authorization state: %w", err)
	}

	authURL, err := s.registry.AuthorizeURL(provider, state, ch)
	if err != nil {
		return nil, err
	}

	log.Info("authorization flow started", logger.Bool("pkce", usesPKCE))
	return &StartResult{AuthURL: authURL, State: state, UsesPKCE: usesPKCE}, nil
}

// newStateNonce genera un nonce opaco para el parametro state.
func newStateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
