package pkce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/cache"
)

const keyPrefix = "pkce:state:"

// Store guarda challenges efímeros keyed por state, con consumo único.
// La expiración en background la provee el driver de cache (janitor en
// memoria, TTL nativo en redis), independiente del consumo.
type Store struct {
	cache cache.Client
	ttl   time.Duration
}

// NewStore crea un Store sobre un cache.Client con el TTL dado (default 10m).
func NewStore(c cache.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{cache: c, ttl: ttl}
}

// Put guarda el challenge bajo el state. Sobrescribe si ya existía.
func (s *Store) Put(ctx context.Context, state string, ch *Challenge) error {
	b, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("pkce: marshal challenge: %w", err)
	}
	return s.cache.Set(ctx, keyPrefix+state, string(b), s.ttl)
}

// Take recupera y elimina el challenge (at-most-one retrieval).
// Retorna (nil, nil) si el state no existe o ya fue consumido: el caller
// sigue sin PKCE y el provider rechazará el exchange si correspondía.
func (s *Store) Take(ctx context.Context, state string) (*Challenge, error) {
	raw, err := s.cache.Take(ctx, keyPrefix+state)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ch Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return nil, fmt.Errorf("pkce: unmarshal challenge: %w", err)
	}
	return &ch, nil
}
