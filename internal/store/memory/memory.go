// Package memory implementa DataAccess en memoria, para desarrollo y tests.
//
// WithinTx clona el estado completo y lo reemplaza solo en commit, así un
// error en fn deja el store exactamente como estaba (rollback real).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
)

type state struct {
	accounts map[string]repository.Account        // por ID
	links    map[string]repository.SocialAuthLink // por ID
	audits   []repository.AuditEvent
}

func (s *state) clone() *state {
	c := &state{
		accounts: make(map[string]repository.Account, len(s.accounts)),
		links:    make(map[string]repository.SocialAuthLink, len(s.links)),
		audits:   append([]repository.AuditEvent(nil), s.audits...),
	}
	for k, v := range s.accounts {
		v.SocialLinks = nil
		c.accounts[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	return c
}

// Store implementa repository.DataAccess en memoria.
type Store struct {
	mu sync.Mutex
	st *state
}

// New crea un Store vacío.
func New() *Store {
	return &Store{st: &state{
		accounts: map[string]repository.Account{},
		links:    map[string]repository.SocialAuthLink{},
	}}
}

func (s *Store) repos(st *state, locked bool) repository.Repositories {
	b := &binding{s: s, st: st, locked: locked}
	return repository.Repositories{
		Accounts: &accountRepo{b},
		Links:    &linkRepo{b},
		Audit:    &auditRepo{b},
	}
}

// Repos retorna repos sin transacción.
func (s *Store) Repos() repository.Repositories {
	return s.repos(nil, false)
}

// WithinTx corre fn sobre un clon del estado; commit = swap atómico.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	if err := fn(ctx, s.repos(snap, true)); err != nil {
		return err
	}
	s.st = snap
	return nil
}

// Close no hace nada en memoria.
func (s *Store) Close() {}

// binding resuelve sobre qué estado opera un repo y si necesita lockear.
type binding struct {
	s      *Store
	st     *state // nil = estado vivo del store
	locked bool
}

func (b *binding) acquire() (*state, func()) {
	if b.locked {
		return b.st, func() {}
	}
	b.s.mu.Lock()
	return b.s.st, b.s.mu.Unlock
}

// ---- accounts ----

type accountRepo struct{ b *binding }

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	st, release := r.b.acquire()
	defer release()
	for _, acc := range st.accounts {
		if strings.EqualFold(acc.Email, email) {
			return withLinks(st, acc), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	st, release := r.b.acquire()
	defer release()
	acc, ok := st.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return withLinks(st, acc), nil
}

func (r *accountRepo) Create(ctx context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	st, release := r.b.acquire()
	defer release()

	for _, acc := range st.accounts {
		if strings.EqualFold(acc.Email, input.Email) {
			return nil, repository.ErrConflict
		}
	}

	now := time.Now().UTC()
	role := input.Role
	if role == "" {
		role = repository.RoleParent
	}
	var hash *string
	if input.PasswordHash != "" {
		h := input.PasswordHash
		hash = &h
	}
	acc := repository.Account{
		ID:              uuid.NewString(),
		Email:           input.Email,
		PasswordHash:    hash,
		Role:            role,
		DisplayName:     input.DisplayName,
		IsEmailVerified: input.IsEmailVerified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	st.accounts[acc.ID] = acc
	out := acc
	return &out, nil
}

func withLinks(st *state, acc repository.Account) *repository.Account {
	acc.SocialLinks = linksOf(st, acc.ID)
	out := acc
	return &out
}

func linksOf(st *state, userID string) []repository.SocialAuthLink {
	var out []repository.SocialAuthLink
	for _, l := range st.links {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ---- social links ----

type linkRepo struct{ b *binding }

func (r *linkRepo) GetByID(ctx context.Context, id string) (*repository.SocialAuthLink, error) {
	st, release := r.b.acquire()
	defer release()
	l, ok := st.links[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := l
	return &out, nil
}

func (r *linkRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*repository.SocialAuthLink, error) {
	st, release := r.b.acquire()
	defer release()
	for _, l := range st.links {
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			out := l
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *linkRepo) ListByAccount(ctx context.Context, userID string) ([]repository.SocialAuthLink, error) {
	st, release := r.b.acquire()
	defer release()
	return linksOf(st, userID), nil
}

func (r *linkRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]repository.SocialAuthLink, error) {
	st, release := r.b.acquire()
	defer release()
	var out []repository.SocialAuthLink
	for _, l := range st.links {
		if l.TokenExpiresAt != nil && l.TokenExpiresAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenExpiresAt.Before(*out[j].TokenExpiresAt) })
	return out, nil
}

func (r *linkRepo) Create(ctx context.Context, input repository.CreateSocialLinkInput) (*repository.SocialAuthLink, error) {
	st, release := r.b.acquire()
	defer release()

	// unique (provider, provider_user_id)
	for _, l := range st.links {
		if l.Provider == input.Provider && l.ProviderUserID == input.ProviderUserID {
			return nil, repository.ErrConflict
		}
	}

	now := time.Now().UTC()
	l := repository.SocialAuthLink{
		ID:                    uuid.NewString(),
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
	}
	st.links[l.ID] = l
	out := l
	return &out, nil
}

func (r *linkRepo) UpdateTokens(ctx context.Context, id string, input repository.UpdateLinkTokensInput) error {
	st, release := r.b.acquire()
	defer release()

	l, ok := st.links[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.AccessTokenEncrypted = input.AccessTokenEncrypted
	if input.RefreshTokenEncrypted != nil {
		l.RefreshTokenEncrypted = input.RefreshTokenEncrypted
	}
	l.TokenExpiresAt = input.TokenExpiresAt
	l.UpdatedAt = time.Now().UTC()
	st.links[id] = l
	return nil
}

func (r *linkRepo) Delete(ctx context.Context, id string) error {
	st, release := r.b.acquire()
	defer release()
	if _, ok := st.links[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.links, id)
	return nil
}

// ---- audit ----

type auditRepo struct{ b *binding }

func (r *auditRepo) Append(ctx context.Context, ev repository.AuditEvent) error {
	st, release := r.b.acquire()
	defer release()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	st.audits = append(st.audits, ev)
	return nil
}

func (r *auditRepo) Query(ctx context.Context, f repository.AuditFilter) ([]repository.AuditEvent, int, error) {
	st, release := r.b.acquire()
	defer release()

	var matched []repository.AuditEvent
	for _, ev := range st.audits {
		if f.EventType != "" && ev.EventType != f.EventType {
			continue
		}
		if f.Provider != "" {
			p, _ := ev.Details["provider"].(string)
			if p != f.Provider {
				continue
			}
		}
		if f.From != nil && ev.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && ev.Timestamp.After(*f.To) {
			continue
		}
		matched = append(matched, ev)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
