package social

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/cache"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
)

func newStartFixture(t *testing.T) (StartService, *pkce.Store) {
	t.Helper()
	store := pkce.NewStore(cache.NewMemory(time.Minute, time.Minute), time.Minute)
	registry := providers.NewRegistry(map[providers.Provider]providers.Config{
		providers.Google: {ClientID: "cid", RedirectURI: "http://localhost/cb", Scopes: []string{"email"}},
		providers.Apple:  {ClientID: "cid", RedirectURI: "http://localhost/cb"},
	})
	return NewStartService(StartDeps{Registry: registry, PKCE: store}), store
}

func TestStartWithoutPKCE(t *testing.T) {
	svc, store := newStartFixture(t)
	ctx := context.Background()

	res, err := svc.Start(ctx, providers.Google)
	require.NoError(t, err)
	assert.False(t, res.UsesPKCE)
	assert.NotEmpty(t, res.State)

	u, err := url.Parse(res.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, res.State, u.Query().Get("state"))
	assert.Empty(t, u.Query().Get("code_challenge"))

	ch, err := store.Take(ctx, res.State)
	require.NoError(t, err)
	require.NotNil(t, ch, "state must be stored even without PKCE")
	assert.Empty(t, ch.CodeVerifier)

	again, err := store.Take(ctx, res.State)
	require.NoError(t, err)
	assert.Nil(t, again, "state is single use")
}

func TestStartWithPKCEStoresChallengeUnderState(t *testing.T) {
	svc, store := newStartFixture(t)
	ctx := context.Background()

	res, err := svc.Start(ctx, providers.Apple)
	require.NoError(t, err)
	assert.True(t, res.UsesPKCE)

	u, err := url.Parse(res.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	assert.NotEmpty(t, u.Query().Get("code_challenge"))

	ch, err := store.Take(ctx, res.State)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, u.Query().Get("code_challenge"), ch.CodeChallenge)
}

func TestStartDistinctStatesPerCall(t *testing.T) {
	svc, _ := newStartFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, providers.Google)
	require.NoError(t, err)
	b, err := svc.Start(ctx, providers.Google)
	require.NoError(t, err)
	assert.NotEqual(t, a.State, b.State)
}
