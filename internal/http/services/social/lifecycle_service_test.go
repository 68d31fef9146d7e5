package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/audit"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/store/memory"
)

func TestNeedsRefresh(t *testing.T) {
	now := time.Now()
	skew := 5 * time.Minute

	soon := now.Add(4 * time.Minute)
	far := now.Add(10 * time.Minute)

	assert.True(t, NeedsRefresh(&soon, skew, now), "expiry inside the skew window")
	assert.False(t, NeedsRefresh(&far, skew, now), "expiry beyond the skew window")
	assert.False(t, NeedsRefresh(nil, skew, now), "nil expiry means the token never expires")
}

// fakeTokenServer responde al refresh grant. Los refresh tokens listados
// en reject fallan con invalid_grant; el resto recibe tokens nuevos.
func fakeTokenServer(t *testing.T, reject map[string]bool, rotateRefresh bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		rt := r.Form.Get("refresh_token")

		w.Header().Set("Content-Type", "application/json")
		if reject[rt] {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
			return
		}
		resp := map[string]any{
			"access_token": "refreshed-" + rt,
			"expires_in":   3600,
		}
		if rotateRefresh {
			resp["refresh_token"] = "rotated-" + rt
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

type lifecycleFixture struct {
	mem    *memory.Store
	cipher *secretbox.Cipher
	svc    LifecycleService
}

func newLifecycleFixture(t *testing.T, tokenURL string) *lifecycleFixture {
	t.Helper()
	mem := memory.New()
	cipher := newTestCipher(t)
	registry := providers.NewRegistry(map[providers.Provider]providers.Config{
		providers.Google: {ClientID: "cid", ClientSecret: "sec", RedirectURI: "http://localhost/cb"},
	}, providers.WithEndpoints(providers.Google, providers.Endpoints{TokenURL: tokenURL}))

	svc := NewLifecycleService(LifecycleDeps{
		DA:       mem,
		Registry: registry,
		Cipher:   cipher,
		Audit:    audit.NewRecorder(mem),
	})
	return &lifecycleFixture{mem: mem, cipher: cipher, svc: svc}
}

// seedLink crea una cuenta con un link expirado. refreshToken vacío deja
// el link sin refresh token.
func (f *lifecycleFixture) seedLink(t *testing.T, email, providerUserID, refreshToken string, hasPassword bool) *repository.SocialAuthLink {
	t.Helper()
	return f.seedLinkAt(t, email, providerUserID, refreshToken, hasPassword, time.Now().Add(-time.Hour))
}

func (f *lifecycleFixture) seedLinkAt(t *testing.T, email, providerUserID, refreshToken string, hasPassword bool, expiresAt time.Time) *repository.SocialAuthLink {
	t.Helper()
	ctx := context.Background()

	hash := ""
	if hasPassword {
		hash = "$2a$10$hash"
	}
	acc, err := f.mem.Repos().Accounts.Create(ctx, repository.CreateAccountInput{
		Email:        email,
		PasswordHash: hash,
		Role:         repository.RoleParent,
	})
	require.NoError(t, err)

	accessEnc, err := f.cipher.Encrypt("stale-access")
	require.NoError(t, err)
	var refreshEnc *string
	if refreshToken != "" {
		enc, err := f.cipher.Encrypt(refreshToken)
		require.NoError(t, err)
		refreshEnc = &enc
	}
	link, err := f.mem.Repos().Links.Create(ctx, repository.CreateSocialLinkInput{
		UserID:                acc.ID,
		Provider:              "google",
		ProviderUserID:        providerUserID,
		ProviderEmail:         email,
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		TokenExpiresAt:        &expiresAt,
	})
	require.NoError(t, err)
	return link
}

func TestCleanupExpiredIsolatesFailures(t *testing.T) {
	srv := fakeTokenServer(t, map[string]bool{"rt-bad": true}, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	f.seedLink(t, "a@example.com", "g-a", "rt-a", true)
	f.seedLink(t, "b@example.com", "g-b", "rt-bad", true)
	f.seedLink(t, "c@example.com", "g-c", "rt-c", true)

	report, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Refreshed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "google", report.Errors[0].Provider)
}

func TestCleanupExpiredSkipsLinksWithoutRefreshToken(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	link := f.seedLink(t, "a@example.com", "g-a", "", true)

	report, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Refreshed)
	assert.Equal(t, 1, report.Skipped)

	// El skip queda registrado en el trail.
	evs, _, err := f.mem.Repos().Audit.Query(ctx, repository.AuditFilter{EventType: repository.EventAuthentication})
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, "token_expired_no_refresh", evs[len(evs)-1].Details["action"])
	assert.Equal(t, link.ID, evs[len(evs)-1].Details["linkId"])
}

func TestCleanupSweepsTokensExpiringWithinSkew(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	// Vence en 2m: dentro de la ventana default de 5m, el sweep lo toma.
	f.seedLinkAt(t, "a@example.com", "g-a", "rt-a", true, time.Now().Add(2*time.Minute))
	// Vence en 1h: fuera de la ventana, se deja en paz.
	f.seedLinkAt(t, "b@example.com", "g-b", "rt-b", true, time.Now().Add(time.Hour))

	report, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refreshed)
	assert.Equal(t, 0, report.Failed)
}

func TestRefreshLinkSkipsTokenOutsideSkew(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	link := f.seedLinkAt(t, "a@example.com", "g-a", "rt-a", true, time.Now().Add(time.Hour))

	require.NoError(t, f.svc.RefreshLink(ctx, link.ID))

	stored, err := f.mem.Repos().Links.GetByID(ctx, link.ID)
	require.NoError(t, err)
	access, err := f.cipher.Decrypt(stored.AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "stale-access", access, "a token far from expiry is left untouched")
}

func TestRefreshLinkRetainsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := fakeTokenServer(t, nil, false)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	link := f.seedLink(t, "a@example.com", "g-a", "rt-keep", true)

	require.NoError(t, f.svc.RefreshLink(ctx, link.ID))

	updated, err := f.mem.Repos().Links.GetByID(ctx, link.ID)
	require.NoError(t, err)

	access, err := f.cipher.Decrypt(updated.AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-rt-keep", access)

	require.NotNil(t, updated.RefreshTokenEncrypted)
	refresh, err := f.cipher.Decrypt(*updated.RefreshTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "rt-keep", refresh, "provider did not rotate: old refresh token survives")
	require.NotNil(t, updated.TokenExpiresAt)
	assert.True(t, updated.TokenExpiresAt.After(time.Now()))
}

func TestRefreshLinkWithoutRefreshToken(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)

	link := f.seedLink(t, "a@example.com", "g-a", "", true)
	err := f.svc.RefreshLink(context.Background(), link.ID)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestBulkUnlinkLastFactorProtection(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	link := f.seedLink(t, "solo@example.com", "g-solo", "rt", false)

	_, err := f.svc.BulkUnlink(ctx, link.UserID, []providers.Provider{providers.Google})
	require.ErrorIs(t, err, ErrLastFactor)

	// Nada se tocó.
	links, err := f.mem.Repos().Links.ListByAccount(ctx, link.UserID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestBulkUnlinkReportsPartialFailure(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	link := f.seedLink(t, "ana@example.com", "g-ana", "rt", true)

	report, err := f.svc.BulkUnlink(ctx, link.UserID, []providers.Provider{providers.Google, providers.Apple})
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, report.Success)
	assert.Equal(t, []string{"apple"}, report.Failed)
	assert.Equal(t, "provider not linked", report.Errors["apple"])

	links, err := f.mem.Repos().Links.ListByAccount(ctx, link.UserID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestBulkUnlinkAllowedWhenPasswordRemains(t *testing.T) {
	srv := fakeTokenServer(t, nil, true)
	defer srv.Close()
	f := newLifecycleFixture(t, srv.URL)
	ctx := context.Background()

	link := f.seedLink(t, "ana@example.com", "g-ana", "rt", true)

	report, err := f.svc.BulkUnlink(ctx, link.UserID, []providers.Provider{providers.Google})
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, report.Success)
}
