package social

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/audit"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/store/memory"
)

func newTestCipher(t *testing.T) *secretbox.Cipher {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := secretbox.New(key)
	require.NoError(t, err)
	return c
}

func newReconcileFixture(t *testing.T) (*memory.Store, *secretbox.Cipher, ReconcileService) {
	t.Helper()
	mem := memory.New()
	cipher := newTestCipher(t)
	svc := NewReconcileService(ReconcileDeps{
		DA:     mem,
		Cipher: cipher,
		Audit:  audit.NewRecorder(mem),
	})
	return mem, cipher, svc
}

func googleCallback(email, providerUserID, accessToken string) CallbackInput {
	return CallbackInput{
		Provider: providers.Google,
		UserInfo: providers.UserInfo{ID: providerUserID, Email: email, Name: "Ana Torres"},
		Tokens:   providers.TokenSet{AccessToken: accessToken, RefreshToken: "rt-" + accessToken},
	}
}

func TestHandleCallbackNewAccount(t *testing.T) {
	mem, cipher, svc := newReconcileFixture(t)
	ctx := context.Background()

	res, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.False(t, res.LinkedAccount)
	assert.Equal(t, repository.RoleParent, res.Account.Role)
	assert.True(t, res.Account.IsEmailVerified)
	assert.True(t, res.Account.HasPassword(), "social signup gets a placeholder credential")

	require.Len(t, res.Account.SocialLinks, 1)
	link := res.Account.SocialLinks[0]
	assert.Equal(t, "google", link.Provider)
	assert.Equal(t, "g-123", link.ProviderUserID)

	// Tokens nunca se persisten en claro.
	assert.NotEqual(t, "at-1", link.AccessTokenEncrypted)
	plain, err := cipher.Decrypt(link.AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "at-1", plain)

	_, total, err := mem.Repos().Audit.Query(ctx, repository.AuditFilter{EventType: repository.EventAuthentication})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestHandleCallbackReauthenticationIsIdempotent(t *testing.T) {
	_, cipher, svc := newReconcileFixture(t)
	ctx := context.Background()

	first, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.NoError(t, err)

	second, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-2"))
	require.NoError(t, err)

	assert.False(t, second.IsNewUser)
	assert.False(t, second.LinkedAccount)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	require.Len(t, second.Account.SocialLinks, 1)

	plain, err := cipher.Decrypt(second.Account.SocialLinks[0].AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "at-2", plain, "re-login must rotate the stored access token")
}

func TestHandleCallbackLinksByEmail(t *testing.T) {
	mem, _, svc := newReconcileFixture(t)
	ctx := context.Background()

	existing, err := mem.Repos().Accounts.Create(ctx, repository.CreateAccountInput{
		Email:        "ana@example.com",
		PasswordHash: "$2a$10$existinghash",
		Role:         repository.RoleParent,
	})
	require.NoError(t, err)

	res, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	assert.True(t, res.LinkedAccount)
	assert.Equal(t, ResolutionLinkedToExistingEmail, res.ConflictResolution)
	assert.Equal(t, existing.ID, res.Account.ID)
	require.Len(t, res.Account.SocialLinks, 1)

	// El enganche queda en el trail como cambio de cuenta con su resolución.
	evs, _, err := mem.Repos().Audit.Query(ctx, repository.AuditFilter{EventType: repository.EventAccountChange})
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, "social_account_linked", last.Details["action"])
	assert.Equal(t, "linked_to_existing_email", last.Details["conflictResolution"])
}

func TestHandleCallbackConflictLeavesNothingBehind(t *testing.T) {
	mem, _, svc := newReconcileFixture(t)
	ctx := context.Background()

	_, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-original", "at-1"))
	require.NoError(t, err)

	// Misma casilla, mismo provider, identidad remota distinta.
	_, err = svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-impostor", "at-2"))
	var conflict *AccountLinkConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, providers.Google, conflict.Provider)

	acc, err := mem.Repos().Accounts.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, acc.SocialLinks, 1, "rejected callback must not mutate the account")
	assert.Equal(t, "g-original", acc.SocialLinks[0].ProviderUserID)

	// El conflicto queda en el trail aunque la transacción haya hecho rollback.
	evs, _, err := mem.Repos().Audit.Query(ctx, repository.AuditFilter{EventType: repository.EventAccountChange})
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, "social_link_conflict", evs[len(evs)-1].Details["action"])
	assert.Equal(t, "different_provider_id_same_email", evs[len(evs)-1].Details["conflictType"])
}

// failingDataAccess simula el storage caído: toda transacción falla.
type failingDataAccess struct {
	repository.DataAccess
}

func (f *failingDataAccess) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	return errors.New("storage offline")
}

func TestHandleCallbackFailureIsAudited(t *testing.T) {
	mem := memory.New()
	svc := NewReconcileService(ReconcileDeps{
		DA:     &failingDataAccess{DataAccess: mem},
		Cipher: newTestCipher(t),
		Audit:  audit.NewRecorder(mem),
	})
	ctx := context.Background()

	_, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.Error(t, err)

	evs, _, err := mem.Repos().Audit.Query(ctx, repository.AuditFilter{EventType: repository.EventAuthentication})
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, "oauth_callback_error", last.Details["action"])
	assert.Contains(t, last.Details["error"], "storage offline")
}

func TestHandleCallbackWithoutEmailIsStable(t *testing.T) {
	_, _, svc := newReconcileFixture(t)
	ctx := context.Background()

	in := CallbackInput{
		Provider: providers.Instagram,
		UserInfo: providers.UserInfo{ID: "ig-42", Name: "anita"},
		Tokens:   providers.TokenSet{AccessToken: "at-1"},
	}
	first, err := svc.HandleCallback(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.IsNewUser)

	in.Tokens.AccessToken = "at-2"
	second, err := svc.HandleCallback(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.Account.ID, second.Account.ID, "same remote identity must land on the same account")
}

func TestCheckConflicts(t *testing.T) {
	mem, _, svc := newReconcileFixture(t)
	ctx := context.Background()

	owner, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.NoError(t, err)

	other, err := mem.Repos().Accounts.Create(ctx, repository.CreateAccountInput{
		Email:        "otro@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         repository.RoleParent,
	})
	require.NoError(t, err)

	t.Run("provider already linked elsewhere", func(t *testing.T) {
		rep, err := svc.CheckConflicts(ctx, other.ID, providers.Google, providers.UserInfo{ID: "g-123", Email: "ana@example.com"})
		require.NoError(t, err)
		assert.True(t, rep.HasConflict)
		assert.Equal(t, ConflictProviderAlreadyLinked, rep.ConflictType)
		assert.Equal(t, owner.Account.ID, rep.Details["linkedToUser"])
	})

	t.Run("email bound to different provider identity", func(t *testing.T) {
		rep, err := svc.CheckConflicts(ctx, other.ID, providers.Google, providers.UserInfo{ID: "g-999", Email: "ana@example.com"})
		require.NoError(t, err)
		assert.True(t, rep.HasConflict)
		assert.Equal(t, ConflictEmailDifferentProviderID, rep.ConflictType)
	})

	t.Run("own identity still reports the claim", func(t *testing.T) {
		// Una identidad ocupada se reporta aunque el dueño sea uno mismo;
		// linkedToUser le permite al caller distinguir el caso.
		rep, err := svc.CheckConflicts(ctx, owner.Account.ID, providers.Google, providers.UserInfo{ID: "g-123", Email: "ana@example.com"})
		require.NoError(t, err)
		assert.True(t, rep.HasConflict)
		assert.Equal(t, ConflictProviderAlreadyLinked, rep.ConflictType)
		assert.Equal(t, owner.Account.ID, rep.Details["linkedToUser"])
	})

	t.Run("fresh identity has no conflict", func(t *testing.T) {
		rep, err := svc.CheckConflicts(ctx, other.ID, providers.Apple, providers.UserInfo{ID: "a-1", Email: "otro@example.com"})
		require.NoError(t, err)
		assert.False(t, rep.HasConflict)
	})
}

func TestLinkRejectsConflicts(t *testing.T) {
	mem, _, svc := newReconcileFixture(t)
	ctx := context.Background()

	_, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.NoError(t, err)

	other, err := mem.Repos().Accounts.Create(ctx, repository.CreateAccountInput{
		Email:        "otro@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         repository.RoleParent,
	})
	require.NoError(t, err)

	_, err = svc.Link(ctx, other.ID, googleCallback("ana@example.com", "g-123", "at-2"))
	var conflict *AccountLinkConflictError
	require.ErrorAs(t, err, &conflict)

	link, err := svc.Link(ctx, other.ID, CallbackInput{
		Provider: providers.Apple,
		UserInfo: providers.UserInfo{ID: "a-7", Email: "otro@example.com"},
		Tokens:   providers.TokenSet{AccessToken: "at-3"},
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, link.UserID)
}

func TestLinkOwnIdentityRefreshesTokens(t *testing.T) {
	mem, cipher, svc := newReconcileFixture(t)
	ctx := context.Background()

	owner, err := svc.HandleCallback(ctx, googleCallback("ana@example.com", "g-123", "at-1"))
	require.NoError(t, err)

	// Relinkear la identidad propia no es conflicto: rota los tokens.
	link, err := svc.Link(ctx, owner.Account.ID, googleCallback("ana@example.com", "g-123", "at-2"))
	require.NoError(t, err)
	assert.Equal(t, owner.Account.ID, link.UserID)

	stored, err := mem.Repos().Links.GetByID(ctx, link.ID)
	require.NoError(t, err)
	plain, err := cipher.Decrypt(stored.AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "at-2", plain)
}
