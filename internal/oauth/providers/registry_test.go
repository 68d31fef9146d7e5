package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
)

func testConfigs() map[Provider]Config {
	return map[Provider]Config{
		Google: {
			ClientID:     "g-client",
			ClientSecret: "g-secret",
			RedirectURI:  "https://auth.example.com/v1/auth/social/google/callback",
		},
		Apple: {
			ClientID:     "a-client",
			ClientSecret: "a-secret",
			RedirectURI:  "https://auth.example.com/v1/auth/social/apple/callback",
		},
		Instagram: {
			ClientID:     "i-client",
			ClientSecret: "i-secret",
			RedirectURI:  "https://auth.example.com/v1/auth/social/instagram/callback",
		},
	}
}

func TestParse_UnsupportedProvider(t *testing.T) {
	t.Parallel()
	if _, err := Parse("facebook"); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	if _, err := Parse("google"); err != nil {
		t.Fatalf("google should parse, got %v", err)
	}
}

func TestAuthorizeURL_Google(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testConfigs())

	ch, _ := pkce.Generate()
	raw, err := r.AuthorizeURL(Google, "state-123", ch)
	if err != nil {
		t.Fatalf("AuthorizeURL err: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if got := q.Get("client_id"); got != "g-client" {
		t.Fatalf("client_id = %q", got)
	}
	if got := q.Get("response_type"); got != "code" {
		t.Fatalf("response_type = %q", got)
	}
	if got := q.Get("state"); got != "state-123" {
		t.Fatalf("state = %q", got)
	}
	if got := q.Get("scope"); !strings.Contains(got, "email") {
		t.Fatalf("scope = %q, want default google scopes", got)
	}
	if got := q.Get("code_challenge"); got != ch.CodeChallenge {
		t.Fatalf("code_challenge = %q", got)
	}
	if got := q.Get("code_challenge_method"); got != "S256" {
		t.Fatalf("code_challenge_method = %q", got)
	}
	if q.Get("response_mode") != "" {
		t.Fatalf("google must not set response_mode")
	}
}

func TestAuthorizeURL_AppleRequiresPKCEAndFormPost(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testConfigs())

	if _, err := r.AuthorizeURL(Apple, "s", nil); err == nil {
		t.Fatalf("apple without PKCE should fail")
	}

	ch, _ := pkce.Generate()
	raw, err := r.AuthorizeURL(Apple, "s", ch)
	if err != nil {
		t.Fatalf("AuthorizeURL err: %v", err)
	}
	u, _ := url.Parse(raw)
	if got := u.Query().Get("response_mode"); got != "form_post" {
		t.Fatalf("response_mode = %q, want form_post", got)
	}
}

func TestAuthorizeURL_UnknownProvider(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testConfigs())
	if _, err := r.AuthorizeURL(Provider("myspace"), "s", nil); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestUsesPKCE(t *testing.T) {
	t.Parallel()
	cfgs := testConfigs()
	ig := cfgs[Instagram]
	ig.UsePKCE = true
	cfgs[Instagram] = ig
	r := NewRegistry(cfgs)

	if !r.UsesPKCE(Apple) {
		t.Fatalf("apple must be PKCE-mandatory")
	}
	if r.UsesPKCE(Google) {
		t.Fatalf("google should not use PKCE unless opted in")
	}
	if !r.UsesPKCE(Instagram) {
		t.Fatalf("instagram opted into PKCE via config")
	}
}

func TestExchange_MapsExpiresInToAbsolute(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("code_verifier"); got != "ver" {
			t.Errorf("code_verifier = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	r := NewRegistry(testConfigs(), WithEndpoints(Google, Endpoints{TokenURL: srv.URL}))
	before := time.Now()
	ts, err := r.Exchange(context.Background(), Google, "code-1", "ver")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if ts.AccessToken != "at-1" || ts.RefreshToken != "rt-1" {
		t.Fatalf("tokens = %+v", ts)
	}
	if ts.ExpiresAt == nil {
		t.Fatalf("ExpiresAt nil, want absolute timestamp")
	}
	want := before.Add(time.Hour)
	if ts.ExpiresAt.Before(want.Add(-time.Minute)) || ts.ExpiresAt.After(want.Add(time.Minute)) {
		t.Fatalf("ExpiresAt = %v, want ~%v", ts.ExpiresAt, want)
	}
}

func TestExchange_NoExpiryStaysNil(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-ig"})
	}))
	defer srv.Close()

	r := NewRegistry(testConfigs(), WithEndpoints(Instagram, Endpoints{TokenURL: srv.URL}))
	ts, err := r.Exchange(context.Background(), Instagram, "code", "")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if ts.ExpiresAt != nil {
		t.Fatalf("ExpiresAt = %v, want nil when provider omits expires_in", ts.ExpiresAt)
	}
}

func TestExchange_Non2xxIsTokenExchangeError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer srv.Close()

	r := NewRegistry(testConfigs(), WithEndpoints(Google, Endpoints{TokenURL: srv.URL}))
	_, err := r.Exchange(context.Background(), Google, "bad-code", "")

	var tee *TokenExchangeError
	if !errors.As(err, &tee) {
		t.Fatalf("expected TokenExchangeError, got %T %v", err, err)
	}
	if tee.Status != http.StatusBadRequest {
		t.Fatalf("Status = %d", tee.Status)
	}
	if !strings.Contains(tee.Detail, "invalid_grant") {
		t.Fatalf("Detail = %q, want raw provider detail preserved", tee.Detail)
	}
	// outward message stays generic
	if strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("Error() leaks provider detail: %q", err.Error())
	}
}

func TestRefresh_SendsRefreshGrant(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "rt-old" {
			t.Errorf("refresh_token = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-new", "expires_in": 1800})
	}))
	defer srv.Close()

	r := NewRegistry(testConfigs(), WithEndpoints(Google, Endpoints{TokenURL: srv.URL}))
	ts, err := r.Refresh(context.Background(), Google, "rt-old")
	if err != nil {
		t.Fatalf("Refresh err: %v", err)
	}
	if ts.AccessToken != "at-new" {
		t.Fatalf("AccessToken = %q", ts.AccessToken)
	}
	if ts.RefreshToken != "" {
		t.Fatalf("RefreshToken = %q, want empty when provider omits it", ts.RefreshToken)
	}
}

func TestUserInfo_InstagramMapsUsernameToName(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-ig" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ig-42", "username": "kiddo_learns"})
	}))
	defer srv.Close()

	r := NewRegistry(testConfigs(), WithEndpoints(Instagram, Endpoints{TokenURL: srv.URL, UserInfoURL: srv.URL}))
	info, err := r.UserInfo(context.Background(), Instagram, "at-ig")
	if err != nil {
		t.Fatalf("UserInfo err: %v", err)
	}
	if info.ID != "ig-42" || info.Name != "kiddo_learns" {
		t.Fatalf("info = %+v, want username mapped to Name", info)
	}
	if info.Email != "" {
		t.Fatalf("instagram has no email, got %q", info.Email)
	}
}

func TestUserInfo_AppleUnsupported(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testConfigs())
	if _, err := r.UserInfo(context.Background(), Apple, "at"); !errors.Is(err, ErrUserInfoUnsupported) {
		t.Fatalf("expected ErrUserInfoUnsupported, got %v", err)
	}
}

func TestUserInfo_Non200IsUserInfoError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewRegistry(testConfigs(), WithEndpoints(Google, Endpoints{TokenURL: srv.URL, UserInfoURL: srv.URL}))
	_, err := r.UserInfo(context.Background(), Google, "expired")

	var uie *UserInfoError
	if !errors.As(err, &uie) {
		t.Fatalf("expected UserInfoError, got %T %v", err, err)
	}
	if uie.Status != http.StatusUnauthorized {
		t.Fatalf("Status = %d", uie.Status)
	}
}
