package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
)

// Config holds the OAuth credentials of one provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	// UsePKCE opts into PKCE for providers where it isn't mandatory.
	UsePKCE bool
}

// Registry resolves per-provider endpoints and response shapes behind a
// uniform API. Callers own timeout/cancellation via ctx; a timeout is
// reported the same way as any other network failure.
type Registry struct {
	configs   map[Provider]Config
	endpoints map[Provider]Endpoints
	http      *http.Client
}

// Option customizes a Registry.
type Option func(*Registry)

// WithHTTPClient replaces the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) { r.http = c }
}

// WithEndpoints overrides the wire addresses of one provider (tests).
func WithEndpoints(p Provider, e Endpoints) Option {
	return func(r *Registry) { r.endpoints[p] = e }
}

// NewRegistry creates a Registry for the configured providers.
func NewRegistry(configs map[Provider]Config, opts ...Option) *Registry {
	r := &Registry{
		configs:   configs,
		endpoints: map[Provider]Endpoints{},
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for p := range configs {
		r.endpoints[p] = defaultEndpoints(p)
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) config(p Provider) (Config, error) {
	cfg, ok := r.configs[p]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, p)
	}
	return cfg, nil
}

// UsesPKCE reports whether an authorization attempt through this provider
// must carry a PKCE challenge (mandatory for Apple, opt-in otherwise).
func (r *Registry) UsesPKCE(p Provider) bool {
	q := providerQuirks(p)
	if q.pkceRequired {
		return true
	}
	cfg, ok := r.configs[p]
	return ok && cfg.UsePKCE
}

// AuthorizeURL composes the provider's authorize endpoint with client id,
// redirect URI, scope, state and optional PKCE challenge.
func (r *Registry) AuthorizeURL(p Provider, state string, ch *pkce.Challenge) (string, error) {
	cfg, err := r.config(p)
	if err != nil {
		return "", err
	}
	q := providerQuirks(p)
	if q.pkceRequired && ch == nil {
		return "", fmt.Errorf("provider %s requires PKCE", p)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = q.defaultScopes
	}

	u, err := url.Parse(r.endpoints[p].AuthURL)
	if err != nil {
		return "", fmt.Errorf("authorize url for %s: %w", p, err)
	}
	v := u.Query()
	v.Set("response_type", "code")
	v.Set("client_id", cfg.ClientID)
	v.Set("redirect_uri", cfg.RedirectURI)
	v.Set("scope", strings.Join(scopes, " "))
	v.Set("state", state)
	if q.formPost {
		v.Set("response_mode", "form_post")
	}
	if ch != nil {
		v.Set("code_challenge", ch.CodeChallenge)
		v.Set("code_challenge_method", ch.CodeChallengeMethod)
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// Exchange trades an authorization code for tokens at the provider.
// codeVerifier may be empty when the flow didn't use PKCE.
func (r *Registry) Exchange(ctx context.Context, p Provider, code, codeVerifier string) (*TokenSet, error) {
	cfg, err := r.config(p)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("redirect_uri", cfg.RedirectURI)
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	return r.tokenRequest(ctx, p, "exchange", form)
}

// Refresh trades a refresh token for a fresh TokenSet.
func (r *Registry) Refresh(ctx context.Context, p Provider, refreshToken string) (*TokenSet, error) {
	cfg, err := r.config(p)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)

	return r.tokenRequest(ctx, p, "refresh", form)
}

func (r *Registry) tokenRequest(ctx context.Context, p Provider, op string, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoints[p].TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Provider: p, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Provider: p, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return nil, &TokenExchangeError{Provider: p, Op: op, Status: resp.StatusCode, Detail: string(body)}
	}

	var tr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &TokenExchangeError{Provider: p, Op: op, Status: resp.StatusCode, Detail: "bad token response", Err: err}
	}
	if tr.Error != "" {
		return nil, &TokenExchangeError{Provider: p, Op: op, Status: resp.StatusCode, Detail: tr.Error + " " + tr.ErrorDesc}
	}
	if tr.AccessToken == "" {
		return nil, &TokenExchangeError{Provider: p, Op: op, Status: resp.StatusCode, Detail: "no access_token in response"}
	}

	ts := &TokenSet{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken, IDToken: tr.IDToken}
	if tr.ExpiresIn > 0 {
		// expires_in seconds to absolute, computed at call time
		at := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
		ts.ExpiresAt = &at
	}
	return ts, nil
}

// UserInfo fetches and normalizes the provider's profile for the token owner.
// Apple fails with ErrUserInfoUnsupported.
func (r *Registry) UserInfo(ctx context.Context, p Provider, accessToken string) (*UserInfo, error) {
	if _, err := r.config(p); err != nil {
		return nil, err
	}
	q := providerQuirks(p)
	ep := r.endpoints[p]
	if ep.UserInfoURL == "" || q.parseUserInfo == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserInfoUnsupported, p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.UserInfoURL, nil)
	if err != nil {
		return nil, &UserInfoError{Provider: p, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, &UserInfoError{Provider: p, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return nil, &UserInfoError{Provider: p, Status: resp.StatusCode, Detail: string(body)}
	}

	info, err := q.parseUserInfo(body)
	if err != nil {
		return nil, &UserInfoError{Provider: p, Status: resp.StatusCode, Detail: "bad user-info response", Err: err}
	}
	return info, nil
}
