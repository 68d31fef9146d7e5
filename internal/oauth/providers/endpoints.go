package providers

import "encoding/json"

// Endpoints are the wire addresses of one provider. Overridable in tests.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string // empty = no user-info endpoint
}

// quirks captures the behavioral differences between providers that the
// registry has to honor.
type quirks struct {
	// pkceRequired makes PKCE mandatory for this provider.
	pkceRequired bool
	// formPost adds response_mode=form_post to the authorize URL.
	formPost bool
	// defaultScopes used when the config doesn't set any.
	defaultScopes []string
	// parseUserInfo normalizes the provider's profile response.
	parseUserInfo func(body []byte) (*UserInfo, error)
}

func defaultEndpoints(p Provider) Endpoints {
	switch p {
	case Google:
		return Endpoints{
			AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		}
	case Apple:
		// Apple has no user-info endpoint: identity claims arrive only in
		// the initial form_post callback.
		return Endpoints{
			AuthURL:  "https://appleid.apple.com/auth/authorize",
			TokenURL: "https://appleid.apple.com/auth/token",
		}
	case Instagram:
		return Endpoints{
			AuthURL:     "https://api.instagram.com/oauth/authorize",
			TokenURL:    "https://api.instagram.com/oauth/access_token",
			UserInfoURL: "https://graph.instagram.com/me?fields=id,username",
		}
	}
	return Endpoints{}
}

func providerQuirks(p Provider) quirks {
	switch p {
	case Google:
		return quirks{
			defaultScopes: []string{"openid", "email", "profile"},
			parseUserInfo: parseGoogleUserInfo,
		}
	case Apple:
		return quirks{
			pkceRequired:  true,
			formPost:      true,
			defaultScopes: []string{"name", "email"},
		}
	case Instagram:
		return quirks{
			defaultScopes: []string{"user_profile"},
			parseUserInfo: parseInstagramUserInfo,
		}
	}
	return quirks{}
}

func parseGoogleUserInfo(body []byte) (*UserInfo, error) {
	var raw struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return &UserInfo{ID: raw.ID, Email: raw.Email, Name: raw.Name, Picture: raw.Picture}, nil
}

func parseInstagramUserInfo(body []byte) (*UserInfo, error) {
	// Instagram's graph endpoint returns username, not name.
	var raw struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return &UserInfo{ID: raw.ID, Name: raw.Username}, nil
}
