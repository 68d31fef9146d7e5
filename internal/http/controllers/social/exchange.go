package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
)

// codeExchanger corre la parte del callback que habla con el provider:
// consumir el state, canjear el code y resolver la identidad remota.
type codeExchanger struct {
	registry *providers.Registry
	pkce     *pkce.Store
}

// exchange valida el state (single use), canjea el code y devuelve la
// identidad normalizada junto con los tokens del provider.
func (e *codeExchanger) exchange(ctx context.Context, provider providers.Provider, code, state, appleUser string) (*providers.UserInfo, *providers.TokenSet, *httperrors.AppError) {
	ch, err := e.pkce.Take(ctx, state)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if ch == nil {
		return nil, nil, httperrors.ErrInvalidState
	}

	tokens, err := e.registry.Exchange(ctx, provider, code, ch.CodeVerifier)
	if err != nil {
		var tex *providers.TokenExchangeError
		if errors.As(err, &tex) {
			return nil, nil, httperrors.ErrProviderExchange.WithDetail(tex.Detail).WithCause(err)
		}
		return nil, nil, httperrors.ErrProviderExchange.WithCause(err)
	}

	info, appErr := e.resolveIdentity(ctx, provider, tokens, appleUser)
	if appErr != nil {
		return nil, nil, appErr
	}
	return info, tokens, nil
}

func (e *codeExchanger) resolveIdentity(ctx context.Context, provider providers.Provider, tokens *providers.TokenSet, appleUser string) (*providers.UserInfo, *httperrors.AppError) {
	if provider == providers.Apple {
		info, err := appleIdentity(tokens.IDToken, appleUser)
		if err != nil {
			return nil, httperrors.ErrProviderExchange.WithDetail("cannot resolve apple identity").WithCause(err)
		}
		return info, nil
	}

	info, err := e.registry.UserInfo(ctx, provider, tokens.AccessToken)
	if err != nil {
		return nil, httperrors.ErrProviderExchange.WithDetail("cannot fetch provider profile").WithCause(err)
	}
	return info, nil
}

// appleIdentity arma la identidad desde los claims del id_token más el
// campo user del form-post (Apple solo manda nombre/email en el primer
// consent).
//
// TODO: validar la firma del id_token contra el JWKS de Apple en lugar
// de confiar en que llegó por el canal del token endpoint.
func appleIdentity(idToken, userField string) (*providers.UserInfo, error) {
	if idToken == "" {
		return nil, fmt.Errorf("apple response without id_token")
	}

	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("id_token without sub")
	}
	email, _ := claims["email"].(string)

	info := &providers.UserInfo{ID: sub, Email: email}
	if userField != "" {
		var u struct {
			Name struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
			} `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal([]byte(userField), &u); err == nil {
			info.Name = strings.TrimSpace(u.Name.FirstName + " " + u.Name.LastName)
			if info.Email == "" {
				info.Email = u.Email
			}
		}
	}
	return info, nil
}
