// Package jwt emite y valida los tokens de sesión first-party que el route
// layer entrega tras una reconciliación exitosa.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalid indica un token de sesión inválido o expirado.
var ErrTokenInvalid = errors.New("invalid session token")

// SessionTokens es el par access/refresh entregado al cliente.
type SessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims son los claims de un token de sesión.
type Claims struct {
	UserID string
	Role   string
	Kind   string // "access" | "refresh"
}

// Issuer firma tokens de sesión HS256.
type Issuer struct {
	issuer     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer crea un Issuer. secret debe venir de configuración del server,
// nunca derivado de datos del request.
func NewIssuer(issuer string, secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{issuer: issuer, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueSession emite el par access/refresh para una cuenta.
func (i *Issuer) IssueSession(userID, role string) (*SessionTokens, error) {
	access, err := i.sign(userID, role, "access", i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(userID, role, "refresh", i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &SessionTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

func (i *Issuer) sign(userID, role, kind string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"iss":  i.issuer,
		"sub":  userID,
		"role": role,
		"typ":  kind,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// ParseAccess valida un access token y retorna sus claims.
func (i *Issuer) ParseAccess(tokenString string) (*Claims, error) {
	tok, err := jwtv5.Parse(tokenString, func(t *jwtv5.Token) (any, error) {
		return i.secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if iss, _ := mc["iss"].(string); iss != i.issuer {
		return nil, ErrTokenInvalid
	}
	if typ, _ := mc["typ"].(string); typ != "access" {
		return nil, ErrTokenInvalid
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrTokenInvalid
	}
	role, _ := mc["role"].(string)
	return &Claims{UserID: sub, Role: role, Kind: "access"}, nil
}
