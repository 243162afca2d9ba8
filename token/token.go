package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	xoauth2 "golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-session/oauth2"
)

// DefaultTokenType is assumed when the token endpoint omits token_type.
const DefaultTokenType = "bearer"

// ErrNoExpiry indicates a token response with no usable expiry: no positive
// expires_in and no exp claim inside the access token itself.
var ErrNoExpiry = errors.New("token response carries no usable expiry")

// Token is a live access credential issued by an authorization server.
// Tokens are immutable once built; a session replaces them wholesale on
// re-authentication rather than mutating in place.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scope       []string  `json:"scope,omitempty"`
}

// FromResponse builds a Token from a token endpoint response. ExpiresAt is
// derived from expires_in relative to issuedAt; when expires_in is absent the
// access token's exp claim is used instead (some issuers mint JWTs and skip
// expires_in). The resulting expiry is always strictly after issuedAt.
func FromResponse(tr *oauth2.TokenResponse, issuedAt time.Time) (*Token, error) {
	if strings.TrimSpace(tr.AccessToken) == "" {
		return nil, errors.New("[token.FromResponse] empty access_token")
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}

	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = issuedAt.Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if exp, ok := claimExpiry(tr.AccessToken); ok {
		expiresAt = exp
	}
	if !expiresAt.After(issuedAt) {
		return nil, ErrNoExpiry
	}

	return &Token{
		AccessToken: tr.AccessToken,
		TokenType:   tokenType,
		ExpiresAt:   expiresAt,
		Scope:       splitScope(tr.Scope),
	}, nil
}

// Expired reports whether the token is no longer usable at the given time.
// The boundary is inclusive: a token is expired the instant now reaches
// ExpiresAt.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// OAuth2Token converts to the golang.org/x/oauth2 token type, for callers
// feeding the credential into x/oauth2-based HTTP clients.
func (t *Token) OAuth2Token() *xoauth2.Token {
	return &xoauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Expiry:      t.ExpiresAt,
	}
}

// claimExpiry pulls the exp claim out of a JWT-shaped access token without
// verifying the signature. Verification is the resource server's job; here
// the claim only seeds expiry bookkeeping.
func claimExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func splitScope(scope string) []string {
	if strings.TrimSpace(scope) == "" {
		return nil
	}
	return strings.Fields(scope)
}
