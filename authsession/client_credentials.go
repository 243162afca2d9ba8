package authsession

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-session/oauth2"
	"github.com/jrsteele09/go-auth-session/token"
)

// maxTokenResponseBytes bounds how much of a token endpoint response is read.
const maxTokenResponseBytes = 1 << 20

// LoginClientCredentials performs the OAuth2 client-credentials grant against
// the configured token endpoint. Both arguments must be non-empty. While an
// exchange is in flight the session is in StateAuthenticating and a second
// call fails immediately with ReasonAlreadyInProgress rather than queuing.
// On success the token is persisted (when configured) before it is returned.
func (s *Session) LoginClientCredentials(ctx context.Context, clientID, clientSecret string) (*token.Token, error) {
	const op = "Session.LoginClientCredentials"

	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, newAuthError(op, ReasonUnauthorized, errors.New("client id and client secret are required"))
	}

	s.lock.Lock()
	if s.state == StateAuthenticating && s.flow == nil {
		s.lock.Unlock()
		return nil, newAuthError(op, ReasonAlreadyInProgress, nil)
	}
	// A pending implicit flow holds no in-process exchange, so a
	// client-credentials login supersedes it.
	s.flow = nil
	s.state = StateAuthenticating
	s.lock.Unlock()

	tok, err := s.exchangeClientCredentials(ctx, clientID, clientSecret)
	if err != nil {
		s.fail()
		return nil, err
	}

	if err := s.install(ctx, op, tok, nil); err != nil {
		s.fail()
		return nil, err
	}

	s.log.Debug().Str("client_id", clientID).Time("expires_at", tok.ExpiresAt).Msg("client credentials grant succeeded")
	return tok, nil
}

func (s *Session) exchangeClientCredentials(ctx context.Context, clientID, clientSecret string) (*token.Token, error) {
	const op = "Session.LoginClientCredentials"

	if s.tokenURL == "" {
		return nil, newAuthError(op, ReasonNetworkError, errors.New("no token endpoint configured"))
	}

	form := url.Values{}
	form.Set("grant_type", string(oauth2.ClientCredentialsGrant))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, newAuthError(op, ReasonNetworkError, err)
	}
	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, newAuthError(op, ReasonNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, newAuthError(op, ReasonNetworkError, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, newAuthError(op, ReasonUnauthorized, endpointError(resp.Status, body))
	default:
		return nil, newAuthError(op, ReasonNetworkError, errors.Errorf("token endpoint returned %s", resp.Status))
	}

	var tr oauth2.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, newAuthError(op, ReasonInvalidResponse, err)
	}

	tok, err := token.FromResponse(&tr, s.nowFunc())
	if err != nil {
		return nil, newAuthError(op, ReasonInvalidResponse, err)
	}
	return tok, nil
}

// endpointError prefers the RFC 6749 §5.2 error body over the bare HTTP
// status when the endpoint supplies one.
func endpointError(status string, body []byte) error {
	var er oauth2.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Code != "" {
		if er.Description != "" {
			return errors.Errorf("%s: %s", er.Code, er.Description)
		}
		return errors.New(er.Code)
	}
	return errors.Errorf("token endpoint returned %s", status)
}
