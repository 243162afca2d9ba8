package authsession

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-session/oauth2"
	"github.com/jrsteele09/go-auth-session/token"
)

// ImplicitFlow is one in-flight implicit-grant authorization. The flow
// suspends at the external redirect: the application sends the user agent to
// AuthURL, and completion happens only when control returns with the
// provider's redirect URL. A flow that never completes is simply abandoned;
// starting a new flow supersedes it.
type ImplicitFlow struct {
	session     *Session
	clientID    string
	redirectURI string
	state       string
	authURL     string
}

// AuthURL is the authorization endpoint URL the user agent should be sent to.
func (f *ImplicitFlow) AuthURL() string {
	return f.authURL
}

// State returns the opaque anti-forgery value this flow was started with.
func (f *ImplicitFlow) State() string {
	return f.state
}

// LoginImplicitGrant starts an implicit-grant flow. The state argument is a
// caller-supplied opaque value (see NewState) that the identity provider must
// echo back unchanged; Complete rejects the response when it does not.
//
// Starting a new flow while an earlier one is pending is permitted, since an
// abandoned redirect leaves no in-process exchange behind; the earlier flow
// handle is superseded and can no longer complete. Only a concurrent
// client-credentials exchange blocks the call.
func (s *Session) LoginImplicitGrant(clientID, redirectURI, state string, scopes ...string) (*ImplicitFlow, error) {
	const op = "Session.LoginImplicitGrant"

	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(redirectURI) == "" {
		return nil, newAuthError(op, ReasonUnauthorized, errors.New("client id and redirect uri are required"))
	}
	if strings.TrimSpace(state) == "" {
		return nil, newAuthError(op, ReasonStateMismatch, errors.New("a non-empty state value is required"))
	}

	authURL, err := oauth2.AuthorizationURL(s.authURL, clientID, redirectURI, state, scopes)
	if err != nil {
		return nil, errors.Wrap(err, "[Session.LoginImplicitGrant] building authorization url")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state == StateAuthenticating && s.flow == nil {
		return nil, newAuthError(op, ReasonAlreadyInProgress, nil)
	}

	flow := &ImplicitFlow{
		session:     s,
		clientID:    clientID,
		redirectURI: redirectURI,
		state:       state,
		authURL:     authURL,
	}
	s.flow = flow
	s.state = StateAuthenticating
	return flow, nil
}

// Complete finishes the flow with the redirect URL the identity provider
// returned the user agent to. The echoed state is checked before anything
// else in the payload is trusted; on mismatch the parsed token is discarded
// and the call fails with ReasonStateMismatch. On success the token is
// installed on the session and persisted when configured.
func (f *ImplicitFlow) Complete(ctx context.Context, callbackURL string) (*token.Token, error) {
	const op = "ImplicitFlow.Complete"
	s := f.session

	s.lock.Lock()
	if s.flow != f {
		s.lock.Unlock()
		return nil, newAuthError(op, ReasonAlreadyInProgress, errors.New("flow superseded by a newer login"))
	}
	s.lock.Unlock()

	cb, err := oauth2.ParseCallback(callbackURL)
	if err != nil {
		s.fail()
		return nil, newAuthError(op, ReasonInvalidResponse, err)
	}

	if cb.State != f.state {
		s.fail()
		return nil, newAuthError(op, ReasonStateMismatch, nil)
	}

	if cb.Error != "" {
		s.fail()
		var detail error
		if cb.ErrorDescription != "" {
			detail = errors.Errorf("%s: %s", cb.Error, cb.ErrorDescription)
		} else {
			detail = errors.New(cb.Error)
		}
		return nil, newAuthError(op, ReasonUnauthorized, detail)
	}

	tok, err := token.FromResponse(&oauth2.TokenResponse{
		AccessToken: cb.AccessToken,
		TokenType:   cb.TokenType,
		ExpiresIn:   cb.ExpiresIn,
		Scope:       cb.Scope,
	}, s.nowFunc())
	if err != nil {
		s.fail()
		return nil, newAuthError(op, ReasonInvalidResponse, err)
	}

	if err := s.install(ctx, op, tok, f); err != nil {
		return nil, err
	}

	s.log.Debug().Str("client_id", f.clientID).Time("expires_at", tok.ExpiresAt).Msg("implicit grant completed")
	return tok, nil
}
