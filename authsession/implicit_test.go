package authsession_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-session/authsession"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memstore"
)

const testImplicitToken = "tok2"

func callbackURL(state string) string {
	return fmt.Sprintf("%s#access_token=%s&token_type=bearer&expires_in=%d&state=%s",
		testRedirectURI, testImplicitToken, testExpiresIn, url.QueryEscape(state))
}

func TestLoginImplicitGrant(t *testing.T) {
	f := setupTestFixture(t)
	state := authsession.NewState()

	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, state, "profile", "email")
	require.NoError(t, err)
	require.Equal(t, authsession.StateAuthenticating, f.session.State())

	authURL, err := url.Parse(flow.AuthURL())
	require.NoError(t, err)
	query := authURL.Query()
	require.Equal(t, "token", query.Get("response_type"))
	require.Equal(t, testClientID, query.Get("client_id"))
	require.Equal(t, testRedirectURI, query.Get("redirect_uri"))
	require.Equal(t, state, query.Get("state"))
	require.Equal(t, "profile email", query.Get("scope"))

	tok, err := flow.Complete(context.Background(), callbackURL(state))
	require.NoError(t, err)
	require.Equal(t, testImplicitToken, tok.AccessToken)
	require.Equal(t, f.clock.Now().Add(testExpiresIn*time.Second), tok.ExpiresAt)
	require.Equal(t, authsession.StateAuthenticated, f.session.State())

	same, err := f.session.GetValidToken()
	require.NoError(t, err)
	require.Same(t, tok, same)
}

func TestLoginImplicitGrantStateNeedingEncoding(t *testing.T) {
	f := setupTestFixture(t)

	// an opaque state containing reserved characters is echoed back
	// percent-encoded by the provider and must still match
	state := "opaque+state/with spaces%7d"
	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, state)
	require.NoError(t, err)

	tok, err := flow.Complete(context.Background(), callbackURL(state))
	require.NoError(t, err)
	require.Equal(t, testImplicitToken, tok.AccessToken)
	require.Equal(t, authsession.StateAuthenticated, f.session.State())
}

func TestLoginImplicitGrantStateMismatch(t *testing.T) {
	f := setupTestFixture(t)

	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, "expected-state")
	require.NoError(t, err)

	_, err = flow.Complete(context.Background(), callbackURL("tampered-state"))
	require.ErrorIs(t, err, authsession.ErrStateMismatch)

	// the parsed token was discarded; the session never authenticates
	require.Equal(t, authsession.StateFailed, f.session.State())
	_, err = f.session.GetValidToken()
	require.ErrorIs(t, err, authsession.ErrNotAuthenticated)
}

func TestLoginImplicitGrantProviderError(t *testing.T) {
	f := setupTestFixture(t)
	state := authsession.NewState()

	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, state)
	require.NoError(t, err)

	callback := fmt.Sprintf("%s#error=access_denied&error_description=user+cancelled&state=%s", testRedirectURI, state)
	_, err = flow.Complete(context.Background(), callback)
	require.ErrorIs(t, err, authsession.ErrUnauthorized)
	require.Equal(t, authsession.StateFailed, f.session.State())
}

func TestLoginImplicitGrantMissingToken(t *testing.T) {
	f := setupTestFixture(t)
	state := authsession.NewState()

	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, state)
	require.NoError(t, err)

	callback := fmt.Sprintf("%s#token_type=bearer&state=%s", testRedirectURI, state)
	_, err = flow.Complete(context.Background(), callback)
	require.ErrorIs(t, err, authsession.ErrInvalidResponse)
}

func TestLoginImplicitGrantSuperseded(t *testing.T) {
	f := setupTestFixture(t)

	// the first flow is abandoned at the redirect; starting a second one
	// is permitted and supersedes it
	abandoned, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, "state-one")
	require.NoError(t, err)

	current, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, "state-two")
	require.NoError(t, err)

	_, err = abandoned.Complete(context.Background(), callbackURL("state-one"))
	require.ErrorIs(t, err, authsession.ErrAlreadyInProgress)

	tok, err := current.Complete(context.Background(), callbackURL("state-two"))
	require.NoError(t, err)
	require.Equal(t, testImplicitToken, tok.AccessToken)
	require.Equal(t, authsession.StateAuthenticated, f.session.State())
}

// supersedingStore runs a hook once, inside Set, to drive a login while a
// persistence write is in flight.
type supersedingStore struct {
	storage.Store
	onSet func()
}

func (s *supersedingStore) Set(ctx context.Context, key string, value []byte) error {
	if s.onSet != nil {
		hook := s.onSet
		s.onSet = nil
		hook()
	}
	return s.Store.Set(ctx, key, value)
}

func TestLoginImplicitGrantSupersededDuringPersist(t *testing.T) {
	clock := newFakeClock()
	store := &supersedingStore{Store: memstore.New()}
	session := authsession.New(
		authsession.WithAuthURL(testAuthURL),
		authsession.WithStore(store),
		authsession.WithNowFunc(clock.Now),
	)
	session.SetPersistSettings(true, testStorageKey)

	first, err := session.LoginImplicitGrant(testClientID, testRedirectURI, "state-one")
	require.NoError(t, err)

	// the persistence write is a suspension point: a flow superseded
	// while its token is being written must not commit it
	var second *authsession.ImplicitFlow
	store.onSet = func() {
		flow, flowErr := session.LoginImplicitGrant(testClientID, testRedirectURI, "state-two")
		require.NoError(t, flowErr)
		second = flow
	}

	_, err = first.Complete(context.Background(), callbackURL("state-one"))
	require.ErrorIs(t, err, authsession.ErrAlreadyInProgress)
	require.Equal(t, authsession.StateAuthenticating, session.State())
	_, err = session.GetValidToken()
	require.ErrorIs(t, err, authsession.ErrNotAuthenticated)

	tok, err := second.Complete(context.Background(), callbackURL("state-two"))
	require.NoError(t, err)
	require.Equal(t, testImplicitToken, tok.AccessToken)
	require.Equal(t, authsession.StateAuthenticated, session.State())
}

func TestLoginImplicitGrantBlockedByClientCredentials(t *testing.T) {
	f := setupTestFixture(t)
	started, release := f.endpoint.hold()

	firstResult := make(chan error, 1)
	go func() {
		_, err := f.session.LoginClientCredentials(context.Background(), testClientID, testClientSecret)
		firstResult <- err
	}()
	<-started

	_, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, authsession.NewState())
	require.ErrorIs(t, err, authsession.ErrAlreadyInProgress)

	release()
	require.NoError(t, <-firstResult)
}

func TestLoginImplicitGrantRequiresState(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, "")
	require.ErrorIs(t, err, authsession.ErrStateMismatch)
}

func TestLoginImplicitGrantPersists(t *testing.T) {
	f := setupTestFixture(t)
	f.session.SetPersistSettings(true, testStorageKey)
	state := authsession.NewState()

	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, state)
	require.NoError(t, err)

	tok, err := flow.Complete(context.Background(), callbackURL(state))
	require.NoError(t, err)

	persisted := f.readPersistedToken(t)
	require.Equal(t, tok.AccessToken, persisted.AccessToken)

	require.NoError(t, f.session.Logout(context.Background()))
	_, err = f.store.Get(context.Background(), testStorageKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoginImplicitGrantQueryFallback(t *testing.T) {
	f := setupTestFixture(t)
	state := authsession.NewState()

	flow, err := f.session.LoginImplicitGrant(testClientID, testRedirectURI, state)
	require.NoError(t, err)

	// some providers return parameters in the query string instead of the fragment
	callback := fmt.Sprintf("%s?access_token=%s&token_type=bearer&expires_in=%d&state=%s",
		testRedirectURI, testImplicitToken, testExpiresIn, url.QueryEscape(state))
	tok, err := flow.Complete(context.Background(), callback)
	require.NoError(t, err)
	require.Equal(t, testImplicitToken, tok.AccessToken)
}
