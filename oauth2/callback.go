package oauth2

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CallbackValues holds the parameters an authorization server appends to the
// redirect URI when an implicit-grant flow returns control to the client.
// Parameters arrive in the URL fragment (RFC 6749 §4.2.2); some providers
// fall back to the query string.
type CallbackValues struct {
	AccessToken      string
	TokenType        string
	ExpiresIn        int
	Scope            string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallback extracts the implicit-grant response values from a redirect
// URL. The fragment is preferred; the query string is used when the fragment
// carries no parameters.
func ParseCallback(rawURL string) (*CallbackValues, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "[ParseCallback] url.Parse")
	}

	// Parse the raw (still escaped) fragment: u.Fragment is already
	// percent-decoded and running it through ParseQuery would decode
	// values a second time.
	values, err := url.ParseQuery(u.EscapedFragment())
	if err != nil || len(values) == 0 {
		values, err = url.ParseQuery(u.RawQuery)
		if err != nil {
			return nil, errors.Wrap(err, "[ParseCallback] parsing redirect parameters")
		}
	}
	if len(values) == 0 {
		return nil, errors.New("[ParseCallback] redirect carries no parameters")
	}

	cb := &CallbackValues{
		AccessToken:      values.Get("access_token"),
		TokenType:        values.Get("token_type"),
		Scope:            values.Get("scope"),
		State:            values.Get("state"),
		Error:            values.Get("error"),
		ErrorDescription: values.Get("error_description"),
	}

	if raw := values.Get("expires_in"); raw != "" {
		expiresIn, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "[ParseCallback] expires_in %q", raw)
		}
		cb.ExpiresIn = expiresIn
	}

	return cb, nil
}

// AuthorizationURL builds the implicit-grant authorization request URL the
// user agent is sent to. The supplied state is echoed back unchanged by the
// identity provider and must be verified by the caller on return.
func AuthorizationURL(authURL, clientID, redirectURI, state string, scopes []string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", errors.Wrap(err, "[AuthorizationURL] url.Parse")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("[AuthorizationURL] invalid authorization endpoint %q", authURL)
	}

	query := u.Query()
	query.Set("response_type", string(TokenResponseType))
	query.Set("client_id", clientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)
	if len(scopes) > 0 {
		query.Set("scope", strings.Join(scopes, " "))
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
