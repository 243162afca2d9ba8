package authsession

import (
	"errors"
	"fmt"
)

// Reason classifies an authentication failure.
type Reason string

const (
	// ReasonAlreadyInProgress means another authentication attempt is in
	// flight on this session. Calls fail immediately rather than queue.
	ReasonAlreadyInProgress Reason = "already_in_progress"

	// ReasonUnauthorized means the authorization server rejected the
	// credentials or the grant.
	ReasonUnauthorized Reason = "unauthorized"

	// ReasonNetworkError means the token endpoint could not be reached or
	// responded with a server-side failure.
	ReasonNetworkError Reason = "network_error"

	// ReasonInvalidResponse means the endpoint answered with a
	// success-shaped payload that could not be used as a token.
	ReasonInvalidResponse Reason = "invalid_response"

	// ReasonStateMismatch means the state echoed back by the identity
	// provider did not match the state the flow was started with. The
	// returned token, if any, is discarded.
	ReasonStateMismatch Reason = "state_mismatch"

	// ReasonNotAuthenticated means the session holds no token.
	ReasonNotAuthenticated Reason = "not_authenticated"

	// ReasonExpired means the session's token has passed its expiry and
	// the caller must re-authenticate.
	ReasonExpired Reason = "expired"
)

// Sentinels for errors.Is checks. Matching is by reason, so any AuthError
// with the same reason satisfies errors.Is against these.
var (
	ErrAlreadyInProgress = &AuthError{Reason: ReasonAlreadyInProgress}
	ErrUnauthorized      = &AuthError{Reason: ReasonUnauthorized}
	ErrNetworkError      = &AuthError{Reason: ReasonNetworkError}
	ErrInvalidResponse   = &AuthError{Reason: ReasonInvalidResponse}
	ErrStateMismatch     = &AuthError{Reason: ReasonStateMismatch}
	ErrNotAuthenticated  = &AuthError{Reason: ReasonNotAuthenticated}
	ErrExpired           = &AuthError{Reason: ReasonExpired}
)

// AuthError is the failure type returned by session operations.
type AuthError struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Reason)
	case e.Err == nil:
		return fmt.Sprintf("[%s] %s", e.Op, e.Reason)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Op, e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError carrying the same reason.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// ReasonOf extracts the failure reason from an error chain, or "" when the
// chain holds no AuthError.
func ReasonOf(err error) Reason {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

func newAuthError(op string, reason Reason, err error) *AuthError {
	return &AuthError{Reason: reason, Op: op, Err: err}
}
