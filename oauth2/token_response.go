package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the credential used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (typically "bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 3600 (for 1 hour)
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope is the space-separated list of granted permissions.
	// Note: May be less than requested if some scopes were denied.
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the error body returned by a token endpoint (RFC 6749 §5.2).
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}
