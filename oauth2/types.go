package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Token request includes: client_id, client_secret, scope
	// Returns: access_token (no refresh_token or id_token)
	ClientCredentialsGrant GrantType = "client_credentials"
)

// ResponseType represents the OAuth 2.0 response type requested from the
// authorization endpoint.
type ResponseType string

const (
	// TokenResponseType indicates the implicit flow. The authorization
	// endpoint returns the access token directly in the redirect fragment.
	// Example: https://client.example.com/callback#access_token=ABC123&state=xyz
	TokenResponseType ResponseType = "token"
)
