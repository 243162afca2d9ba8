package config

import "os"

const (
	appNameVar    = "APP_NAME"
	issuerVar     = "ISSUER"
	tokenURLVar   = "TOKEN_URL"
	authURLVar    = "AUTH_URL"
	clientIDVar   = "CLIENT_ID"
	secretVar     = "CLIENT_SECRET"
	redirectVar   = "REDIRECT_URI"
	storagePath   = "STORAGE_PATH"
	storageKey    = "STORAGE_KEY"
	passphraseVar = "STORAGE_PASSPHRASE"
	redisAddrVar  = "REDIS_ADDR"
)

type EnvVars struct{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Session")
}

// GetIssuer returns the OIDC issuer used for endpoint discovery when no
// explicit token endpoint is configured.
func (EnvVars) GetIssuer() string {
	return GetEnv(issuerVar, "")
}

func (EnvVars) GetTokenURL() string {
	return GetEnv(tokenURLVar, "")
}

func (EnvVars) GetAuthURL() string {
	return GetEnv(authURLVar, "")
}

func (EnvVars) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (EnvVars) GetClientSecret() string {
	return GetEnv(secretVar, "")
}

func (EnvVars) GetRedirectURI() string {
	return GetEnv(redirectVar, "")
}

func (EnvVars) GetStoragePath() string {
	return GetEnv(storagePath, "./data/tokens.json")
}

func (EnvVars) GetStorageKey() string {
	return GetEnv(storageKey, "authsession.token")
}

// GetStoragePassphrase, when non-empty, turns on at-rest encryption of
// persisted tokens.
func (EnvVars) GetStoragePassphrase() string {
	return GetEnv(passphraseVar, "")
}

// GetRedisAddr, when non-empty, switches persistence to Redis.
func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
