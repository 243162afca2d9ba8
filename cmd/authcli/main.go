package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-session/authsession"
	"github.com/jrsteele09/go-auth-session/discovery"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/cryptostore"
	"github.com/jrsteele09/go-auth-session/storage/filestore"
	"github.com/jrsteele09/go-auth-session/storage/redisstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	c := config.EnvVars{}
	displayAppName(c.GetAppName())

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tokenURL := c.GetTokenURL()
	authURL := c.GetAuthURL()
	if tokenURL == "" && c.GetIssuer() != "" {
		endpoints, err := discovery.Resolve(ctx, c.GetIssuer())
		if err != nil {
			return err
		}
		tokenURL, authURL = endpoints.TokenURL, endpoints.AuthURL
		log.Info().Str("issuer", c.GetIssuer()).Str("token_url", tokenURL).Msg("endpoints discovered")
	}
	if tokenURL == "" {
		return errors.New("TOKEN_URL or ISSUER must be set")
	}
	if c.GetClientID() == "" || c.GetClientSecret() == "" {
		return errors.New("CLIENT_ID and CLIENT_SECRET must be set")
	}

	store, err := buildStore(c, log)
	if err != nil {
		return err
	}

	session := authsession.New(
		authsession.WithTokenURL(tokenURL),
		authsession.WithAuthURL(authURL),
		authsession.WithStore(store),
		authsession.WithLogger(log),
	)
	session.SetPersistSettings(store != nil, c.GetStorageKey())

	if tok, err := session.Restore(ctx); err == nil {
		log.Info().Time("expires_at", tok.ExpiresAt).Msg("restored persisted token")
		return nil
	}

	tok, err := session.LoginClientCredentials(ctx, c.GetClientID(), c.GetClientSecret())
	if err != nil {
		return err
	}
	log.Info().Str("token_type", tok.TokenType).Time("expires_at", tok.ExpiresAt).Msg("authenticated")
	return nil
}

func buildStore(c config.EnvVars, log zerolog.Logger) (storage.Store, error) {
	var store storage.Store
	switch {
	case c.GetRedisAddr() != "":
		store = redisstore.New(redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()}))
		log.Info().Str("addr", c.GetRedisAddr()).Msg("persisting tokens to redis")
	case c.GetStoragePath() != "":
		fileStore, err := filestore.New(c.GetStoragePath())
		if err != nil {
			return nil, err
		}
		store = fileStore
	default:
		return nil, nil
	}

	if passphrase := c.GetStoragePassphrase(); passphrase != "" {
		store = cryptostore.New(store, []byte(passphrase))
	}
	return store, nil
}

func displayAppName(appName string) {
	myFigure := figure.NewFigure(appName, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
