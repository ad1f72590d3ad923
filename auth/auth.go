// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"os"
	"strings"
	stdlibtime "time"

	"github.com/pkg/errors"

	appcfg "github.com/emberfall/fireauth/config"
	"github.com/emberfall/fireauth/log"
	"github.com/emberfall/fireauth/rest"
)

// New loads the api key and defaults from the application.yaml key, falling
// back to `$MODULE_AUTH_API_KEY` / `$FIREAUTH_API_KEY` env variables.
func New(applicationYAMLKey string, options ...Option) *Config {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	if cfg.Auth.APIKey == "" {
		module := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(applicationYAMLKey, "-", "_"), "/", "_"))
		cfg.Auth.APIKey = os.Getenv(module + "_AUTH_API_KEY")
		if cfg.Auth.APIKey == "" {
			cfg.Auth.APIKey = os.Getenv("FIREAUTH_API_KEY")
		}
	}
	if cfg.Auth.APIKey == "" {
		log.Panic(errors.Errorf("api key missing for applicationYAMLKey:%v", applicationYAMLKey))
	}
	conf := &Config{
		client:       rest.New(applicationYAMLKey),
		apiKey:       rest.APIKey(cfg.Auth.APIKey),
		projectID:    rest.ProjectID(cfg.Auth.ProjectID),
		expiryMargin: defaultExpiryMargin,
	}
	if cfg.Auth.Locale != "" {
		locale := rest.LanguageCode(cfg.Auth.Locale)
		conf.locale = &locale
	}
	if cfg.Auth.ExpiryMarginSeconds > 0 {
		conf.expiryMargin = stdlibtime.Duration(cfg.Auth.ExpiryMarginSeconds) * stdlibtime.Second
	}
	for _, opt := range options {
		opt(conf)
	}

	return conf
}

// NewConfig builds a Config without touching application.yaml. Intended for
// callers that resolve the api key themselves.
func NewConfig(apiKey rest.APIKey, client *rest.Client, options ...Option) *Config {
	conf := &Config{client: client, apiKey: apiKey, expiryMargin: defaultExpiryMargin}
	for _, opt := range options {
		opt(conf)
	}

	return conf
}

// WithLocale sets the default language for the emails the remote sends.
func WithLocale(locale rest.LanguageCode) Option {
	return func(cfg *Config) {
		cfg.locale = &locale
	}
}

func WithProjectID(projectID rest.ProjectID) Option {
	return func(cfg *Config) {
		cfg.projectID = projectID
	}
}

// WithExpiryMargin controls how long before the advertised expiry an id token
// is already treated as stale.
func WithExpiryMargin(margin stdlibtime.Duration) Option {
	return func(cfg *Config) {
		cfg.expiryMargin = margin
	}
}

func (cfg *Config) APIKey() rest.APIKey {
	return cfg.apiKey
}

func (cfg *Config) ProjectID() rest.ProjectID {
	return cfg.projectID
}

// Client exposes the raw endpoint layer for calls the session surface doesn't
// cover.
func (cfg *Config) Client() *rest.Client {
	return cfg.client
}

func (cfg *Config) SignUpWithEmailPassword(ctx context.Context, email rest.Email, password rest.Password) (*Session, error) {
	resp, err := cfg.client.SignUpWithEmailPassword(ctx, cfg.apiKey, email, password)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign up email:%v", email)
	}
	session, err := newSession(cfg, resp.IDToken, resp.RefreshToken, resp.LocalID, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	session.Email, session.Provider = resp.Email, rest.ProviderPassword

	return session, nil
}

func (cfg *Config) SignInWithEmailPassword(ctx context.Context, email rest.Email, password rest.Password) (*Session, error) {
	resp, err := cfg.client.SignInWithEmailPassword(ctx, cfg.apiKey, email, password)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign in email:%v", email)
	}
	session, err := newSession(cfg, resp.IDToken, resp.RefreshToken, resp.LocalID, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	session.Email, session.Provider = resp.Email, rest.ProviderPassword

	return session, nil
}

func (cfg *Config) SignInAnonymously(ctx context.Context) (*Session, error) {
	resp, err := cfg.client.SignUpAnonymously(ctx, cfg.apiKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign in anonymously")
	}

	return newSession(cfg, resp.IDToken, resp.RefreshToken, resp.LocalID, resp.ExpiresIn)
}

func (cfg *Config) SignInWithCustomToken(ctx context.Context, customToken string) (*Session, error) {
	resp, err := cfg.client.SignInWithCustomToken(ctx, cfg.apiKey, customToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign in with custom token")
	}

	return newSession(cfg, resp.IDToken, resp.RefreshToken, "", resp.ExpiresIn)
}

func (cfg *Config) SignInWithOAuthCredential(ctx context.Context, requestURI string, postBody *rest.IdpPostBody) (*Session, error) {
	if postBody == nil {
		return nil, errors.Wrap(rest.ErrInvalidArgument, "postBody is required")
	}
	resp, err := cfg.client.SignInWithIdp(ctx, cfg.apiKey, requestURI, postBody)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign in via provider:%v", postBody.Provider)
	}
	session, err := newSession(cfg, resp.IDToken, resp.RefreshToken, resp.LocalID, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	session.Email, session.Provider = resp.Email, resp.ProviderID

	return session, nil
}

// SignInWithRefreshToken resumes a previously persisted session from its
// refresh token alone.
func (cfg *Config) SignInWithRefreshToken(ctx context.Context, refreshToken rest.RefreshToken) (*Session, error) {
	resp, err := cfg.client.ExchangeRefreshToken(ctx, cfg.apiKey, refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resume session from refresh token")
	}

	return newSession(cfg, resp.IDToken, resp.RefreshToken, resp.UserID, resp.ExpiresIn)
}

func (cfg *Config) FetchProvidersForEmail(ctx context.Context, email rest.Email, continueURI string) ([]rest.ProviderID, error) {
	resp, err := cfg.client.FetchProvidersForEmail(ctx, cfg.apiKey, email, continueURI)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch providers for email:%v", email)
	}

	return resp.AllProviders, nil
}

func (cfg *Config) SendPasswordResetEmail(ctx context.Context, email rest.Email) error {
	_, err := cfg.client.SendPasswordResetEmail(ctx, cfg.apiKey, email, cfg.locale)

	return errors.Wrapf(err, "failed to send password reset email to:%v", email)
}

func (cfg *Config) VerifyPasswordResetCode(ctx context.Context, oobCode string) (rest.Email, error) {
	resp, err := cfg.client.VerifyPasswordResetCode(ctx, cfg.apiKey, oobCode)
	if err != nil {
		return "", errors.Wrap(err, "failed to verify password reset code")
	}

	return resp.Email, nil
}

func (cfg *Config) ConfirmPasswordReset(ctx context.Context, oobCode string, newPassword rest.Password) error {
	_, err := cfg.client.ConfirmPasswordReset(ctx, cfg.apiKey, oobCode, newPassword)

	return errors.Wrap(err, "failed to confirm password reset")
}

func (cfg *Config) ConfirmEmailVerification(ctx context.Context, oobCode string) error {
	_, err := cfg.client.ConfirmEmailVerification(ctx, cfg.apiKey, oobCode)

	return errors.Wrap(err, "failed to confirm email verification")
}
