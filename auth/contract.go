// SPDX-License-Identifier: MIT

package auth

import (
	stdlibtime "time"

	"github.com/pkg/errors"

	"github.com/emberfall/fireauth/rest"
	"github.com/emberfall/fireauth/time"
)

// Public API.

var (
	// ErrSessionDeleted is returned when an operation is attempted on a session
	// whose account was already deleted.
	ErrSessionDeleted = errors.New("session account was deleted")
)

type (
	// Config binds an api key (and optional defaults) to the underlying REST
	// client. It is safe for concurrent use; one per application is enough.
	Config struct {
		client       *rest.Client
		locale       *rest.LanguageCode
		apiKey       rest.APIKey
		projectID    rest.ProjectID
		expiryMargin stdlibtime.Duration
	}
	Option func(*Config)

	// Session is a single authenticated credential. Each authenticated
	// operation consumes the receiver and returns a fresh *Session carrying
	// whatever tokens the remote handed back; keep using only the latest one.
	// When the local clock says the id token is about to expire, the session
	// refreshes it first and then performs the operation, so each call costs
	// at most one extra round trip and never relies on retry loops.
	Session struct {
		cfg          *Config
		issuedAt     *time.Time
		IDToken      rest.IDToken
		RefreshToken rest.RefreshToken
		LocalID      string
		Email        rest.Email
		Provider     rest.ProviderID
		expiresIn    stdlibtime.Duration
		deleted      bool
	}
)

// Private API.

const (
	defaultExpiryMargin = stdlibtime.Minute
)

type (
	config struct {
		Auth struct {
			APIKey              string `yaml:"apiKey" mapstructure:"apiKey"`
			ProjectID           string `yaml:"projectId" mapstructure:"projectId"`
			Locale              string `yaml:"locale" mapstructure:"locale"`
			ExpiryMarginSeconds int64  `yaml:"expiryMarginSeconds" mapstructure:"expiryMarginSeconds"`
		} `yaml:"fireauth" mapstructure:"fireauth"`
	}
)
