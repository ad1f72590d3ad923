// SPDX-License-Identifier: MIT

package verify

import (
	"sync"
	stdlibtime "time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/emberfall/fireauth/rest"
	"github.com/emberfall/fireauth/time"
)

// Public API.

var (
	ErrMalformedToken   = errors.New("malformed id token")
	ErrExpiredToken     = errors.New("expired id token")
	ErrInvalidSignature = errors.New("id token signature verification failed")
	ErrClaimMismatch    = errors.New("id token claims do not match the project")
)

type (
	// Verifier checks id tokens offline against the project's public signing
	// certificates. Certificates are cached between calls for as long as their
	// Cache-Control header allows.
	Verifier struct {
		certs     *certCache
		certsURL  string
		projectID rest.ProjectID
	}
	Option func(*Verifier)

	// Claims is the decoded payload of a verified id token.
	Claims struct {
		jwt.RegisteredClaims
		Firebase      *FirebaseClaim   `json:"firebase,omitempty"`
		AuthTime      *jwt.NumericDate `json:"auth_time,omitempty"` //nolint:tagliatelle // Remote schema.
		UserID        string           `json:"user_id,omitempty"`   //nolint:tagliatelle // Remote schema.
		Email         string           `json:"email,omitempty"`
		EmailVerified bool             `json:"email_verified,omitempty"` //nolint:tagliatelle // Remote schema.
	}
	FirebaseClaim struct {
		Identities     map[string][]string `json:"identities,omitempty"`
		SignInProvider string              `json:"sign_in_provider,omitempty"` //nolint:tagliatelle // Remote schema.
	}
)

// Private API.

const (
	defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	issuerPrefix    = "https://securetoken.google.com/"

	requestDeadline = 25 * stdlibtime.Second
)

type (
	certCache struct {
		certs     map[string]string
		expiresAt *time.Time
		mx        sync.RWMutex
	}
	config struct {
		Verify struct {
			ProjectID string `yaml:"projectId" mapstructure:"projectId"`
			CertsURL  string `yaml:"certsUrl" mapstructure:"certsUrl"`
		} `yaml:"fireauth/verify" mapstructure:"fireauth/verify"` //nolint:tagliatelle // Nope.
	}
)
