// SPDX-License-Identifier: MIT

package fixture

import (
	"net/http/httptest"
	"sync"

	"github.com/emberfall/fireauth/rest"
)

// Public API.

type (
	// Server is an in-process stand-in for the remote identity service. It
	// implements the account endpoints plus the token exchange endpoint and
	// records every call it serves so tests can assert on traffic.
	Server struct {
		*httptest.Server
		users         map[string]*User
		refreshTokens map[rest.RefreshToken]string
		idTokens      map[rest.IDToken]*issuedToken
		oobCodes      map[string]*oobCode
		lastOobCode   string
		calls         []*Call
		apiKey        rest.APIKey
		expiresIn     int64
		mx            sync.Mutex
	}
	Call struct {
		Endpoint    string
		ContentType string
	}
	User struct {
		LocalID       string
		Email         rest.Email
		Password      rest.Password
		DisplayName   string
		PhotoURL      string
		Providers     []rest.ProviderID
		EmailVerified bool
		Disabled      bool
	}
)

// Private API.

const (
	defaultExpiresInSeconds = 3600
)

type (
	issuedToken struct {
		localID string
		expired bool
	}
	oobCode struct {
		email       rest.Email
		requestType string
	}
)
