// SPDX-License-Identifier: MIT

package oauth

import (
	stdlibtime "time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/emberfall/fireauth/rest"
)

// Public API.

var (
	ErrStateMismatch  = errors.New("oauth state mismatch")
	ErrAccessDenied   = errors.New("oauth access denied by the user")
	ErrNoIdpToken     = errors.New("oauth token response carries no usable idp credential")
	ErrReceiverClosed = errors.New("loopback receiver closed before a callback arrived")
)

type (
	// Flow drives one authorization-code exchange with PKCE against a
	// federated identity provider and converts the result into the credential
	// blob the signInWithIdp endpoint consumes. One Flow per attempt.
	Flow struct {
		config   *oauth2.Config
		provider rest.ProviderID
		state    string
		verifier string
	}
	Option func(*Flow)

	// Result is everything needed to finish federated sign-in: hand
	// RequestURI and PostBody to SignInWithOAuthCredential.
	Result struct {
		Token      *oauth2.Token
		PostBody   *rest.IdpPostBody
		RequestURI string
	}
)

// Private API.

const (
	callbackPath    = "/callback"
	receiverTimeout = 5 * stdlibtime.Minute
)
