// SPDX-License-Identifier: MIT

package oauth

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/emberfall/fireauth/log"
	"github.com/emberfall/fireauth/rest"
)

// NewGoogleFlow builds a PKCE-enabled flow against Google's OpenID Connect
// endpoints. The redirect URL may be empty when the loopback receiver is used.
func NewGoogleFlow(clientID, clientSecret, redirectURL string, options ...Option) *Flow {
	flow := &Flow{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		provider: rest.ProviderGoogle,
		state:    oauth2.GenerateVerifier(),
		verifier: oauth2.GenerateVerifier(),
	}
	for _, opt := range options {
		opt(flow)
	}

	return flow
}

// NewFlow builds a flow for an arbitrary provider. The provider id decides how
// the exchanged token is packed for signInWithIdp.
func NewFlow(provider rest.ProviderID, config *oauth2.Config, options ...Option) *Flow {
	flow := &Flow{config: config, provider: provider, state: oauth2.GenerateVerifier(), verifier: oauth2.GenerateVerifier()}
	for _, opt := range options {
		opt(flow)
	}

	return flow
}

func WithScopes(scopes ...string) Option {
	return func(flow *Flow) {
		flow.config.Scopes = scopes
	}
}

// AuthCodeURL is the URL to send the user's browser to.
func (f *Flow) AuthCodeURL() string {
	return f.config.AuthCodeURL(f.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(f.verifier))
}

// Exchange finishes the flow for callers that ran the redirect themselves.
// The state must be the one extracted from the callback query.
func (f *Flow) Exchange(ctx context.Context, state, code string) (*Result, error) {
	if state != f.state {
		return nil, ErrStateMismatch
	}
	token, err := f.config.Exchange(ctx, code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		return nil, errors.Wrapf(err, "authorization code exchange failed for provider:%v", f.provider)
	}

	return f.result(token)
}

// ReceiveLoopback binds a loopback HTTP receiver, rewrites the flow's redirect
// URL to it, and blocks until the provider redirects the browser back (or ctx
// expires). Meant for CLI and desktop logins.
func (f *Flow) ReceiveLoopback(ctx context.Context) (string, func() (*Result, error), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to bind loopback listener")
	}
	f.config.RedirectURL = "http://" + listener.Addr().String() + callbackPath

	type callback struct {
		state, code, errCode string
	}
	callbackChan := make(chan *callback, 1)
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(callbackPath, func(ginCtx *gin.Context) {
		cb := &callback{
			state:   ginCtx.Query("state"),
			code:    ginCtx.Query("code"),
			errCode: ginCtx.Query("error"),
		}
		select {
		case callbackChan <- cb:
			ginCtx.String(http.StatusOK, "Login complete. You can close this window.")
		default:
			ginCtx.String(http.StatusConflict, "Login already completed.")
		}
	})
	server := &http.Server{Handler: router, ReadHeaderTimeout: receiverTimeout} //nolint:gosec // Loopback only, short lived.
	go func() {
		if sErr := server.Serve(listener); sErr != nil && !errors.Is(sErr, http.ErrServerClosed) {
			log.Error(errors.Wrap(sErr, "loopback receiver failed"))
		}
	}()
	wait := func() (*Result, error) {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), receiverTimeout)
			defer cancel()
			log.Error(errors.Wrap(server.Shutdown(shutdownCtx), "failed to shut down loopback receiver"))
		}()
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ErrReceiverClosed, ctx.Err().Error())
		case cb := <-callbackChan:
			if cb.errCode != "" {
				return nil, errors.Wrapf(ErrAccessDenied, "provider answered: %v", cb.errCode)
			}

			return f.Exchange(ctx, cb.state, cb.code)
		}
	}

	return f.AuthCodeURL(), wait, nil
}

// result packs the provider token the way signInWithIdp expects it: Google
// hands over an OpenID Connect id token, everybody else an access token.
func (f *Flow) result(token *oauth2.Token) (*Result, error) {
	var postBody *rest.IdpPostBody
	if f.provider == rest.ProviderGoogle {
		idToken, ok := token.Extra("id_token").(string)
		if !ok || idToken == "" {
			return nil, errors.Wrap(ErrNoIdpToken, "google token response carries no id_token")
		}
		postBody = rest.NewGoogleIdpPostBody(idToken)
	} else {
		if token.AccessToken == "" {
			return nil, errors.Wrapf(ErrNoIdpToken, "provider:%v token response carries no access token", f.provider)
		}
		postBody = rest.NewIdpPostBody(f.provider, token.AccessToken)
	}

	return &Result{Token: token, PostBody: postBody, RequestURI: f.config.RedirectURL}, nil
}
