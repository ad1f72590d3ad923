// SPDX-License-Identifier: MIT

package rest

import (
	"context"

	"github.com/pkg/errors"
)

// SignUpWithEmailPassword creates a fresh account and returns its first
// credential.
func (c *Client) SignUpWithEmailPassword(ctx context.Context, apiKey APIKey, email Email, password Password) (*SignUpResponse, error) {
	if email == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "email and password are required")
	}
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	resp, err := post[SignUpResponse](ctx, c, endpointSignUp, apiKey, body, nil)

	return resp, errors.Wrapf(err, "signUp(email:%v) failed", email)
}

// SignUpAnonymously creates a throwaway account not bound to any credentials.
func (c *Client) SignUpAnonymously(ctx context.Context, apiKey APIKey) (*SignUpResponse, error) {
	body := map[string]any{
		"returnSecureToken": true,
	}
	resp, err := post[SignUpResponse](ctx, c, endpointSignUp, apiKey, body, nil)

	return resp, errors.Wrap(err, "anonymous signUp failed")
}

func (c *Client) SignInWithEmailPassword(ctx context.Context, apiKey APIKey, email Email, password Password) (*SignInWithEmailPasswordResponse, error) {
	if email == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "email and password are required")
	}
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	resp, err := post[SignInWithEmailPasswordResponse](ctx, c, endpointSignInWithPassword, apiKey, body, nil)

	return resp, errors.Wrapf(err, "signInWithPassword(email:%v) failed", email)
}

// SignInWithCustomToken exchanges a token minted by a trusted backend for a
// first-party credential.
func (c *Client) SignInWithCustomToken(ctx context.Context, apiKey APIKey, token string) (*SignInWithCustomTokenResponse, error) {
	if token == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "custom token is required")
	}
	body := map[string]any{
		"token":             token,
		"returnSecureToken": true,
	}
	resp, err := post[SignInWithCustomTokenResponse](ctx, c, endpointSignInCustomToken, apiKey, body, nil)

	return resp, errors.Wrap(err, "signInWithCustomToken failed")
}

// SignInWithIdp signs in (or signs up) with a credential issued by a federated
// identity provider.
func (c *Client) SignInWithIdp(ctx context.Context, apiKey APIKey, requestURI string, postBody *IdpPostBody) (*SignInWithIdpResponse, error) {
	if requestURI == "" || postBody == nil || postBody.Query == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "requestUri and postBody are required")
	}
	body := map[string]any{
		"requestUri":          requestURI,
		"postBody":            postBody.Query,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	resp, err := post[SignInWithIdpResponse](ctx, c, endpointSignInWithIdp, apiKey, body, nil)

	return resp, errors.Wrapf(err, "signInWithIdp(provider:%v) failed", postBody.Provider)
}
