// SPDX-License-Identifier: MIT

package rest

import (
	"context"

	"github.com/pkg/errors"
)

// FetchProvidersForEmail lists the sign-in providers already registered for an
// email address, so a client can route the user to the right flow.
func (c *Client) FetchProvidersForEmail(ctx context.Context, apiKey APIKey, email Email, continueURI string) (*FetchProvidersForEmailResponse, error) {
	if email == "" || continueURI == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "email and continueUri are required")
	}
	body := map[string]any{
		"identifier":  email,
		"continueUri": continueURI,
	}
	resp, err := post[FetchProvidersForEmailResponse](ctx, c, endpointCreateAuthURI, apiKey, body, nil)

	return resp, errors.Wrapf(err, "createAuthUri(email:%v) failed", email)
}
