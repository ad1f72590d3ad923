// SPDX-License-Identifier: MIT

package rest

import (
	"context"

	"github.com/pkg/errors"
)

// ExchangeRefreshToken trades a refresh token for a new id token. The remote
// may rotate the refresh token as well; callers must keep the returned one.
func (c *Client) ExchangeRefreshToken(ctx context.Context, apiKey APIKey, refreshToken RefreshToken) (*ExchangeRefreshTokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "refresh token is required")
	}
	form := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": string(refreshToken),
	}
	resp, err := postForm[ExchangeRefreshTokenResponse](ctx, c, endpointToken, apiKey, form)

	return resp, errors.Wrap(err, "token exchange failed")
}
