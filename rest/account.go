// SPDX-License-Identifier: MIT

package rest

import (
	"context"

	"github.com/pkg/errors"
)

// ChangeEmail rebinds the account to a new email address. The optional locale
// localizes the revocation email sent to the previous address. The response
// usually carries a rotated credential.
func (c *Client) ChangeEmail(ctx context.Context, apiKey APIKey, idToken IDToken, newEmail Email, locale *LanguageCode) (*UpdateAccountResponse, error) {
	if idToken == "" || newEmail == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "id token and new email are required")
	}
	body := map[string]any{
		"idToken":           idToken,
		"email":             newEmail,
		"returnSecureToken": true,
	}
	resp, err := post[UpdateAccountResponse](ctx, c, endpointUpdate, apiKey, body, locale)

	return resp, errors.Wrapf(err, "update(email:%v) failed", newEmail)
}

func (c *Client) ChangePassword(ctx context.Context, apiKey APIKey, idToken IDToken, newPassword Password) (*UpdateAccountResponse, error) {
	if idToken == "" || newPassword == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "id token and new password are required")
	}
	body := map[string]any{
		"idToken":           idToken,
		"password":          newPassword,
		"returnSecureToken": true,
	}
	resp, err := post[UpdateAccountResponse](ctx, c, endpointUpdate, apiKey, body, nil)

	return resp, errors.Wrap(err, "update(password) failed")
}

// UpdateProfile sets or deletes display name and photo url in one call.
func (c *Client) UpdateProfile(ctx context.Context, apiKey APIKey, idToken IDToken, params *UpdateProfileParams) (*UpdateAccountResponse, error) {
	if idToken == "" || params == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "id token and profile params are required")
	}
	body := map[string]any{
		"idToken":           idToken,
		"returnSecureToken": true,
	}
	if params.DisplayName != nil {
		body["displayName"] = *params.DisplayName
	}
	if params.PhotoURL != nil {
		body["photoUrl"] = *params.PhotoURL
	}
	deleteAttribute := make([]string, 0, 2) //nolint:mnd,gomnd // Display name + photo url.
	if params.DeleteDisplayName {
		deleteAttribute = append(deleteAttribute, "DISPLAY_NAME")
	}
	if params.DeletePhotoURL {
		deleteAttribute = append(deleteAttribute, "PHOTO_URL")
	}
	if len(deleteAttribute) != 0 {
		body["deleteAttribute"] = deleteAttribute
	}
	resp, err := post[UpdateAccountResponse](ctx, c, endpointUpdate, apiKey, body, nil)

	return resp, errors.Wrap(err, "update(profile) failed")
}

// LinkWithEmailPassword attaches email+password sign-in to an existing account,
// typically to promote an anonymous one.
func (c *Client) LinkWithEmailPassword(ctx context.Context, apiKey APIKey, idToken IDToken, email Email, password Password) (*LinkWithEmailPasswordResponse, error) {
	if idToken == "" || email == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "id token, email and password are required")
	}
	body := map[string]any{
		"idToken":           idToken,
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	resp, err := post[LinkWithEmailPasswordResponse](ctx, c, endpointUpdate, apiKey, body, nil)

	return resp, errors.Wrapf(err, "update(link email:%v) failed", email)
}

// LinkWithOAuthCredential attaches a federated identity to an existing account.
func (c *Client) LinkWithOAuthCredential(ctx context.Context, apiKey APIKey, idToken IDToken, requestURI string, postBody *IdpPostBody) (*SignInWithIdpResponse, error) {
	if idToken == "" || requestURI == "" || postBody == nil || postBody.Query == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "id token, requestUri and postBody are required")
	}
	body := map[string]any{
		"idToken":             idToken,
		"requestUri":          requestURI,
		"postBody":            postBody.Query,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	resp, err := post[SignInWithIdpResponse](ctx, c, endpointSignInWithIdp, apiKey, body, nil)

	return resp, errors.Wrapf(err, "signInWithIdp(link provider:%v) failed", postBody.Provider)
}

func (c *Client) UnlinkProvider(ctx context.Context, apiKey APIKey, idToken IDToken, providers ...ProviderID) (*UnlinkProviderResponse, error) {
	if idToken == "" || len(providers) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "id token and at least one provider are required")
	}
	body := map[string]any{
		"idToken":        idToken,
		"deleteProvider": providers,
	}
	resp, err := post[UnlinkProviderResponse](ctx, c, endpointUpdate, apiKey, body, nil)

	return resp, errors.Wrapf(err, "update(unlink providers:%v) failed", providers)
}

// GetUserData fetches the account record bound to the given credential.
func (c *Client) GetUserData(ctx context.Context, apiKey APIKey, idToken IDToken) (*UserData, error) {
	if idToken == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "id token is required")
	}
	body := map[string]any{
		"idToken": idToken,
	}
	resp, err := post[GetUserDataResponse](ctx, c, endpointLookup, apiKey, body, nil)
	if err != nil {
		return nil, errors.Wrap(err, "lookup failed")
	}
	if len(resp.Users) == 0 {
		return nil, errors.Wrap(ErrNoUserData, "lookup succeeded with an empty users list")
	}

	return resp.Users[0], nil
}

// DeleteAccount permanently removes the account bound to the given credential.
func (c *Client) DeleteAccount(ctx context.Context, apiKey APIKey, idToken IDToken) error {
	if idToken == "" {
		return errors.Wrap(ErrInvalidArgument, "id token is required")
	}
	body := map[string]any{
		"idToken": idToken,
	}
	_, err := post[struct{}](ctx, c, endpointDelete, apiKey, body, nil)

	return errors.Wrap(err, "delete failed")
}
