// SPDX-License-Identifier: MIT

package rest

import (
	"context"

	"github.com/pkg/errors"
)

// SendPasswordResetEmail triggers the out-of-band password reset flow. The
// optional locale localizes the email the remote sends.
func (c *Client) SendPasswordResetEmail(ctx context.Context, apiKey APIKey, email Email, locale *LanguageCode) (*SendOobCodeResponse, error) {
	if email == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "email is required")
	}
	body := map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}
	resp, err := post[SendOobCodeResponse](ctx, c, endpointSendOobCode, apiKey, body, locale)

	return resp, errors.Wrapf(err, "sendOobCode(PASSWORD_RESET, email:%v) failed", email)
}

// SendEmailVerification asks the remote to send a verification email to the
// address the given credential is bound to.
func (c *Client) SendEmailVerification(ctx context.Context, apiKey APIKey, idToken IDToken, locale *LanguageCode) (*SendOobCodeResponse, error) {
	if idToken == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "id token is required")
	}
	body := map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}
	resp, err := post[SendOobCodeResponse](ctx, c, endpointSendOobCode, apiKey, body, locale)

	return resp, errors.Wrap(err, "sendOobCode(VERIFY_EMAIL) failed")
}

// VerifyPasswordResetCode checks an out-of-band code without consuming it.
func (c *Client) VerifyPasswordResetCode(ctx context.Context, apiKey APIKey, oobCode string) (*ResetPasswordResponse, error) {
	if oobCode == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "oob code is required")
	}
	body := map[string]any{
		"oobCode": oobCode,
	}
	resp, err := post[ResetPasswordResponse](ctx, c, endpointResetPassword, apiKey, body, nil)

	return resp, errors.Wrap(err, "resetPassword(verify only) failed")
}

// ConfirmPasswordReset consumes an out-of-band code and sets the new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, apiKey APIKey, oobCode string, newPassword Password) (*ResetPasswordResponse, error) {
	if oobCode == "" || newPassword == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "oob code and new password are required")
	}
	body := map[string]any{
		"oobCode":     oobCode,
		"newPassword": newPassword,
	}
	resp, err := post[ResetPasswordResponse](ctx, c, endpointResetPassword, apiKey, body, nil)

	return resp, errors.Wrap(err, "resetPassword failed")
}

// ConfirmEmailVerification consumes a VERIFY_EMAIL out-of-band code.
func (c *Client) ConfirmEmailVerification(ctx context.Context, apiKey APIKey, oobCode string) (*ConfirmEmailVerificationResponse, error) {
	if oobCode == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "oob code is required")
	}
	body := map[string]any{
		"oobCode": oobCode,
	}
	resp, err := post[ConfirmEmailVerificationResponse](ctx, c, endpointUpdate, apiKey, body, nil)

	return resp, errors.Wrap(err, "update(confirm email verification) failed")
}
