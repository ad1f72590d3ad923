// SPDX-License-Identifier: MIT

package rest_test

import (
	"context"
	"os"
	"strings"
	"testing"
	stdlibtime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfall/fireauth/auth/fixture"
	"github.com/emberfall/fireauth/rest"
)

const (
	testApplicationYAMLKey = "self"
	testAPIKey             = rest.APIKey("fake-local-api-key")
	testDeadline           = 30 * stdlibtime.Second
)

// .
var (
	//nolint:gochecknoglobals // Single mock remote for all the tests in the package.
	remote *fixture.Server
	//nolint:gochecknoglobals // It's a stateless singleton for tests.
	client *rest.Client
)

func TestMain(m *testing.M) {
	remote = fixture.New(testAPIKey)
	client = rest.New(testApplicationYAMLKey, rest.WithBaseURL(remote.URL), rest.WithTokenBaseURL(remote.URL))
	code := m.Run()
	remote.Close()
	os.Exit(code)
}

func TestClientSignUpThenSignInWithEmailPassword(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	signUpResp, err := client.SignUpWithEmailPassword(ctx, testAPIKey, "jdoe@example.com", "s3cr3t!")
	require.NoError(t, err)
	require.NotEmpty(t, signUpResp.IDToken)
	require.NotEmpty(t, signUpResp.RefreshToken)
	require.NotEmpty(t, signUpResp.LocalID)
	assert.Equal(t, rest.Email("jdoe@example.com"), signUpResp.Email)
	assert.Equal(t, "3600", signUpResp.ExpiresIn)

	signInResp, err := client.SignInWithEmailPassword(ctx, testAPIKey, "jdoe@example.com", "s3cr3t!")
	require.NoError(t, err)
	assert.Equal(t, signUpResp.LocalID, signInResp.LocalID)
	assert.True(t, signInResp.Registered)
	assert.NotEqual(t, signUpResp.IDToken, signInResp.IDToken)

	_, err = client.SignUpWithEmailPassword(ctx, testAPIKey, "jdoe@example.com", "another")
	require.Error(t, err)
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeEmailExists, apiErr.Code)

	_, err = client.SignInWithEmailPassword(ctx, testAPIKey, "jdoe@example.com", "wrong")
	apiErr = rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidPassword, apiErr.Code)
}

func TestClientTokenExchangeUsesFormEncodingAndRotatesTokens(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	signUpResp, err := client.SignUpAnonymously(ctx, testAPIKey)
	require.NoError(t, err)

	remote.ResetCalls()
	exchangeResp, err := client.ExchangeRefreshToken(ctx, testAPIKey, signUpResp.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, exchangeResp.IDToken)
	assert.Equal(t, "Bearer", exchangeResp.TokenType)
	assert.Equal(t, signUpResp.LocalID, exchangeResp.UserID)
	assert.NotEqual(t, signUpResp.IDToken, exchangeResp.IDToken)
	assert.NotEqual(t, signUpResp.RefreshToken, exchangeResp.RefreshToken)

	calls := remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/token", calls[0].Endpoint)
	assert.True(t, strings.HasPrefix(calls[0].ContentType, "application/x-www-form-urlencoded"), calls[0].ContentType)

	// The old refresh token is burned by the rotation.
	_, err = client.ExchangeRefreshToken(ctx, testAPIKey, signUpResp.RefreshToken)
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidRefreshToken, apiErr.Code)
}

func TestClientAccountEndpointsUseJSONEncoding(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.ResetCalls()
	_, err := client.SignUpAnonymously(ctx, testAPIKey)
	require.NoError(t, err)
	calls := remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/accounts:signUp", calls[0].Endpoint)
	assert.True(t, strings.HasPrefix(calls[0].ContentType, "application/json"), calls[0].ContentType)
}

func TestClientSignInWithIdp(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	postBody := rest.NewGoogleIdpPostBody("some-google-openid-token")
	resp, err := client.SignInWithIdp(ctx, testAPIKey, "http://localhost/callback", postBody)
	require.NoError(t, err)
	assert.Equal(t, rest.ProviderGoogle, resp.ProviderID)
	assert.NotEmpty(t, resp.IDToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.EmailVerified)

	_, err = client.SignInWithIdp(ctx, testAPIKey, "http://localhost/callback", &rest.IdpPostBody{Query: "providerId=google.com", Provider: rest.ProviderGoogle})
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidIdpResponse, apiErr.Code)
}

func TestClientOobCodeFlows(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	signUpResp, err := client.SignUpWithEmailPassword(ctx, testAPIKey, "reset-me@example.com", "0riginal")
	require.NoError(t, err)

	locale := rest.LanguageCode("pt-BR")
	sendResp, err := client.SendPasswordResetEmail(ctx, testAPIKey, "reset-me@example.com", &locale)
	require.NoError(t, err)
	assert.Equal(t, rest.Email("reset-me@example.com"), sendResp.Email)

	code := remote.LastOobCode()
	require.NotEmpty(t, code)
	verifyResp, err := client.VerifyPasswordResetCode(ctx, testAPIKey, code)
	require.NoError(t, err)
	assert.Equal(t, "PASSWORD_RESET", verifyResp.RequestType)

	_, err = client.ConfirmPasswordReset(ctx, testAPIKey, code, "n3w-pass")
	require.NoError(t, err)
	_, err = client.SignInWithEmailPassword(ctx, testAPIKey, "reset-me@example.com", "n3w-pass")
	require.NoError(t, err)

	_, err = client.ConfirmPasswordReset(ctx, testAPIKey, code, "again")
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidOobCode, apiErr.Code)

	_, err = client.SendEmailVerification(ctx, testAPIKey, signUpResp.IDToken, nil)
	require.NoError(t, err)
	_, err = client.ConfirmEmailVerification(ctx, testAPIKey, remote.LastOobCode())
	require.NoError(t, err)
	assert.True(t, remote.User(signUpResp.LocalID).EmailVerified)
}

func TestClientOobCodesTrackIssueOrder(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	_, err := client.SignUpWithEmailPassword(ctx, testAPIKey, "first-reset@example.com", "s3cr3t!")
	require.NoError(t, err)
	_, err = client.SignUpWithEmailPassword(ctx, testAPIKey, "second-reset@example.com", "s3cr3t!")
	require.NoError(t, err)

	_, err = client.SendPasswordResetEmail(ctx, testAPIKey, "first-reset@example.com", nil)
	require.NoError(t, err)
	firstCode := remote.LastOobCode()
	_, err = client.SendPasswordResetEmail(ctx, testAPIKey, "second-reset@example.com", nil)
	require.NoError(t, err)

	// Two codes are outstanding now; the helper reports the newest one.
	assert.NotEqual(t, firstCode, remote.LastOobCode())
	verifyResp, err := client.VerifyPasswordResetCode(ctx, testAPIKey, remote.LastOobCode())
	require.NoError(t, err)
	assert.Equal(t, rest.Email("second-reset@example.com"), verifyResp.Email)
	verifyResp, err = client.VerifyPasswordResetCode(ctx, testAPIKey, firstCode)
	require.NoError(t, err)
	assert.Equal(t, rest.Email("first-reset@example.com"), verifyResp.Email)
}

func TestClientProfileAndLookup(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	signUpResp, err := client.SignUpWithEmailPassword(ctx, testAPIKey, "profile@example.com", "s3cr3t!")
	require.NoError(t, err)

	displayName, photoURL := "John Doe", "https://example.com/jdoe.png"
	updateResp, err := client.UpdateProfile(ctx, testAPIKey, signUpResp.IDToken, &rest.UpdateProfileParams{DisplayName: &displayName, PhotoURL: &photoURL})
	require.NoError(t, err)
	assert.Equal(t, displayName, updateResp.DisplayName)
	require.NotEmpty(t, updateResp.IDToken)

	userData, err := client.GetUserData(ctx, testAPIKey, updateResp.IDToken)
	require.NoError(t, err)
	assert.Equal(t, signUpResp.LocalID, userData.LocalID)
	assert.Equal(t, displayName, userData.DisplayName)
	assert.Equal(t, photoURL, userData.PhotoURL)

	deleteResp, err := client.UpdateProfile(ctx, testAPIKey, updateResp.IDToken, &rest.UpdateProfileParams{DeleteDisplayName: true, DeletePhotoURL: true})
	require.NoError(t, err)
	userData, err = client.GetUserData(ctx, testAPIKey, deleteResp.IDToken)
	require.NoError(t, err)
	assert.Empty(t, userData.DisplayName)
	assert.Empty(t, userData.PhotoURL)
}

func TestClientLinkUnlinkAndProviders(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	anonResp, err := client.SignUpAnonymously(ctx, testAPIKey)
	require.NoError(t, err)

	linkResp, err := client.LinkWithEmailPassword(ctx, testAPIKey, anonResp.IDToken, "promoted@example.com", "s3cr3t!")
	require.NoError(t, err)
	require.NotEmpty(t, linkResp.IDToken)

	oauthResp, err := client.LinkWithOAuthCredential(ctx, testAPIKey, anonResp.IDToken, "http://localhost/callback", rest.NewGitHubIdpPostBody("gh-access-token"))
	require.NoError(t, err)
	require.NotEmpty(t, oauthResp.IDToken)

	providersResp, err := client.FetchProvidersForEmail(ctx, testAPIKey, "promoted@example.com", "http://localhost")
	require.NoError(t, err)
	assert.True(t, providersResp.Registered)
	assert.Contains(t, providersResp.AllProviders, rest.ProviderPassword)
	assert.Contains(t, providersResp.AllProviders, rest.ProviderGitHub)

	_, err = client.UnlinkProvider(ctx, testAPIKey, oauthResp.IDToken, rest.ProviderGitHub)
	require.NoError(t, err)
	providersResp, err = client.FetchProvidersForEmail(ctx, testAPIKey, "promoted@example.com", "http://localhost")
	require.NoError(t, err)
	assert.NotContains(t, providersResp.AllProviders, rest.ProviderGitHub)
	assert.Contains(t, providersResp.AllProviders, rest.ProviderPassword)
}

func TestClientDeleteAccount(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	signUpResp, err := client.SignUpAnonymously(ctx, testAPIKey)
	require.NoError(t, err)
	require.NoError(t, client.DeleteAccount(ctx, testAPIKey, signUpResp.IDToken))

	_, err = client.GetUserData(ctx, testAPIKey, signUpResp.IDToken)
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidIDToken, apiErr.Code)
	assert.True(t, rest.IsInvalidIDToken(err))
}

func TestClientRejectsWrongAPIKey(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	_, err := client.SignUpAnonymously(ctx, "wrong-key")
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidAPIKey, apiErr.Code)
}

func TestClientValidatesArguments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := client.SignInWithEmailPassword(ctx, testAPIKey, "", "")
	require.ErrorIs(t, err, rest.ErrInvalidArgument)
	_, err = client.ExchangeRefreshToken(ctx, testAPIKey, "")
	require.ErrorIs(t, err, rest.ErrInvalidArgument)
	_, err = client.SignInWithIdp(ctx, testAPIKey, "http://localhost", nil)
	require.ErrorIs(t, err, rest.ErrInvalidArgument)
	err = client.DeleteAccount(ctx, testAPIKey, "")
	require.ErrorIs(t, err, rest.ErrInvalidArgument)
}
