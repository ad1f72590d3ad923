// SPDX-License-Identifier: MIT

package auth_test

import (
	"context"
	"os"
	"testing"
	stdlibtime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfall/fireauth/auth"
	"github.com/emberfall/fireauth/auth/fixture"
	"github.com/emberfall/fireauth/rest"
)

const (
	testApplicationYAMLKey = "self"
	testAPIKey             = rest.APIKey("fake-local-api-key")
	testDeadline           = 30 * stdlibtime.Second
	staleExpiresInSeconds  = 30 // Below the expiry margin, so such tokens are stale from the start.
)

// .
var (
	//nolint:gochecknoglobals // Single mock remote for all the tests in the package.
	remote *fixture.Server
	//nolint:gochecknoglobals // It's a stateless singleton for tests.
	cfg *auth.Config
)

func TestMain(m *testing.M) {
	remote = fixture.New(testAPIKey)
	client := rest.New(testApplicationYAMLKey, rest.WithBaseURL(remote.URL), rest.WithTokenBaseURL(remote.URL))
	cfg = auth.NewConfig(testAPIKey, client, auth.WithExpiryMargin(stdlibtime.Minute))
	code := m.Run()
	remote.Close()
	os.Exit(code)
}

func TestNewLoadsAPIKeyFromApplicationYAML(t *testing.T) {
	t.Parallel()
	loaded := auth.New(testApplicationYAMLKey)
	assert.Equal(t, testAPIKey, loaded.APIKey())
	assert.Equal(t, rest.ProjectID("fake-local-project"), loaded.ProjectID())
	require.NotNil(t, loaded.Client())
}

func TestSessionFreshTokenIsSpentWithoutRefresh(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignUpWithEmailPassword(ctx, "fresh@example.com", "s3cr3t!")
	require.NoError(t, err)
	require.True(t, session.Fresh())

	remote.ResetCalls()
	userData, next, err := session.GetUserData(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, session.LocalID, userData.LocalID)
	assert.Zero(t, remote.CallsTo("/token"))
	assert.Equal(t, 1, remote.CallsTo("accounts:lookup"))
	// No rotation happened, the credential is carried forward.
	assert.Equal(t, session.IDToken, next.IDToken)
	assert.Equal(t, session.RefreshToken, next.RefreshToken)
}

func TestSessionStaleTokenIsRefreshedFirstThenSpent(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(staleExpiresInSeconds)
	session, err := cfg.SignUpWithEmailPassword(ctx, "stale@example.com", "s3cr3t!")
	require.NoError(t, err)
	require.False(t, session.Fresh())
	remote.SetExpiresIn(3600)

	remote.ResetCalls()
	userData, next, err := session.GetUserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.LocalID, userData.LocalID)
	// Exactly one refresh exchange, then the call itself.
	assert.Equal(t, 1, remote.CallsTo("/token"))
	assert.Equal(t, 1, remote.CallsTo("accounts:lookup"))
	assert.NotEqual(t, session.IDToken, next.IDToken)
	assert.NotEqual(t, session.RefreshToken, next.RefreshToken)
	require.True(t, next.Fresh())

	remote.ResetCalls()
	_, _, err = next.GetUserData(ctx)
	require.NoError(t, err)
	assert.Zero(t, remote.CallsTo("/token"))
}

func TestSessionRefreshFailureAbortsTheOperation(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(staleExpiresInSeconds)
	session, err := cfg.SignUpWithEmailPassword(ctx, "aborted@example.com", "s3cr3t!")
	require.NoError(t, err)
	remote.SetExpiresIn(3600)
	// Burn the refresh token behind the session's back.
	_, err = cfg.Client().ExchangeRefreshToken(ctx, testAPIKey, session.RefreshToken)
	require.NoError(t, err)

	remote.ResetCalls()
	_, _, err = session.GetUserData(ctx)
	require.Error(t, err)
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeInvalidRefreshToken, apiErr.Code)
	assert.Equal(t, 1, remote.CallsTo("/token"))
	assert.Zero(t, remote.CallsTo("accounts:lookup"))
}

func TestSessionOperationsAdoptRotatedTokens(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignUpWithEmailPassword(ctx, "rotated@example.com", "s3cr3t!")
	require.NoError(t, err)
	assert.Equal(t, rest.Email("rotated@example.com"), session.Email)
	assert.Equal(t, rest.ProviderPassword, session.Provider)

	next, err := session.ChangePassword(ctx, "n3w-s3cr3t!")
	require.NoError(t, err)
	assert.NotEqual(t, session.IDToken, next.IDToken)

	next2, err := next.ChangeEmail(ctx, "rotated-again@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, next.IDToken, next2.IDToken)
	assert.Equal(t, rest.Email("rotated-again@example.com"), next2.Email)

	userData, _, err := next2.GetUserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, rest.Email("rotated-again@example.com"), userData.Email)
}

func TestSessionProfileAndLinking(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignInAnonymously(ctx)
	require.NoError(t, err)

	session, err = session.LinkWithEmailPassword(ctx, "promoted-session@example.com", "s3cr3t!")
	require.NoError(t, err)
	session, err = session.LinkWithOAuthCredential(ctx, "http://localhost/callback", rest.NewGitHubIdpPostBody("gh-access-token"))
	require.NoError(t, err)

	displayName := "Jane Doe"
	session, err = session.UpdateProfile(ctx, &rest.UpdateProfileParams{DisplayName: &displayName})
	require.NoError(t, err)
	userData, session, err := session.GetUserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, displayName, userData.DisplayName)

	providers, err := cfg.FetchProvidersForEmail(ctx, "promoted-session@example.com", "http://localhost")
	require.NoError(t, err)
	assert.Contains(t, providers, rest.ProviderGitHub)
	session, err = session.UnlinkProvider(ctx, rest.ProviderGitHub)
	require.NoError(t, err)
	require.NotNil(t, session)
}

func TestNilOAuthCredentialIsRejectedNotPanicked(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	require.NotPanics(t, func() {
		_, err := cfg.SignInWithOAuthCredential(ctx, "http://localhost/callback", nil)
		require.ErrorIs(t, err, rest.ErrInvalidArgument)
	})

	remote.SetExpiresIn(3600)
	session, err := cfg.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		_, lErr := session.LinkWithOAuthCredential(ctx, "http://localhost/callback", nil)
		require.ErrorIs(t, lErr, rest.ErrInvalidArgument)
	})
}

func TestSessionRemotelyRevokedTokenSurfacesError(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignUpWithEmailPassword(ctx, "revoked@example.com", "s3cr3t!")
	require.NoError(t, err)
	require.True(t, session.Fresh())
	// The remote can reject a token the local clock still considers fresh;
	// that error surfaces as is, it never triggers a refresh-and-retry.
	remote.ExpireIDToken(session.IDToken)

	remote.ResetCalls()
	_, _, err = session.GetUserData(ctx)
	require.Error(t, err)
	apiErr := rest.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, rest.CodeTokenExpired, apiErr.Code)
	assert.True(t, rest.IsInvalidIDToken(err))
	assert.Zero(t, remote.CallsTo("/token"))
	assert.Equal(t, 1, remote.CallsTo("accounts:lookup"))
}

func TestSessionDeleteAccountIsTerminal(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.NoError(t, session.DeleteAccount(ctx))

	_, _, err = session.GetUserData(ctx)
	require.ErrorIs(t, err, auth.ErrSessionDeleted)
	_, err = session.Refresh(ctx)
	require.ErrorIs(t, err, auth.ErrSessionDeleted)
}

func TestSignInWithRefreshTokenResumesSession(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignUpWithEmailPassword(ctx, "resumed@example.com", "s3cr3t!")
	require.NoError(t, err)

	resumed, err := cfg.SignInWithRefreshToken(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.LocalID, resumed.LocalID)
	require.True(t, resumed.Fresh())

	_, err = cfg.SignInWithRefreshToken(ctx, session.RefreshToken)
	require.Error(t, err)
}

func TestSessionOobFlows(t *testing.T) { //nolint:paralleltest // The mock remote's call log is shared.
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	remote.SetExpiresIn(3600)
	session, err := cfg.SignUpWithEmailPassword(ctx, "oob-session@example.com", "s3cr3t!")
	require.NoError(t, err)

	session, err = session.SendEmailVerification(ctx)
	require.NoError(t, err)
	require.NoError(t, cfg.ConfirmEmailVerification(ctx, remote.LastOobCode()))
	userData, _, err := session.GetUserData(ctx)
	require.NoError(t, err)
	assert.True(t, userData.EmailVerified)

	require.NoError(t, cfg.SendPasswordResetEmail(ctx, "oob-session@example.com"))
	email, err := cfg.VerifyPasswordResetCode(ctx, remote.LastOobCode())
	require.NoError(t, err)
	assert.Equal(t, rest.Email("oob-session@example.com"), email)
	require.NoError(t, cfg.ConfirmPasswordReset(ctx, remote.LastOobCode(), "n3w-s3cr3t!"))
	_, err = cfg.SignInWithEmailPassword(ctx, "oob-session@example.com", "n3w-s3cr3t!")
	require.NoError(t, err)
}
