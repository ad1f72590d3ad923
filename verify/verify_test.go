// SPDX-License-Identifier: MIT

package verify_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfall/fireauth/rest"
	"github.com/emberfall/fireauth/verify"
)

const (
	testApplicationYAMLKey = "self"
	testProjectID          = "fake-local-project"
	testKid                = "test-signing-key-1"
)

// .
var (
	//nolint:gochecknoglobals // Single signing identity for all the tests in the package.
	signingKey *rsa.PrivateKey
	//nolint:gochecknoglobals // Single mock cert endpoint for all the tests in the package.
	certsServer *httptest.Server
	//nolint:gochecknoglobals // It's a stateless singleton for tests.
	verifier *verify.Verifier
	//nolint:gochecknoglobals // Counts cert endpoint hits, to assert on caching.
	certFetches int
)

func TestMain(m *testing.M) {
	var err error
	signingKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	certPEM := selfSignedCertPEM(signingKey)
	certsServer = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		certFetches++
		writer.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]string{testKid: certPEM}) //nolint:errcheck // Best effort.
	}))
	verifier = verify.New(testApplicationYAMLKey, verify.WithCertsURL(certsServer.URL))
	code := m.Run()
	certsServer.Close()
	os.Exit(code)
}

func selfSignedCertPEM(key *rsa.PrivateKey) string {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken@system.gserviceaccount.com"},
		NotBefore:    stdlibtime.Now().Add(-stdlibtime.Hour),
		NotAfter:     stdlibtime.Now().Add(stdlibtime.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		panic(err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func mintIDToken(tb testing.TB, key *rsa.PrivateKey, kid string, mutate func(jwt.MapClaims)) rest.IDToken {
	tb.Helper()
	now := stdlibtime.Now()
	claims := jwt.MapClaims{
		"iss":       "https://securetoken.google.com/" + testProjectID,
		"aud":       testProjectID,
		"sub":       "some-local-id",
		"user_id":   "some-local-id",
		"email":     "jdoe@example.com",
		"auth_time": now.Add(-stdlibtime.Minute).Unix(),
		"iat":       now.Add(-stdlibtime.Minute).Unix(),
		"exp":       now.Add(stdlibtime.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(tb, err)

	return rest.IDToken(signed)
}

func TestVerifyIDToken(t *testing.T) { //nolint:paralleltest // The cert fetch counter is shared.
	ctx := t.Context()
	claims, err := verifier.VerifyIDToken(ctx, mintIDToken(t, signingKey, testKid, nil))
	require.NoError(t, err)
	assert.Equal(t, "some-local-id", claims.Subject)
	assert.Equal(t, "some-local-id", claims.UserID)
	assert.Equal(t, "jdoe@example.com", claims.Email)
	require.NotNil(t, claims.AuthTime)

	// Certificates stay cached for as long as their Cache-Control allows.
	fetchesSoFar := certFetches
	_, err = verifier.VerifyIDToken(ctx, mintIDToken(t, signingKey, testKid, nil))
	require.NoError(t, err)
	assert.Equal(t, fetchesSoFar, certFetches)
}

func TestVerifyIDTokenMalformed(t *testing.T) { //nolint:paralleltest // The cert fetch counter is shared.
	_, err := verifier.VerifyIDToken(t.Context(), "not.a.jwt")
	require.ErrorIs(t, err, verify.ErrMalformedToken)
	_, err = verifier.VerifyIDToken(t.Context(), "")
	require.ErrorIs(t, err, verify.ErrMalformedToken)
}

func TestVerifyIDTokenExpired(t *testing.T) { //nolint:paralleltest // The cert fetch counter is shared.
	token := mintIDToken(t, signingKey, testKid, func(claims jwt.MapClaims) {
		claims["exp"] = stdlibtime.Now().Add(-stdlibtime.Hour).Unix()
	})
	_, err := verifier.VerifyIDToken(t.Context(), token)
	require.ErrorIs(t, err, verify.ErrExpiredToken)
}

func TestVerifyIDTokenSignature(t *testing.T) { //nolint:paralleltest // The cert fetch counter is shared.
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = verifier.VerifyIDToken(t.Context(), mintIDToken(t, otherKey, testKid, nil))
	require.ErrorIs(t, err, verify.ErrInvalidSignature)

	_, err = verifier.VerifyIDToken(t.Context(), mintIDToken(t, signingKey, "unpublished-kid", nil))
	require.ErrorIs(t, err, verify.ErrInvalidSignature)
}

func TestVerifyIDTokenClaimMismatch(t *testing.T) { //nolint:paralleltest // The cert fetch counter is shared.
	wrongAudience := mintIDToken(t, signingKey, testKid, func(claims jwt.MapClaims) {
		claims["aud"] = "somebody-elses-project"
	})
	_, err := verifier.VerifyIDToken(t.Context(), wrongAudience)
	require.ErrorIs(t, err, verify.ErrClaimMismatch)

	wrongIssuer := mintIDToken(t, signingKey, testKid, func(claims jwt.MapClaims) {
		claims["iss"] = "https://accounts.google.com"
	})
	_, err = verifier.VerifyIDToken(t.Context(), wrongIssuer)
	require.ErrorIs(t, err, verify.ErrClaimMismatch)

	missingAuthTime := mintIDToken(t, signingKey, testKid, func(claims jwt.MapClaims) {
		delete(claims, "auth_time")
	})
	_, err = verifier.VerifyIDToken(t.Context(), missingAuthTime)
	require.ErrorIs(t, err, verify.ErrClaimMismatch)
}
