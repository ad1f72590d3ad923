// SPDX-License-Identifier: MIT

package verify

import (
	"context"
	"os"
	"strconv"
	"strings"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	appcfg "github.com/emberfall/fireauth/config"
	"github.com/emberfall/fireauth/log"
	"github.com/emberfall/fireauth/rest"
	"github.com/emberfall/fireauth/time"
)

func New(applicationYAMLKey string, options ...Option) *Verifier {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	if cfg.Verify.ProjectID == "" {
		module := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(applicationYAMLKey, "-", "_"), "/", "_"))
		cfg.Verify.ProjectID = os.Getenv(module + "_VERIFY_PROJECT_ID")
		if cfg.Verify.ProjectID == "" {
			cfg.Verify.ProjectID = os.Getenv("FIREAUTH_PROJECT_ID")
		}
	}
	if cfg.Verify.ProjectID == "" {
		log.Panic(errors.Errorf("project id missing for applicationYAMLKey:%v", applicationYAMLKey))
	}
	if cfg.Verify.CertsURL == "" {
		cfg.Verify.CertsURL = defaultCertsURL
	}
	verifier := &Verifier{
		certs:     &certCache{certs: make(map[string]string)},
		certsURL:  cfg.Verify.CertsURL,
		projectID: rest.ProjectID(cfg.Verify.ProjectID),
	}
	for _, opt := range options {
		opt(verifier)
	}

	return verifier
}

// WithCertsURL overrides where signing certificates are fetched from.
// Intended for emulators and tests.
func WithCertsURL(certsURL string) Option {
	return func(v *Verifier) {
		v.certsURL = certsURL
	}
}

func WithProjectID(projectID rest.ProjectID) Option {
	return func(v *Verifier) {
		v.projectID = projectID
	}
}

// VerifyIDToken fully validates the token offline: RS256 signature against
// the project's published certificates, expiry, issuer, audience and the
// mandatory subject/auth_time claims. The returned error chain always contains
// exactly one of ErrMalformedToken, ErrExpiredToken, ErrInvalidSignature or
// ErrClaimMismatch.
func (v *Verifier) VerifyIDToken(ctx context.Context, idToken rest.IDToken) (*Claims, error) {
	certs, err := v.signingCerts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch signing certificates")
	}
	claims := new(Claims)
	_, err = jwt.ParseWithClaims(string(idToken), claims, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.Wrap(ErrMalformedToken, "missing kid header")
		}
		cert, found := certs[kid]
		if !found {
			return nil, errors.Wrapf(ErrInvalidSignature, "no certificate published for kid:%v", kid)
		}
		publicKey, pErr := jwt.ParseRSAPublicKeyFromPEM([]byte(cert))

		return publicKey, errors.Wrapf(pErr, "malformed certificate published for kid:%v", kid)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuerPrefix+string(v.projectID)),
		jwt.WithAudience(string(v.projectID)),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt())
	if err != nil {
		return nil, v.classify(err)
	}
	if claims.Subject == "" || claims.AuthTime == nil {
		return nil, errors.Wrap(ErrClaimMismatch, "missing sub or auth_time claim")
	}

	return claims, nil
}

// classify folds jwt/v5's error taxonomy into the package's 4 failure kinds,
// keeping the original chain for context.
func (*Verifier) classify(err error) error {
	switch {
	case errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrClaimMismatch):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.Wrapf(ErrMalformedToken, "%v", err)
	case errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.Wrapf(ErrExpiredToken, "%v", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.Wrapf(ErrInvalidSignature, "%v", err)
	default:
		return errors.Wrapf(ErrClaimMismatch, "%v", err)
	}
}

func (v *Verifier) signingCerts(ctx context.Context) (map[string]string, error) {
	v.certs.mx.RLock()
	if v.certs.expiresAt != nil && time.Now().Before(*v.certs.expiresAt.Time) {
		certs := v.certs.certs
		v.certs.mx.RUnlock()

		return certs, nil
	}
	v.certs.mx.RUnlock()

	v.certs.mx.Lock()
	defer v.certs.mx.Unlock()
	if v.certs.expiresAt != nil && time.Now().Before(*v.certs.expiresAt.Time) {
		return v.certs.certs, nil
	}
	reqCtx, cancel := context.WithTimeout(ctx, requestDeadline)
	defer cancel()
	resp, err := req.DefaultClient().R().
		SetContext(reqCtx).
		SetHeader("Accept", "application/json").
		Get(v.certsURL)
	if err != nil {
		return nil, errors.Wrapf(err, "get `%v` failed", v.certsURL)
	}
	respBody, err := resp.ToBytes()
	if err != nil || resp.IsErrorState() {
		return nil, errors.Wrapf(err, "get `%v` failed with statusCode:%v", v.certsURL, resp.GetStatusCode())
	}
	certs := make(map[string]string)
	if err = json.Unmarshal(respBody, &certs); err != nil {
		return nil, errors.Wrapf(rest.ErrDeserializeResponse, "get `%v` returned a malformed certificate map: %v", v.certsURL, err)
	}
	v.certs.certs = certs
	v.certs.expiresAt = time.New(time.Now().Add(cacheMaxAge(resp.GetHeader("Cache-Control"))))

	return certs, nil
}

// cacheMaxAge extracts max-age from a Cache-Control header, zero when absent.
func cacheMaxAge(cacheControl string) stdlibtime.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if value, found := strings.CutPrefix(directive, "max-age="); found {
			if seconds, err := strconv.ParseInt(value, 10, 64); err == nil && seconds > 0 {
				return stdlibtime.Duration(seconds) * stdlibtime.Second
			}
		}
	}

	return 0
}
