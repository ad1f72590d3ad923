// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"strconv"
	stdlibtime "time"

	"github.com/pkg/errors"

	"github.com/emberfall/fireauth/rest"
	"github.com/emberfall/fireauth/time"
)

func newSession(cfg *Config, idToken rest.IDToken, refreshToken rest.RefreshToken, localID, expiresIn string) (*Session, error) {
	seconds, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(rest.ErrDeserializeResponse, "malformed expiresIn value: %v", expiresIn)
	}

	return &Session{
		cfg:          cfg,
		issuedAt:     time.Now(),
		IDToken:      idToken,
		RefreshToken: refreshToken,
		LocalID:      localID,
		expiresIn:    stdlibtime.Duration(seconds) * stdlibtime.Second,
	}, nil
}

// ExpiresAt reports when the local clock will consider the id token expired,
// margin not included.
func (s *Session) ExpiresAt() *time.Time {
	return time.New(s.issuedAt.Add(s.expiresIn))
}

// Fresh reports whether the id token can still be spent without a refresh,
// judged purely by the local clock plus the configured safety margin.
func (s *Session) Fresh() bool {
	return time.Now().Before(s.issuedAt.Add(s.expiresIn - s.cfg.expiryMargin))
}

// Refresh forces a token exchange regardless of freshness and returns the
// session carrying the rotated tokens. The receiver is consumed.
func (s *Session) Refresh(ctx context.Context) (*Session, error) {
	if s.deleted {
		return nil, ErrSessionDeleted
	}
	resp, err := s.cfg.client.ExchangeRefreshToken(ctx, s.cfg.apiKey, s.RefreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to refresh session")
	}
	localID := s.LocalID
	if localID == "" {
		localID = resp.UserID
	}
	next, err := newSession(s.cfg, resp.IDToken, resp.RefreshToken, localID, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	next.Email, next.Provider = s.Email, s.Provider

	return next, nil
}

// ensureFresh returns a session whose id token is spendable right now,
// refreshing the receiver first when the clock says it is about to expire.
// A refresh failure aborts the operation that asked for it.
func (s *Session) ensureFresh(ctx context.Context) (*Session, error) {
	if s.deleted {
		return nil, ErrSessionDeleted
	}
	if s.Fresh() {
		return s, nil
	}

	return s.Refresh(ctx)
}

// advance carries the session forward after an operation, adopting rotated
// tokens when the response contains them.
func (s *Session) advance(idToken rest.IDToken, refreshToken rest.RefreshToken, expiresIn string) (*Session, error) {
	if idToken == "" { // The remote kept the credential as is.
		next := *s

		return &next, nil
	}
	next, err := newSession(s.cfg, idToken, refreshToken, s.LocalID, expiresIn)
	if err != nil {
		return nil, err
	}
	next.Email, next.Provider = s.Email, s.Provider

	return next, nil
}

func (s *Session) GetUserData(ctx context.Context) (*rest.UserData, *Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, nil, err
	}
	data, err := cur.cfg.client.GetUserData(ctx, cur.cfg.apiKey, cur.IDToken)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get user data")
	}
	next := *cur

	return data, &next, nil
}

func (s *Session) SendEmailVerification(ctx context.Context) (*Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	if _, err = cur.cfg.client.SendEmailVerification(ctx, cur.cfg.apiKey, cur.IDToken, cur.cfg.locale); err != nil {
		return nil, errors.Wrap(err, "failed to send email verification")
	}
	next := *cur

	return &next, nil
}

func (s *Session) ChangeEmail(ctx context.Context, newEmail rest.Email) (*Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cur.cfg.client.ChangeEmail(ctx, cur.cfg.apiKey, cur.IDToken, newEmail, cur.cfg.locale)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to change email to:%v", newEmail)
	}
	next, err := cur.advance(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	next.Email = newEmail

	return next, nil
}

func (s *Session) ChangePassword(ctx context.Context, newPassword rest.Password) (*Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cur.cfg.client.ChangePassword(ctx, cur.cfg.apiKey, cur.IDToken, newPassword)
	if err != nil {
		return nil, errors.Wrap(err, "failed to change password")
	}

	return cur.advance(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
}

func (s *Session) UpdateProfile(ctx context.Context, params *rest.UpdateProfileParams) (*Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cur.cfg.client.UpdateProfile(ctx, cur.cfg.apiKey, cur.IDToken, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update profile")
	}

	return cur.advance(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
}

// LinkWithEmailPassword promotes the account behind this session (typically an
// anonymous one) to email+password sign-in.
func (s *Session) LinkWithEmailPassword(ctx context.Context, email rest.Email, password rest.Password) (*Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cur.cfg.client.LinkWithEmailPassword(ctx, cur.cfg.apiKey, cur.IDToken, email, password)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to link email:%v", email)
	}
	next, err := cur.advance(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	next.Email = email

	return next, nil
}

func (s *Session) LinkWithOAuthCredential(ctx context.Context, requestURI string, postBody *rest.IdpPostBody) (*Session, error) {
	if postBody == nil {
		return nil, errors.Wrap(rest.ErrInvalidArgument, "postBody is required")
	}
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cur.cfg.client.LinkWithOAuthCredential(ctx, cur.cfg.apiKey, cur.IDToken, requestURI, postBody)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to link provider:%v", postBody.Provider)
	}

	return cur.advance(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
}

func (s *Session) UnlinkProvider(ctx context.Context, providers ...rest.ProviderID) (*Session, error) {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, err
	}
	if _, err = cur.cfg.client.UnlinkProvider(ctx, cur.cfg.apiKey, cur.IDToken, providers...); err != nil {
		return nil, errors.Wrapf(err, "failed to unlink providers:%v", providers)
	}
	next := *cur

	return &next, nil
}

// DeleteAccount permanently removes the account. The session is terminal
// afterwards; any further operation returns ErrSessionDeleted.
func (s *Session) DeleteAccount(ctx context.Context) error {
	cur, err := s.ensureFresh(ctx)
	if err != nil {
		return err
	}
	if err = cur.cfg.client.DeleteAccount(ctx, cur.cfg.apiKey, cur.IDToken); err != nil {
		return errors.Wrap(err, "failed to delete account")
	}
	s.deleted, cur.deleted = true, true

	return nil
}
