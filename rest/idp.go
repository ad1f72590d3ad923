// SPDX-License-Identifier: MIT

package rest

import (
	"net/url"
)

// NewGoogleIdpPostBody builds the signInWithIdp credential blob for Google,
// which hands back an OpenID Connect id token rather than an access token.
func NewGoogleIdpPostBody(idToken string) *IdpPostBody {
	return newIdpPostBody(ProviderGoogle, "id_token", idToken, nil)
}

func NewAppleIdpPostBody(idToken string) *IdpPostBody {
	return newIdpPostBody(ProviderApple, "id_token", idToken, nil)
}

func NewFacebookIdpPostBody(accessToken string) *IdpPostBody {
	return newIdpPostBody(ProviderFacebook, "access_token", accessToken, nil)
}

func NewGitHubIdpPostBody(accessToken string) *IdpPostBody {
	return newIdpPostBody(ProviderGitHub, "access_token", accessToken, nil)
}

func NewLinkedInIdpPostBody(accessToken string) *IdpPostBody {
	return newIdpPostBody(ProviderLinkedIn, "access_token", accessToken, nil)
}

func NewMicrosoftIdpPostBody(accessToken string) *IdpPostBody {
	return newIdpPostBody(ProviderMicrosoft, "access_token", accessToken, nil)
}

func NewYahooIdpPostBody(accessToken string) *IdpPostBody {
	return newIdpPostBody(ProviderYahoo, "access_token", accessToken, nil)
}

// NewTwitterIdpPostBody needs both halves of the OAuth 1.0a credential.
func NewTwitterIdpPostBody(accessToken, oauthTokenSecret string) *IdpPostBody {
	extra := map[string]string{"oauth_token_secret": oauthTokenSecret}

	return newIdpPostBody(ProviderTwitter, "access_token", accessToken, extra)
}

// NewIdpPostBody builds a credential blob for any provider, assuming the
// access-token convention. Prefer the provider-specific constructors.
func NewIdpPostBody(provider ProviderID, accessToken string) *IdpPostBody {
	return newIdpPostBody(provider, "access_token", accessToken, nil)
}

func newIdpPostBody(provider ProviderID, tokenField, token string, extra map[string]string) *IdpPostBody {
	values := url.Values{}
	values.Set(tokenField, token)
	values.Set("providerId", string(provider))
	for key, val := range extra {
		values.Set(key, val)
	}

	return &IdpPostBody{Query: values.Encode(), Provider: provider}
}
