// SPDX-License-Identifier: MIT

package rest

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	appcfg "github.com/emberfall/fireauth/config"
)

func init() { //nolint:gochecknoinits // It's the only way to tweak the client.
	req.DefaultClient().SetJsonMarshal(json.Marshal)
	req.DefaultClient().SetJsonUnmarshal(json.Unmarshal)
	req.DefaultClient().GetClient().Timeout = requestDeadline
}

func New(applicationYAMLKey string, options ...Option) *Client {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	if cfg.RestAPI.BaseURL == "" {
		cfg.RestAPI.BaseURL = defaultBaseURL
	}
	if cfg.RestAPI.TokenBaseURL == "" {
		cfg.RestAPI.TokenBaseURL = defaultTokenBaseURL
	}
	cl := &Client{http: req.DefaultClient(), cfg: &cfg}
	for _, opt := range options {
		opt(cl)
	}

	return cl
}

// WithBaseURL overrides the account endpoints host. Intended for emulators.
func WithBaseURL(baseURL string) Option {
	return func(cl *Client) {
		cl.cfg.RestAPI.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTokenBaseURL overrides the token exchange host. Intended for emulators.
func WithTokenBaseURL(baseURL string) Option {
	return func(cl *Client) {
		cl.cfg.RestAPI.TokenBaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient swaps out the underlying transport client.
func WithHTTPClient(httpClient *req.Client) Option {
	return func(cl *Client) {
		cl.http = httpClient
	}
}

func (c *Client) endpointURL(endpoint string, apiKey APIKey) string {
	base := c.cfg.RestAPI.BaseURL
	if endpoint == endpointToken {
		base = c.cfg.RestAPI.TokenBaseURL
	}

	return base + "/" + endpoint + "?key=" + string(apiKey)
}

// post sends the request body as JSON and decodes a successful JSON response
// into T. Exactly one HTTP call is made per invocation.
func post[T any](ctx context.Context, cl *Client, endpoint string, apiKey APIKey, body any, locale *LanguageCode) (*T, error) {
	url := cl.endpointURL(endpoint, apiKey)
	httpReq := cl.http.R().
		SetContext(ctx).
		SetContentType("application/json").
		SetHeader("Accept", "application/json").
		SetBodyJsonMarshal(body)
	if locale != nil {
		httpReq = httpReq.SetHeader(localeHeader, string(*locale))
	}
	resp, err := httpReq.Post(url)

	return decode[T](resp, err, url)
}

// postForm sends the request body url-encoded. The securetoken host speaks
// `application/x-www-form-urlencoded` instead of JSON, unlike every other
// endpoint, but it still answers in JSON.
func postForm[T any](ctx context.Context, cl *Client, endpoint string, apiKey APIKey, form map[string]string) (*T, error) {
	url := cl.endpointURL(endpoint, apiKey)
	resp, err := cl.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(form).
		Post(url)

	return decode[T](resp, err, url)
}

func decode[T any](resp *req.Response, err error, url string) (*T, error) {
	if err != nil {
		return nil, errors.Wrapf(err, "post `%v` failed", url)
	}
	respBody, bErr := resp.ToBytes()
	if bErr != nil {
		return nil, errors.Wrapf(bErr, "post `%v` failed, unable to read response body", url)
	}
	if resp.IsErrorState() {
		return nil, parseAPIError(resp.GetStatusCode(), respBody)
	}
	var result T
	if uErr := json.Unmarshal(respBody, &result); uErr != nil {
		return nil, errors.Wrapf(ErrDeserializeResponse, "post `%v` succeeded with statusCode:%v, but response is malformed: %v: %v", url, resp.GetStatusCode(), string(respBody), uErr) //nolint:lll // .
	}

	return &result, nil
}
