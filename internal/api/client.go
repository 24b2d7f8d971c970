// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the API root used when none is configured.
	DefaultBaseURL = "http://localhost:3000/api"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps a response body (10MB).
	MaxResponseSize = 10 * 1024 * 1024

	// refreshLeeway triggers a proactive refresh when the access token
	// expires within this window.
	refreshLeeway = 30 * time.Second

	// refreshTimeout bounds the shared refresh call.
	refreshTimeout = 15 * time.Second

	refreshPath = "/auth/refresh"
)

// Credentials is the process-wide session credential. *auth.Store
// implements it.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	Set(token *oauth2.Token, email string) error
	Clear() error
	ExpiresWithin(d time.Duration, now time.Time) bool
}

// Client performs authenticated requests against the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	limiter    *rate.Limiter
	logger     zerolog.Logger
	retry      retryConfig

	// refreshes dedupes concurrent refresh attempts: every caller that hits
	// a 401 while a refresh is in flight waits for that same result.
	refreshes singleflight.Group

	onExpired func()
	now       func() time.Time
}

// New creates a client for baseURL using creds for the bearer token.
func New(baseURL string, creds Credentials) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		creds:   creds,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  zerolog.Nop(),
		retry:   defaultRetry,
		now:     time.Now,
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit throttles outgoing requests. A non-positive rps disables it.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.logger = l
	return c
}

// OnSessionExpired registers a hook run after credentials are cleared by a
// failed refresh. The CLI uses it to send the user back to login.
func (c *Client) OnSessionExpired(fn func()) *Client {
	c.onExpired = fn
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUESTS
// =============================================================================

// Do sends one authenticated request and returns its envelope. Errors are
// only returned for transport failures; HTTP failures, including an expired
// session, come back as an unsuccessful envelope.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope, error) {
	return c.do(ctx, method, path, query, body, true)
}

// Public sends a request without a bearer token and without 401 handling.
// Sign-in and sign-up use it so a wrong password never triggers a refresh.
func (c *Client) Public(ctx context.Context, method, path string, body any) (*Envelope, error) {
	return c.do(ctx, method, path, nil, body, false)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, withAuth bool) (*Envelope, error) {
	var payload []byte
	if body != nil {
		switch b := body.(type) {
		case []byte:
			payload = b
		case json.RawMessage:
			payload = b
		default:
			var err error
			if payload, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("encode request: %w", err)
			}
		}
	}

	authed := withAuth && c.creds != nil && c.creds.AccessToken() != ""
	if authed && c.creds.RefreshToken() != "" && c.creds.ExpiresWithin(refreshLeeway, c.now()) {
		if err := c.RefreshAccess(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("proactive refresh failed")
		}
	}

	sent := c.AccessToken()
	status, respBody, err := c.send(ctx, method, path, query, payload, withAuth)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && authed {
		// A refresh that finished while this request was in flight already
		// replaced the token; retry with it instead of refreshing again.
		var rerr error
		if current := c.AccessToken(); current == sent || current == "" {
			rerr = c.RefreshAccess(ctx)
		}
		if rerr != nil {
			c.logger.Info().Err(rerr).Str("path", path).Msg("refresh failed, ending session")
			c.ExpireSession()
			return expiredEnvelope(), nil
		}
		status, respBody, err = c.send(ctx, method, path, query, payload, true)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.logger.Info().Str("path", path).Msg("unauthorized after refresh, ending session")
			c.ExpireSession()
			return expiredEnvelope(), nil
		}
	}

	return parseEnvelope(status, respBody), nil
}

// Get is Do for GET requests. Transient failures are retried with backoff.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	var env *Envelope
	err := doWithRetry(ctx, c.retry, func() error {
		var err error
		env, err = c.Do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}
		if env.Status >= 500 {
			return &APIError{Status: env.Status, Message: env.Error}
		}
		return nil
	}, isTransient)

	var apiErr *APIError
	if errors.As(err, &apiErr) && env != nil {
		return env, nil
	}
	return env, err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, withAuth bool) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, payload != nil, withAuth)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return 0, nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")
	return resp.StatusCode, body, nil
}

func (c *Client) setHeaders(req *http.Request, hasBody, withAuth bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth && c.creds != nil {
		if token := c.creds.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// =============================================================================
// SESSION
// =============================================================================

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is what sign-in, sign-up and refresh return.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Token converts the pair to an oauth2 token.
func (p TokenPair) Token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
	}
	if p.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return tok
}

// AccessToken returns the current bearer token.
func (c *Client) AccessToken() string {
	if c.creds == nil {
		return ""
	}
	return c.creds.AccessToken()
}

// RefreshAccess exchanges the refresh token for a new access token. While a
// refresh is in flight, concurrent callers share its result.
func (c *Client) RefreshAccess(ctx context.Context) error {
	_, err, shared := c.refreshes.Do("refresh", func() (any, error) {
		// Detach from the first caller so its cancellation does not fail
		// everyone waiting on the shared result.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, c.refresh(rctx)
	})
	if shared {
		c.logger.Debug().Msg("joined in-flight refresh")
	}
	return err
}

func (c *Client) refresh(ctx context.Context) error {
	if c.creds == nil {
		return ErrNoRefreshToken
	}
	refreshToken := c.creds.RefreshToken()
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	status, body, err := c.send(ctx, http.MethodPost, refreshPath, nil, payload, false)
	if err != nil {
		return err
	}
	env := parseEnvelope(status, body)
	var pair TokenPair
	if err := env.Into(&pair); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if pair.AccessToken == "" {
		return errors.New("refresh: empty access token")
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	email := ""
	if pair.User != nil {
		email = pair.User.Email
	}
	if err := c.creds.Set(pair.Token(c.now()), email); err != nil {
		return fmt.Errorf("store refreshed token: %w", err)
	}
	c.logger.Debug().Msg("access token refreshed")
	return nil
}

// ExpireSession clears credentials and runs the session-expired hook.
func (c *Client) ExpireSession() {
	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			c.logger.Warn().Err(err).Msg("clear credentials")
		}
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}
