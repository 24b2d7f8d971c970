// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// ChatPath is the streaming chat endpoint, relative to the API base URL.
	ChatPath = "/chat"

	// readChunkSize is the size of each body read.
	readChunkSize = 4096

	// maxErrorBody caps how much of a failed response is read for the message.
	maxErrorBody = 4096
)

var (
	// ErrNoBody is reported when a successful response carries no body.
	ErrNoBody = errors.New("stream: response has no body")

	// ErrSessionExpired is reported when the credential could not be refreshed.
	ErrSessionExpired = errors.New("session expired")

	// sharedStreamingClient has no timeout; streams are bounded by context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// StatusError is a non-success initial response.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chat stream: HTTP %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("chat stream: HTTP %d", e.Code)
}

// ReadError wraps a transport failure that happened mid-stream.
type ReadError struct {
	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("chat stream interrupted: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLIENT
// =============================================================================

// Request is the body of a chat request.
type Request struct {
	Query    string `json:"query"`
	ThreadID string `json:"threadId"`
}

// Handlers receive the events of one stream. OnEvent is called from the
// stream's reader goroutine, in decode order.
type Handlers struct {
	OnEvent func(Event)
	OnDone  func()
	OnError func(error)
}

// Authorizer supplies the bearer credential and refreshes it after a 401.
// The API client implements it.
type Authorizer interface {
	AccessToken() string
	RefreshAccess(ctx context.Context) error
	ExpireSession()
}

// Client opens chat streams against one API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Authorizer
	logger     zerolog.Logger
}

// NewClient creates a stream client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: sharedStreamingClient,
		logger:     zerolog.Nop(),
	}
}

// WithHTTPClient sets the HTTP client used for streams.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithAuthorizer attaches a credential source.
func (c *Client) WithAuthorizer(a Authorizer) *Client {
	c.auth = a
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.logger = l
	return c
}

// Open starts a stream and returns immediately. Every outcome, including a
// failed connect, is reported through h.
func (c *Client) Open(ctx context.Context, req Request, h Handlers) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		handlers: h,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer cancel()
		c.run(ctx, s, req)
	}()
	return s
}

// OpenFunc adapts the client to the plain open/cancel function shape.
func (c *Client) OpenFunc(ctx context.Context) func(Request, Handlers) func() {
	return func(req Request, h Handlers) func() {
		return c.Open(ctx, req, h).Cancel
	}
}

func (c *Client) run(ctx context.Context, s *Subscription, req Request) {
	log := c.logger.With().Str("thread", req.ThreadID).Logger()
	start := time.Now()

	resp, err := c.post(ctx, req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && c.auth != nil {
		drain(resp)
		log.Debug().Msg("chat stream unauthorized, refreshing credential")
		if rerr := c.auth.RefreshAccess(ctx); rerr != nil {
			if ctx.Err() != nil {
				s.markCancelled()
				return
			}
			c.auth.ExpireSession()
			s.finish(fmt.Errorf("%w: %v", ErrSessionExpired, rerr))
			return
		}
		resp, err = c.post(ctx, req)
		if err == nil && resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.auth.ExpireSession()
			s.finish(ErrSessionExpired)
			return
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			s.markCancelled()
			return
		}
		s.finish(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.finish(&StatusError{Code: resp.StatusCode, Message: errorMessage(body)})
		return
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		s.finish(ErrNoBody)
		return
	}

	dec := NewDecoder()
	buf := make([]byte, readChunkSize)
	events := 0
	for {
		if s.Cancelled() {
			return
		}
		n, rerr := resp.Body.Read(buf)
		// A read that was in flight when Cancel ran is discarded.
		if s.Cancelled() {
			return
		}
		if ctx.Err() != nil {
			s.markCancelled()
			return
		}
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				if !s.emit(ev) {
					return
				}
				events++
			}
		}
		if rerr == io.EOF {
			log.Debug().
				Int("events", events).
				Int("dropped", dec.Dropped()).
				Int("oversized", dec.Oversized()).
				Bool("unterminated", dec.Pending()).
				Dur("elapsed", time.Since(start)).
				Msg("chat stream complete")
			s.finish(nil)
			return
		}
		if rerr != nil {
			log.Warn().Err(rerr).Int("events", events).Msg("chat stream read failed")
			s.finish(&ReadError{Err: rerr})
			return
		}
	}
}

func (c *Client) post(ctx context.Context, req Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.auth != nil {
		if token := c.auth.AccessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("open chat stream: %w", err)
	}
	return resp, nil
}

// errorMessage pulls a readable message out of an error response body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "message", "error.message"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscription is the handle of one open stream.
type Subscription struct {
	handlers  Handlers
	cancel    context.CancelFunc
	cancelled atomic.Bool
	terminal  sync.Once
	done      chan struct{}
}

// Cancel stops event delivery. It is idempotent and safe after the stream
// has completed. The reader checks the flag before every callback, so
// nothing is delivered once the cancellation is observed.
func (s *Subscription) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// Cancelled reports whether Cancel was called or the parent context ended.
func (s *Subscription) Cancelled() bool {
	return s.cancelled.Load()
}

// Done is closed when the reader goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) markCancelled() {
	s.cancelled.Store(true)
}

func (s *Subscription) emit(ev Event) bool {
	if s.Cancelled() {
		return false
	}
	if s.handlers.OnEvent != nil {
		s.handlers.OnEvent(ev)
	}
	return true
}

// finish fires the single terminal callback: OnDone for a nil err,
// OnError otherwise.
func (s *Subscription) finish(err error) {
	if s.Cancelled() {
		return
	}
	s.terminal.Do(func() {
		if err == nil {
			if s.handlers.OnDone != nil {
				s.handlers.OnDone()
			}
			return
		}
		if s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}
	})
}
