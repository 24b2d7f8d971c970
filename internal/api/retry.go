// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"math"
	"net"
	"time"
)

// retryConfig is exponential backoff for idempotent requests.
type retryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var defaultRetry = retryConfig{
	MaxRetries:     3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// doWithRetry calls fn until it succeeds, shouldRetry rejects the error, or
// MaxRetries attempts have been made. The last error is returned.
func doWithRetry(ctx context.Context, cfg retryConfig, fn func() error, shouldRetry func(error) bool) error {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		backoff := time.Duration(float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt-1)))
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// isTransient reports whether a GET is worth repeating.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
