// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is the result of a request whose credential could
	// not be refreshed.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken means a refresh was needed but none is stored.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// sessionExpiredMessage is the Error of the envelope returned on a second 401.
const sessionExpiredMessage = "session expired"

// Envelope is the response shape of every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Status is the HTTP status code; it is not part of the body.
	Status int `json:"-"`
	// Expired marks the synthetic envelope produced when the session ends.
	Expired bool `json:"-"`
}

// APIError is an unsuccessful envelope turned into an error.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (HTTP %d)", e.Status)
	}
	return e.Message
}

// Err returns nil for a successful envelope and the failure otherwise.
func (e *Envelope) Err() error {
	if e.Success {
		return nil
	}
	if e.Expired {
		return ErrSessionExpired
	}
	return &APIError{Status: e.Status, Message: e.Error}
}

// Decode unmarshals Data into v. A missing data field leaves v untouched.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" || v == nil {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Into checks the envelope and decodes its data in one step.
func (e *Envelope) Into(v any) error {
	if err := e.Err(); err != nil {
		return err
	}
	return e.Decode(v)
}

func expiredEnvelope() *Envelope {
	return &Envelope{Success: false, Error: sessionExpiredMessage, Status: 401, Expired: true}
}

// parseEnvelope reads a response body. Bodies that are not an envelope are
// reported as failures carrying the status code.
func parseEnvelope(status int, body []byte) *Envelope {
	env := &Envelope{}
	if len(body) > 0 && json.Unmarshal(body, env) == nil {
		env.Status = status
		if !env.Success && env.Error == "" && (status < 200 || status > 299) {
			env.Error = fmt.Sprintf("request failed (HTTP %d)", status)
		}
		return env
	}
	env = &Envelope{Status: status, Success: status >= 200 && status <= 299}
	if !env.Success {
		env.Error = fmt.Sprintf("request failed (HTTP %d)", status)
	}
	return env
}
