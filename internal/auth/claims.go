// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Claims is what the client reads from an access token. The signature is
// not verified; the server does that on every request.
type Claims struct {
	Subject   string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ParseClaims decodes an access token without verifying it.
func ParseClaims(token string) (Claims, error) {
	var c accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}
	out := Claims{Subject: c.Subject, UserID: c.UserID, Email: c.Email}
	if out.UserID == "" {
		out.UserID = c.Subject
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// NewState returns a random OAuth state value.
func NewState() string {
	return oauth2.GenerateVerifier()
}

// StateMatches compares OAuth state values in constant time.
func StateMatches(want, got string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
