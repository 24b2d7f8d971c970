// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// User is the signed-in account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// AuthService wraps the /auth endpoints.
type AuthService struct {
	c *Client
}

// NewAuthService creates an auth service on c.
func NewAuthService(c *Client) *AuthService {
	return &AuthService{c: c}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type googleCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// SignIn authenticates with email and password and stores the session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*User, error) {
	env, err := s.c.Public(ctx, http.MethodPost, "/auth/signin", signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.storeSession(env, email)
}

// SignUp creates an account and stores the session.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*User, error) {
	env, err := s.c.Public(ctx, http.MethodPost, "/auth/signup", signUpRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.storeSession(env, email)
}

// Me returns the signed-in account.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	env, err := s.c.Get(ctx, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := env.Into(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword replaces the account password.
func (s *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	env, err := s.c.Do(ctx, http.MethodPost, "/auth/change-password", nil,
		changePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return err
	}
	return env.Err()
}

// SignOut revokes the refresh token server-side and always clears local
// credentials.
func (s *AuthService) SignOut(ctx context.Context) error {
	var serverErr error
	if s.c.creds != nil && s.c.creds.AccessToken() != "" {
		env, err := s.c.Do(ctx, http.MethodPost, "/auth/signout", nil,
			refreshRequest{RefreshToken: s.c.creds.RefreshToken()})
		switch {
		case err != nil:
			serverErr = err
		case !env.Expired:
			serverErr = env.Err()
		}
	}
	if s.c.creds != nil {
		if err := s.c.creds.Clear(); err != nil {
			return err
		}
	}
	return serverErr
}

// GoogleAuthURL returns the consent URL for the Google sign-in flow.
func (s *AuthService) GoogleAuthURL(ctx context.Context, state string) (string, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	env, err := s.c.Get(ctx, "/auth/google/url", q)
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := env.Into(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// GoogleCallback exchanges the authorization code for a session.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (*User, error) {
	env, err := s.c.Public(ctx, http.MethodPost, "/auth/google/callback", googleCallbackRequest{Code: code, State: state})
	if err != nil {
		return nil, err
	}
	return s.storeSession(env, "")
}

func (s *AuthService) storeSession(env *Envelope, email string) (*User, error) {
	var pair TokenPair
	if err := env.Into(&pair); err != nil {
		return nil, err
	}
	user := pair.User
	if user == nil {
		user = &User{Email: email}
	}
	if user.Email != "" {
		email = user.Email
	}
	if s.c.creds != nil {
		if err := s.c.creds.Set(pair.Token(s.c.now()), email); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Refresh exchanges the stored refresh token for a new access token. It
// shares the client's in-flight refresh, if any.
func (s *AuthService) Refresh(ctx context.Context) error {
	return s.c.RefreshAccess(ctx)
}
