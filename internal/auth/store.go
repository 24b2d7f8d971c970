// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by LoadToken when no credential is stored.
var ErrNoToken = errors.New("not signed in")

// TokenStore persists the session token.
type TokenStore interface {
	SaveToken(ctx context.Context, token *oauth2.Token) error
	LoadToken(ctx context.Context) (*oauth2.Token, error)
	DeleteToken(ctx context.Context) error
}

// credentialsFile is the on-disk form.
type credentialsFile struct {
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenType    string    `toml:"token_type,omitempty"`
	Expiry       time.Time `toml:"expiry,omitempty"`
	Email        string    `toml:"email,omitempty"`
}

// Store is the file-backed credential cache. The zero path keeps the
// credential in memory only.
type Store struct {
	mu    sync.RWMutex
	path  string
	token *oauth2.Token
	email string

	loadErr error
}

// NewStore creates a store persisted at path and loads any saved credential.
// A file that exists but cannot be read leaves the store signed out; the
// cause is kept for LoadErr.
func NewStore(path string) *Store {
	s := &Store{path: path}
	if path != "" {
		if err := s.loadFromFile(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.loadErr = fmt.Errorf("read credentials %s: %w", path, err)
		}
	}
	return s
}

// LoadErr returns why the saved credential could not be loaded, or nil.
func (s *Store) LoadErr() error {
	return s.loadErr
}

// Path returns the credentials file path.
func (s *Store) Path() string {
	return s.path
}

// AccessToken returns the current bearer token, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return ""
	}
	return s.token.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return ""
	}
	return s.token.RefreshToken
}

// Email returns the signed-in account's email, if known.
func (s *Store) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// SignedIn reports whether an access token is present.
func (s *Store) SignedIn() bool {
	return s.AccessToken() != ""
}

// Set replaces the credential and persists it. A zero Expiry is filled from
// the JWT exp claim when the access token carries one.
func (s *Store) Set(token *oauth2.Token, email string) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("empty access token")
	}
	tok := *token
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if tok.Expiry.IsZero() {
		if claims, err := ParseClaims(tok.AccessToken); err == nil {
			tok.Expiry = claims.ExpiresAt
			if email == "" {
				email = claims.Email
			}
		}
	}

	s.mu.Lock()
	s.token = &tok
	if email != "" {
		s.email = email
	}
	s.mu.Unlock()

	return s.saveToFile()
}

// Clear drops the credential from memory and disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = nil
	s.email = ""
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// SaveToken implements TokenStore.
func (s *Store) SaveToken(_ context.Context, token *oauth2.Token) error {
	return s.Set(token, "")
}

// LoadToken implements TokenStore.
func (s *Store) LoadToken(_ context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, ErrNoToken
	}
	tok := *s.token
	return &tok, nil
}

// DeleteToken implements TokenStore.
func (s *Store) DeleteToken(_ context.Context) error {
	return s.Clear()
}

// ExpiresWithin reports whether the access token expires within d of now.
// Tokens without a known expiry never report true.
func (s *Store) ExpiresWithin(d time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil || s.token.Expiry.IsZero() {
		return false
	}
	return s.token.Expiry.Before(now.Add(d))
}

func (s *Store) loadFromFile() error {
	var f credentialsFile
	if _, err := toml.DecodeFile(s.path, &f); err != nil {
		return err
	}
	if f.AccessToken == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &oauth2.Token{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		TokenType:    f.TokenType,
		Expiry:       f.Expiry,
	}
	s.email = f.Email
	return nil
}

func (s *Store) saveToFile() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	f := credentialsFile{Email: s.email}
	if s.token != nil {
		f.AccessToken = s.token.AccessToken
		f.RefreshToken = s.token.RefreshToken
		f.TokenType = s.token.TokenType
		f.Expiry = s.token.Expiry
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a file.
	tmp := s.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := toml.NewEncoder(file).Encode(f); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write credentials: %w", err)
	}
	return os.Rename(tmp, s.path)
}
