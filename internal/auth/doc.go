// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the process-wide session credential.
//
// The credential is an oauth2.Token persisted to ~/.fintrack/credentials.toml
// with 0600 permissions. Every outgoing request reads it; only the API client
// writes it, on sign-in, refresh, sign-out and session expiry.
package auth
