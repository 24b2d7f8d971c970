// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the fintrack backend.
//
// Every endpoint answers with the envelope {success, data, error}. Client.Do
// attaches the bearer token and, on a 401, performs one shared token refresh
// and retries once. A second 401 ends the session: credentials are cleared,
// the OnSessionExpired hook runs, and the caller receives an unsuccessful
// envelope rather than an error.
//
// AuthService and ExpenseService wrap Do with typed requests and turn an
// unsuccessful envelope into an error.
package api
