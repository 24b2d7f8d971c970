// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/jeranaias/fintrack-tui/internal/api"
	"github.com/jeranaias/fintrack-tui/internal/auth"
	"github.com/jeranaias/fintrack-tui/internal/config"
	"github.com/jeranaias/fintrack-tui/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a bad flag or argument.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}

// CommandError adds the failing command to an error.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// errCancelled is returned when the user declines a confirmation.
var errCancelled = errors.New("cancelled")

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var apiErr *api.APIError
	var statusErr *stream.StatusError
	var netErr net.Error

	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.Is(err, config.ErrInvalid):
		return ExitConfigError
	case errors.Is(err, api.ErrSessionExpired),
		errors.Is(err, stream.ErrSessionExpired),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, api.ErrNoRefreshToken):
		return ExitAuthError
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ExitAuthError
		case http.StatusNotFound:
			return ExitNotFound
		}
		return ExitGeneralError
	case errors.As(err, &statusErr):
		if statusErr.Code == http.StatusUnauthorized {
			return ExitAuthError
		}
		return ExitNetworkError
	case errors.As(err, &netErr), errors.Is(err, context.DeadlineExceeded):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// printError writes err to w with a hint for the common cases.
func printError(w io.Writer, err error) {
	if err == nil || errors.Is(err, errCancelled) {
		return
	}
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)

	switch ExitCode(err) {
	case ExitAuthError:
		fmt.Fprintln(w, DimStyle.Render("  run `fintrack login` to sign in"))
	case ExitConfigError:
		fmt.Fprintln(w, DimStyle.Render("  check `fintrack config path` or fix it with `fintrack config set`"))
	case ExitNetworkError:
		fmt.Fprintln(w, DimStyle.Render("  is the API reachable? see `fintrack config get api.base_url`"))
	}
}
