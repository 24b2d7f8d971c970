// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/fintrack-tui/internal/api"
	"github.com/jeranaias/fintrack-tui/internal/auth"
)

// =============================================================================
// LOGIN
// =============================================================================

func newLoginCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			email, err := promptDefault(a.prompter, "Email: ", email)
			if err != nil {
				return err
			}
			password, err := promptRequired(a.prompter, "Password: ", true)
			if err != nil {
				return err
			}

			user, err := a.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				return &CommandError{Command: "login", Err: err}
			}
			a.logger.Info().Str("email", user.Email).Msg("signed in")
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", SuccessStyle.Render("✓"), displayName(user))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.AddCommand(newLoginGoogleCmd(a))
	return cmd
}

func newLoginGoogleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "google",
		Short: "Sign in with Google",
		Long: `Prints the Google consent URL. After approving, paste the URL you were
redirected to (or just its code parameter).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			state := auth.NewState()
			consent, err := a.auth.GoogleAuthURL(ctx, state)
			if err != nil {
				return &CommandError{Command: "login google", Err: err}
			}
			fmt.Fprintln(out, "Open this URL in your browser and approve access:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  "+ValueStyle.Render(consent))
			fmt.Fprintln(out)

			answer, err := promptRequired(a.prompter, "Redirect URL or code: ", false)
			if err != nil {
				return err
			}
			code, gotState := parseCallback(answer)
			if gotState == "" {
				gotState = state
			}
			if !auth.StateMatches(state, gotState) {
				return &CommandError{Command: "login google", Err: fmt.Errorf("state mismatch, start again")}
			}

			user, err := a.auth.GoogleCallback(ctx, code, gotState)
			if err != nil {
				return &CommandError{Command: "login google", Err: err}
			}
			fmt.Fprintf(out, "%s Signed in as %s\n", SuccessStyle.Render("✓"), displayName(user))
			return nil
		},
	}
}

// parseCallback accepts a redirect URL or a bare code.
func parseCallback(s string) (code, state string) {
	s = strings.TrimSpace(s)
	if u, err := url.Parse(s); err == nil && u.RawQuery != "" {
		q := u.Query()
		if c := q.Get("code"); c != "" {
			return c, q.Get("state")
		}
	}
	return s, ""
}

// =============================================================================
// SIGNUP / LOGOUT
// =============================================================================

func newSignupCmd(a *app) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			name, err := promptDefault(a.prompter, "Name: ", name)
			if err != nil {
				return err
			}
			email, err := promptDefault(a.prompter, "Email: ", email)
			if err != nil {
				return err
			}
			password, err := promptNewPassword(a.prompter, "Password: ")
			if err != nil {
				return err
			}

			user, err := a.auth.SignUp(cmd.Context(), name, email, password)
			if err != nil {
				return &CommandError{Command: "signup", Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Account created, signed in as %s\n", SuccessStyle.Render("✓"), displayName(user))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if !a.creds.SignedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("Not signed in."))
				return nil
			}
			// Local credentials are gone even when the server call fails.
			if err := a.auth.SignOut(cmd.Context()); err != nil {
				a.logger.Warn().Err(err).Msg("server sign-out")
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Signed out locally; the server did not confirm: "+err.Error()))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", SuccessStyle.Render("✓"))
			return nil
		},
	}
}

// =============================================================================
// WHOAMI / PASSWD
// =============================================================================

func newWhoamiCmd(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if !a.creds.SignedIn() {
				if err := a.creds.LoadErr(); err != nil {
					return &CommandError{Command: "whoami", Err: fmt.Errorf("%w: %v", auth.ErrNoToken, err)}
				}
				return auth.ErrNoToken
			}
			ctx := cmd.Context()
			if refresh {
				if err := a.auth.Refresh(ctx); err != nil {
					return &CommandError{Command: "whoami", Err: err}
				}
			}

			user, err := a.auth.Me(ctx)
			if err != nil {
				return &CommandError{Command: "whoami", Err: err}
			}
			claims, claimsErr := auth.ParseClaims(a.creds.AccessToken())
			printAccount(cmd.OutOrStdout(), user, claims, claimsErr == nil, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh the access token first")
	return cmd
}

func printAccount(w io.Writer, user *api.User, claims auth.Claims, haveClaims bool, now time.Time) {
	fmt.Fprintln(w, TitleStyle.Render("Account"))
	if user.Name != "" {
		fmt.Fprintln(w, RenderLabel("Name")+ValueStyle.Render(user.Name))
	}
	fmt.Fprintln(w, RenderLabel("Email")+ValueStyle.Render(user.Email))
	if user.ID != "" {
		fmt.Fprintln(w, RenderLabel("ID")+DimStyle.Render(user.ID))
	}
	if haveClaims && !claims.ExpiresAt.IsZero() {
		left := claims.ExpiresAt.Sub(now).Round(time.Second)
		text := fmt.Sprintf("%s (in %s)", claims.ExpiresAt.Local().Format(time.DateTime), left)
		if left <= 0 {
			text = WarningStyle.Render("expired, refreshes on next request")
		}
		fmt.Fprintln(w, RenderLabel("Token expires")+ValueStyle.Render(text))
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if !a.creds.SignedIn() {
				return auth.ErrNoToken
			}
			current, err := promptRequired(a.prompter, "Current password: ", true)
			if err != nil {
				return err
			}
			next, err := promptNewPassword(a.prompter, "New password: ")
			if err != nil {
				return err
			}
			if next == current {
				return usageErrorf("new password must differ from the current one")
			}
			if err := a.auth.ChangePassword(cmd.Context(), current, next); err != nil {
				return &CommandError{Command: "passwd", Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Password changed\n", SuccessStyle.Render("✓"))
			return nil
		},
	}
}

func displayName(u *api.User) string {
	switch {
	case u == nil:
		return "unknown"
	case u.Name != "" && u.Email != "":
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	case u.Email != "":
		return u.Email
	default:
		return u.Name
	}
}
