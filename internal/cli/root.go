// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fintrack-tui/internal/api"
	"github.com/jeranaias/fintrack-tui/internal/auth"
	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/config"
	"github.com/jeranaias/fintrack-tui/internal/logging"
)

// Version information, set at build time with -ldflags -X.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// sessionExpiredNotice is printed when a request could not be re-authorized.
const sessionExpiredNotice = "session expired, run `fintrack login`"

// app is the state shared by every command. It is filled in by setup,
// which runs before any command that talks to the API.
type app struct {
	// Flags.
	configPath string
	apiURL     string
	verbose    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	prompter Prompter

	cfg      *config.Config
	logger   zerolog.Logger
	creds    *auth.Store
	client   *api.Client
	auth     *api.AuthService
	expenses *api.ExpenseService
	chat     *api.ChatService
	format   charts.Formatter

	// onExpired runs after the client clears an expired session. The chat
	// view replaces it to show the notice inside the TUI.
	onExpired func()
}

func newApp() *app {
	return &app{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		prompter: newLinePrompter(),
		logger:   zerolog.Nop(),
		format:   charts.DefaultFormatter,
	}
}

// loadConfig reads the config file named by --config, or the default one.
func (a *app) loadConfig() (*config.Config, string, error) {
	path, err := a.configFile()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// setup loads the configuration and wires logging and the API client.
func (a *app) setup() error {
	if a.client != nil {
		return nil
	}

	cfg, _, err := a.loadConfig()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	config.SetGlobal(cfg)
	a.cfg = cfg

	if a.verbose {
		a.logger = logging.Stderr(cfg.Log.Level)
	} else {
		a.logger = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			Pretty:     cfg.Log.Pretty,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}

	if f, err := charts.NewFormatter(cfg.UI.Currency); err == nil {
		a.format = f
	}

	credsPath, err := config.CredentialsPath()
	if err != nil {
		return err
	}
	a.creds = auth.NewStore(credsPath)
	if err := a.creds.LoadErr(); err != nil {
		a.logger.Warn().Err(err).Msg("ignoring saved credentials")
	}

	a.onExpired = func() {
		fmt.Fprintln(a.stderr, WarningStyle.Render(sessionExpiredNotice))
	}
	a.client = api.New(cfg.API.BaseURL, a.creds).
		WithTimeout(cfg.API.Timeout.Duration).
		WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst).
		WithLogger(logging.Component(a.logger, "api")).
		OnSessionExpired(func() { a.onExpired() })
	a.auth = api.NewAuthService(a.client)
	a.expenses = api.NewExpenseService(a.client)
	a.chat = api.NewChatService(a.client)

	a.logger.Debug().Str("api", cfg.API.BaseURL).Msg("client ready")
	return nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the fintrack command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Track expenses and ask an AI assistant about them",
		Long: `fintrack is a terminal client for the fintrack expense API.

Run it without a command to open the chat assistant. Answers stream in as
they are written, and spending data is drawn as charts you can explore with
the mouse.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), a)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.fintrack/config.toml)")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL, overrides api.base_url")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(
		newChatCmd(a),
		newAskCmd(a),
		newDashboardCmd(a),
		newExpensesCmd(a),
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPasswdCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	a := newApp()
	defer a.prompter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		printError(a.stderr, err)
		return ExitCode(err)
	}
	return ExitSuccess
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("fintrack %s\n", Version)
			cmd.Printf("Git commit: %s\n", GitCommit)
			cmd.Printf("Built: %s\n", BuildDate)
		},
	}
}
