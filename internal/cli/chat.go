// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fintrack-tui/internal/config"
	"github.com/jeranaias/fintrack-tui/internal/conversation"
	"github.com/jeranaias/fintrack-tui/internal/logging"
	"github.com/jeranaias/fintrack-tui/internal/stream"
	"github.com/jeranaias/fintrack-tui/internal/ui/chat"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat assistant (default)",
		Long: `Opens the full-screen chat view on the configured thread.

Charts in answers respond to the mouse: hover a bar, slice or point to see
its value, or click it to pin a tooltip. ctrl+p flips the latest category
chart between bars and a pie.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), a)
		},
	}
}

// runChat runs the chat view until the user quits.
func runChat(ctx context.Context, a *app) error {
	if err := a.setup(); err != nil {
		return err
	}
	if !IsTTY() || !IsStdoutTTY() {
		return usageErrorf("chat needs a terminal, use `fintrack ask` for scripts")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.verbose {
		// stderr belongs to the alternate screen while the view runs.
		a.logger = logging.New(logging.Config{
			Level:      a.cfg.Log.Level,
			File:       a.cfg.Log.File,
			MaxSizeMB:  a.cfg.Log.MaxSizeMB,
			MaxBackups: a.cfg.Log.MaxBackups,
		})
		a.client.WithLogger(logging.Component(a.logger, "api"))
	}
	logger := a.logger

	store, err := a.openStore()
	if err != nil {
		return &CommandError{Command: "chat", Err: err}
	}
	defer store.Close()

	streams := stream.NewClient(a.cfg.API.BaseURL).
		WithAuthorizer(a.client).
		WithLogger(logging.Component(logger, "stream"))

	sessionLog := logging.Component(logger, "conversation")
	session := conversation.New(conversation.Options{
		ThreadID:   a.cfg.Chat.ThreadID,
		Open:       streams.OpenFunc(ctx),
		Clearer:    a.chat,
		Transcript: store,
		Logger:     &sessionLog,
	})
	if n, err := session.Restore(); err != nil {
		logger.Warn().Err(err).Msg("restore transcript")
	} else if n > 0 {
		logger.Debug().Int("messages", n).Msg("transcript restored")
	}

	uiLog := logging.Component(logger, "ui")
	m := chat.New(chat.Options{
		Session:        session,
		Theme:          styles.NewTheme(a.cfg.UI.Theme),
		Markdown:       a.cfg.Chat.RenderMarkdown,
		Format:         a.format,
		MaxResultLines: a.cfg.Chat.MaxResultLines,
		TooltipDismiss: a.cfg.UI.TooltipDismiss.Duration,
		Account:        a.creds.Email(),
		Logger:         &uiLog,
	})
	a.onExpired = func() { m.Notify(chat.SessionExpiredMsg{}) }

	if path, err := a.configFile(); err == nil {
		theme := a.cfg.UI.Theme
		err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("config reload")
				return
			}
			config.SetGlobal(cfg)
			if cfg.UI.Theme != theme {
				theme = cfg.UI.Theme
				m.Notify(chat.ThemeChangedMsg{Theme: theme})
			}
		})
		if err != nil {
			logger.Debug().Err(err).Msg("config watch disabled")
		}
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if a.cfg.UI.Mouse {
		// Hover needs motion events without a button held.
		opts = append(opts, tea.WithMouseAllMotion())
	}
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// configFile is the path of the config file in use.
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.Path()
}
