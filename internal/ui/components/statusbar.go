// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status is what the conversation is doing.
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Answering..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon pairs the status with a shape so it reads without colour.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusStreaming:
		return "~"
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "-"
	}
}

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the line under the conversation.
type StatusBar struct {
	theme *styles.Theme

	Status    Status
	Spinner   string // current spinner frame while streaming
	Message   string // transient notice, e.g. a clear failure
	Shortcuts []Shortcut
	Width     int
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// View renders the bar, dropping shortcuts from the right when the width
// runs out.
func (s *StatusBar) View() string {
	left := s.Status.Icon() + " " + s.Status.String()
	if s.Status == StatusStreaming && s.Spinner != "" {
		left = s.theme.Spinner.Render(s.Spinner) + " " + s.theme.ThinkingText.Render(s.Status.String())
	}
	if s.Message != "" {
		left += "  " + s.theme.Muted.Render(s.Message)
	}

	hints := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		hints = append(hints, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDsc.Render(sc.Desc))
	}

	width := max(s.Width-2, 10)
	right := strings.Join(hints, "  ")
	for len(hints) > 0 && lipgloss.Width(left)+lipgloss.Width(right)+2 > width {
		hints = hints[:len(hints)-1]
		right = strings.Join(hints, "  ")
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	line := left + strings.Repeat(" ", gap) + right
	return s.theme.StatusBar.Render(ansi.Truncate(line, width, "…"))
}
