// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the chat view.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// CHROME
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style
	StatusBar   lipgloss.Style
	ShortcutKey lipgloss.Style
	ShortcutDsc lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	FailureLine     lipgloss.Style
	ErrorLine       lipgloss.Style
	ToolCall        lipgloss.Style
	ToolName        lipgloss.Style
	ToolArgs        lipgloss.Style
	ToolResult      lipgloss.Style
	Truncated       lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputPrompt  lipgloss.Style
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
	Muted        lipgloss.Style

	// Tooltip is the fixed-position overlay shown after a touch.
	Tooltip lipgloss.Style
}

// NewTheme builds the theme. mode is "auto", "dark" or "light"; auto asks
// the terminal.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Purple).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.ShortcutDsc = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBorder).
		PaddingLeft(1)
	t.FailureLine = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	t.ErrorLine = lipgloss.NewStyle().Foreground(Rose)

	t.ToolCall = lipgloss.NewStyle().Foreground(TextSecondary)
	t.ToolName = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.ToolArgs = lipgloss.NewStyle().Foreground(TextMuted)
	t.ToolResult = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ToolBorder).
		Padding(0, 1)
	t.Truncated = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.InputPrompt = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.ThinkingText = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	t.Tooltip = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Overlay).
		Padding(0, 1)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// ContentWidth is the usable width for message bodies and charts.
func (t *Theme) ContentWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return max(t.Width-2, 20)
	case LayoutMedium:
		return t.Width - 4
	default:
		return min(t.Width-6, 110)
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
