// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENTS
// =============================================================================

var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald marks positive values and the high point of a series.
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose marks failures and the low point of a series.
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay is the background of the touch tooltip.
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// MESSAGE COLOURS
// =============================================================================

var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1D4ED8"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"}

var AssistantBorder = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}

var ToolBorder = lipgloss.AdaptiveColor{Light: "#A7F3D0", Dark: "#065F46"}

// =============================================================================
// STATUS
// =============================================================================

// StatusIndicatorSet pairs each status with an ASCII marker so it reads
// without colour.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

var (
	SuccessColor = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"}
	ErrorColor   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
	InfoColor    = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}
)

// RenderSuccess renders a success line for CLI output.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(SuccessColor).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line for CLI output.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line for CLI output.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(WarningColor).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an informational line for CLI output.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(InfoColor).
		Render(StatusIndicators.Info + " " + message)
}
