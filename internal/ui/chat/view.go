// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/fintrack-tui/internal/charts"
)

// View implements tea.Model.
// Layout: header + messages (viewport) + status (1 line) + input (1 line).
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.statusBar.View(),
		m.input.View(),
	)

	if ov, ok := m.tooltip.Overlay(); ok {
		screen = m.overlayTooltip(screen, ov)
	}
	return screen
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("fintrack")
	meta := "assistant"
	if m.opts.Account != "" {
		meta = m.opts.Account
	}
	if id := m.session.ThreadID(); id != "" {
		meta += " · " + shortID(id)
	}
	line := title + "  " + m.theme.HeaderMeta.Render(meta)
	width := max(m.width, 20)
	return m.theme.Header.Width(width).
		Render(ansi.Truncate(line, width-2, "…"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// overlayTooltip draws the touch overlay over the screen, one row below the
// touched cell, clamped to the message area.
func (m Model) overlayTooltip(screen string, ov charts.Overlay) string {
	box := m.theme.Tooltip.Render(ansi.Truncate(ov.Text, max(m.width-2, 1), "…"))
	boxLines := strings.Split(box, "\n")
	boxW := lipgloss.Width(box)
	boxH := len(boxLines)

	top := m.headerHeight()
	x, y := charts.Clamp(ov.X, ov.Y-top+1, boxW, boxH, m.width, m.viewport.Height)
	y += top

	lines := strings.Split(screen, "\n")
	for i, bl := range boxLines {
		row := y + i
		if row < 0 || row >= len(lines) {
			continue
		}
		lines[row] = spliceLine(lines[row], bl, x, boxW)
	}
	return strings.Join(lines, "\n")
}

// spliceLine replaces the cells [x, x+w) of line with insert, keeping the
// ANSI styling of the cells on either side.
func spliceLine(line, insert string, x, w int) string {
	left := ansi.Truncate(line, x, "")
	if pad := x - ansi.StringWidth(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}
	right := ""
	if ansi.StringWidth(line) > x+w {
		right = ansi.TruncateLeft(line, x+w, "")
	}
	return left + "\x1b[0m" + insert + "\x1b[0m" + right
}
