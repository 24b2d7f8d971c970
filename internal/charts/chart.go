// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

const (
	// DefaultWidth is used when Options.Width is unset.
	DefaultWidth = 60

	// MinWidth is the narrowest chart that still draws.
	MinWidth = 24
)

// Chart is a rendered chart that can be hit-tested in its own cell
// coordinates, with (0, 0) at the top-left of View.
type Chart interface {
	Kind() ShapeKind
	View() string
	Width() int
	Height() int
	Len() int
	HitTest(x, y int) (int, bool)
	Label(i int) string
}

// Options control chart layout.
type Options struct {
	Width      int
	Height     int
	Format     Formatter
	Background string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Width < MinWidth {
		o.Width = MinWidth
	}
	if o.Format.p == nil {
		o.Format = DefaultFormatter
	}
	if o.Background == "" {
		o.Background = Background
	}
	return o
}

// New builds the chart for a shape, or nil for ShapeNone.
func New(s Shape, opts Options) Chart {
	switch s.Kind {
	case ShapeBar:
		if len(s.Bars) == 0 {
			return nil
		}
		return NewBarChart(s.Bars, opts)
	case ShapePie:
		if len(s.Slices) == 0 {
			return nil
		}
		return NewPieChart(s.Slices, opts)
	case ShapeLine:
		if len(s.Points) == 0 {
			return nil
		}
		return NewLineChart(s.Points, opts)
	default:
		return nil
	}
}

var tooltipStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary).Italic(true)

// Frame renders a chart with its inline tooltip line underneath. The line is
// always present so the frame height is stable at Height()+1.
func Frame(c Chart, id string, t *Tooltip) string {
	line := " "
	if t != nil {
		if i, ok := t.Native(id); ok && i < c.Len() {
			text := runewidth.Truncate("▸ "+c.Label(i), c.Width(), "…")
			line = tooltipStyle.Render(text)
		}
	}
	return c.View() + "\n" + line
}

// FrameHeight is the number of rows Frame produces for c.
func FrameHeight(c Chart) int {
	return c.Height() + 1
}

func fg(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

func fit(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
