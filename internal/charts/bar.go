// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

const maxLabelWidth = 16

// BarChart draws one horizontal bar per row.
type BarChart struct {
	bars   []Bar
	opts   Options
	max    int
	labelW int
	valueW int
	barW   int
}

// NewBarChart lays out bars for opts.Width columns.
func NewBarChart(bars []Bar, opts Options) *BarChart {
	opts = opts.withDefaults()
	c := &BarChart{bars: bars, opts: opts}

	for _, b := range bars {
		if b.Amount > c.max {
			c.max = b.Amount
		}
		if w := runewidth.StringWidth(b.Label); w > c.labelW {
			c.labelW = w
		}
		if w := runewidth.StringWidth(c.value(b)); w > c.valueW {
			c.valueW = w
		}
	}
	if c.labelW > maxLabelWidth {
		c.labelW = maxLabelWidth
	}
	if c.labelW < 3 {
		c.labelW = 3
	}
	c.barW = opts.Width - c.labelW - c.valueW - 2
	if c.barW < 4 {
		c.barW = 4
	}
	return c
}

func (c *BarChart) value(b Bar) string {
	return c.opts.Format.Amount(float64(b.Amount))
}

// Kind implements Chart.
func (c *BarChart) Kind() ShapeKind { return ShapeBar }

// Len implements Chart.
func (c *BarChart) Len() int { return len(c.bars) }

// Width implements Chart.
func (c *BarChart) Width() int { return c.labelW + c.barW + c.valueW + 2 }

// Height implements Chart.
func (c *BarChart) Height() int { return len(c.bars) }

// BarLength is the number of cells bar i fills.
func (c *BarChart) BarLength(i int) int {
	if c.max <= 0 || c.bars[i].Amount <= 0 {
		return 0
	}
	n := int(math.Round(float64(c.bars[i].Amount) / float64(c.max) * float64(c.barW)))
	if n == 0 {
		n = 1
	}
	return n
}

// Opacity is the visual weight of bar i.
func (c *BarChart) Opacity(i int) float64 {
	return Opacity(float64(c.bars[i].Amount), float64(c.max))
}

// View implements Chart.
func (c *BarChart) View() string {
	labelStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	valueStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary).Bold(true)

	lines := make([]string, len(c.bars))
	for i, b := range c.bars {
		var sb strings.Builder
		sb.WriteString(labelStyle.Render(fit(b.Label, c.labelW)))
		sb.WriteString(" ")

		n := c.BarLength(i)
		color := Fade(b.Color, c.opts.Background, c.Opacity(i))
		sb.WriteString(fg(color).Render(strings.Repeat("█", n)))
		sb.WriteString(strings.Repeat(" ", c.barW-n))
		sb.WriteString(" ")
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%*s", c.valueW, c.value(b))))
		lines[i] = sb.String()
	}
	return joinLines(lines)
}

// HitTest implements Chart. Any cell of a row hits that row's bar.
func (c *BarChart) HitTest(x, y int) (int, bool) {
	if x < 0 || x >= c.Width() || y < 0 || y >= len(c.bars) {
		return -1, false
	}
	return y, true
}

// Label implements Chart.
func (c *BarChart) Label(i int) string {
	if i < 0 || i >= len(c.bars) {
		return ""
	}
	b := c.bars[i]
	return fmt.Sprintf("%s: %s", b.Label, c.value(b))
}
