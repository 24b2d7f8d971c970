// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

const (
	defaultRadius = 5
	legendGap     = 3
)

// PieChart draws a disc of slices with a legend to its right. Terminal cells
// are about twice as tall as wide, so the disc is 4r columns by 2r rows.
type PieChart struct {
	slices []Slice
	values []float64
	total  float64
	radius int
	opts   Options
}

// NewPieChart sorts slices by descending value and sizes the disc from
// opts.Height.
func NewPieChart(slices []Slice, opts Options) *PieChart {
	opts = opts.withDefaults()
	sorted := append([]Slice(nil), slices...)
	SortSlices(sorted)

	c := &PieChart{slices: sorted, opts: opts, radius: defaultRadius}
	if opts.Height >= 4 {
		c.radius = opts.Height / 2
	}
	for _, s := range sorted {
		c.values = append(c.values, s.Value)
		c.total += s.Value
	}
	return c
}

// Kind implements Chart.
func (c *PieChart) Kind() ShapeKind { return ShapePie }

// Len implements Chart.
func (c *PieChart) Len() int { return len(c.slices) }

// Slices returns the slices in render order.
func (c *PieChart) Slices() []Slice { return c.slices }

func (c *PieChart) discW() int { return 4 * c.radius }
func (c *PieChart) discH() int { return 2 * c.radius }
func (c *PieChart) legendX() int { return c.discW() + legendGap }

// Width implements Chart.
func (c *PieChart) Width() int {
	w := 0
	for i := range c.slices {
		if lw := runewidth.StringWidth(c.legend(i)); lw > w {
			w = lw
		}
	}
	return c.legendX() + w
}

// Height implements Chart.
func (c *PieChart) Height() int {
	if len(c.slices) > c.discH() {
		return len(c.slices)
	}
	return c.discH()
}

// offset converts a cell to disc coordinates in row units, with y down.
func (c *PieChart) offset(x, y int) (dx, dy float64) {
	r := float64(c.radius)
	dx = (float64(x) + 0.5 - 2*r) / 2
	dy = float64(y) + 0.5 - r
	return dx, dy
}

func (c *PieChart) inDisc(x, y int) bool {
	if x < 0 || x >= c.discW() || y < 0 || y >= c.discH() {
		return false
	}
	dx, dy := c.offset(x, y)
	r := float64(c.radius)
	return dx*dx+dy*dy <= r*r
}

// SliceAt returns the slice under a disc cell.
func (c *PieChart) SliceAt(x, y int) int {
	if !c.inDisc(x, y) {
		return -1
	}
	dx, dy := c.offset(x, y)
	return HitSlice(c.values, AngleFromTop(dx, dy))
}

func (c *PieChart) percent(i int) float64 {
	if c.total <= 0 {
		return 0
	}
	return c.slices[i].Value / c.total * 100
}

func (c *PieChart) legend(i int) string {
	s := c.slices[i]
	return fmt.Sprintf("■ %s  %s  %.0f%%", s.Name, c.opts.Format.Amount(s.Value), c.percent(i))
}

// View implements Chart.
func (c *PieChart) View() string {
	legendStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	lines := make([]string, c.Height())

	for y := range lines {
		var sb strings.Builder

		// Runs of cells with the same slice share one style.
		run, runLen := -2, 0
		flush := func() {
			if runLen == 0 {
				return
			}
			if run < 0 {
				sb.WriteString(strings.Repeat(" ", runLen))
			} else {
				sb.WriteString(fg(c.slices[run].Color).Render(strings.Repeat("█", runLen)))
			}
			runLen = 0
		}
		for x := 0; x < c.discW(); x++ {
			idx := -1
			if y < c.discH() {
				idx = c.SliceAt(x, y)
			}
			if idx != run {
				flush()
				run = idx
			}
			runLen++
		}
		flush()

		if y < len(c.slices) {
			sb.WriteString(strings.Repeat(" ", legendGap))
			sb.WriteString(fg(c.slices[y].Color).Render("■"))
			sb.WriteString(legendStyle.Render(strings.TrimPrefix(c.legend(y), "■")))
		}
		lines[y] = sb.String()
	}
	return joinLines(lines)
}

// HitTest implements Chart. Disc cells hit by angle; legend rows hit their
// slice.
func (c *PieChart) HitTest(x, y int) (int, bool) {
	if i := c.SliceAt(x, y); i >= 0 {
		return i, true
	}
	if x >= c.legendX() && y >= 0 && y < len(c.slices) {
		return y, true
	}
	return -1, false
}

// Label implements Chart.
func (c *PieChart) Label(i int) string {
	if i < 0 || i >= len(c.slices) {
		return ""
	}
	s := c.slices[i]
	return fmt.Sprintf("%s: %s (%.1f%%)", s.Name, c.opts.Format.Amount(s.Value), c.percent(i))
}
