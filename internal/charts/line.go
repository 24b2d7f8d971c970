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

const defaultPlotHeight = 8

const (
	// LineColor draws the series.
	LineColor = "#38BDF8"

	// HighColor and LowColor mark the extremes.
	HighColor = "#34D399"
	LowColor  = "#FB7185"
)

// LineChart plots a monthly series with a value axis, month labels and a
// footer naming the highest and lowest months.
type LineChart struct {
	points []Point
	opts   Options

	plotH  int
	plotW  int
	axisW  int
	xs     []int
	min    float64
	max    float64
	hi, lo int
}

// NewLineChart lays out points for opts.Width columns.
func NewLineChart(points []Point, opts Options) *LineChart {
	opts = opts.withDefaults()
	c := &LineChart{points: points, opts: opts, plotH: defaultPlotHeight}
	if opts.Height >= 3 {
		c.plotH = opts.Height
	}

	c.hi, c.lo = Extremes(points)
	c.max = points[c.hi].Amount
	c.min = points[c.lo].Amount

	c.axisW = runewidth.StringWidth(opts.Format.Compact(c.max))
	if w := runewidth.StringWidth(opts.Format.Compact(c.min)); w > c.axisW {
		c.axisW = w
	}
	c.axisW++ // axis rule

	c.plotW = opts.Width - c.axisW
	if c.plotW < 2 {
		c.plotW = 2
	}

	c.xs = make([]int, len(points))
	if len(points) == 1 {
		c.xs[0] = c.plotW / 2
	} else {
		for i := range points {
			c.xs[i] = int(math.Round(float64(i) * float64(c.plotW-1) / float64(len(points)-1)))
		}
	}
	return c
}

// Kind implements Chart.
func (c *LineChart) Kind() ShapeKind { return ShapeLine }

// Len implements Chart.
func (c *LineChart) Len() int { return len(c.points) }

// Width implements Chart.
func (c *LineChart) Width() int { return c.axisW + c.plotW }

// Height implements Chart: plot rows, month labels, footer.
func (c *LineChart) Height() int { return c.plotH + 2 }

// Extremes returns the indexes of the highest and lowest points.
func (c *LineChart) Extremes() (hi, lo int) { return c.hi, c.lo }

func (c *LineChart) row(v float64) int {
	if c.max == c.min {
		return c.plotH / 2
	}
	return int(math.Round((c.max - v) / (c.max - c.min) * float64(c.plotH-1)))
}

type cell struct {
	ch    rune
	color string
}

// View implements Chart.
func (c *LineChart) View() string {
	grid := make([][]cell, c.plotH)
	for y := range grid {
		grid[y] = make([]cell, c.plotW)
		for x := range grid[y] {
			grid[y][x] = cell{ch: ' '}
		}
	}

	for i := 0; i+1 < len(c.points); i++ {
		x0, x1 := c.xs[i], c.xs[i+1]
		y0, y1 := float64(c.row(c.points[i].Amount)), float64(c.row(c.points[i+1].Amount))
		for x := x0 + 1; x < x1; x++ {
			t := float64(x-x0) / float64(x1-x0)
			y := int(math.Round(y0 + (y1-y0)*t))
			grid[y][x] = cell{ch: '·', color: LineColor}
		}
	}

	hiColor, loColor := HighColor, LowColor
	for i, p := range c.points {
		ch, color := '●', LineColor
		switch {
		case i == c.hi:
			ch, color = '▲', hiColor
		case i == c.lo:
			ch, color = '▼', loColor
		}
		grid[c.row(p.Amount)][c.xs[i]] = cell{ch: ch, color: color}
	}

	axisStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
	lines := make([]string, 0, c.Height())
	for y, row := range grid {
		label := ""
		switch y {
		case 0:
			label = c.opts.Format.Compact(c.max)
		case c.plotH - 1:
			label = c.opts.Format.Compact(c.min)
		}
		var sb strings.Builder
		sb.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", c.axisW-1, label)))
		for _, cl := range row {
			if cl.color == "" {
				sb.WriteRune(cl.ch)
				continue
			}
			sb.WriteString(fg(cl.color).Render(string(cl.ch)))
		}
		lines = append(lines, sb.String())
	}

	lines = append(lines, axisStyle.Render(strings.Repeat(" ", c.axisW)+c.monthAxis()))
	lines = append(lines, c.footer(hiColor, loColor))
	return joinLines(lines)
}

// monthAxis places month labels under their points, skipping any that would
// overlap the previous label.
func (c *LineChart) monthAxis() string {
	axis := []rune(strings.Repeat(" ", c.plotW))
	next := 0
	for i, p := range c.points {
		label := []rune(p.Month)
		start := c.xs[i] - len(label)/2
		if start < next {
			start = next
		}
		if start+len(label) > c.plotW {
			start = c.plotW - len(label)
		}
		if start < next || start < 0 {
			continue
		}
		copy(axis[start:], label)
		next = start + len(label) + 1
	}
	return string(axis)
}

func (c *LineChart) footer(hiColor, loColor string) string {
	hi, lo := c.points[c.hi], c.points[c.lo]
	text := fg(hiColor).Render(fmt.Sprintf("▲ High %s %s", hi.Month, c.opts.Format.Amount(hi.Amount)))
	if c.hi != c.lo {
		text += "   " + fg(loColor).Render(fmt.Sprintf("▼ Low %s %s", lo.Month, c.opts.Format.Amount(lo.Amount)))
	}
	return text
}

// HitTest implements Chart. Plot and axis rows hit the nearest point by
// column.
func (c *LineChart) HitTest(x, y int) (int, bool) {
	if y < 0 || y > c.plotH || x < c.axisW || x >= c.Width() {
		return -1, false
	}
	px := x - c.axisW
	best, bestDist := -1, math.MaxInt
	for i, xi := range c.xs {
		d := xi - px
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// Label implements Chart.
func (c *LineChart) Label(i int) string {
	if i < 0 || i >= len(c.points) {
		return ""
	}
	p := c.points[i]
	label := fmt.Sprintf("%s: %s", p.Month, c.opts.Format.Amount(p.Amount))
	switch {
	case i == c.hi && c.hi != c.lo:
		label += " (highest)"
	case i == c.lo && c.hi != c.lo:
		label += " (lowest)"
	}
	return label
}
