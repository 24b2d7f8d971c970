// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(s string) []string {
	return strings.Split(ansi.Strip(s), "\n")
}

func TestNew_None(t *testing.T) {
	assert.Nil(t, New(Shape{}, Options{}))
	assert.Nil(t, New(Shape{Kind: ShapeBar}, Options{}))
}

func TestBarChart(t *testing.T) {
	bars := []Bar{
		{Label: "DINING", Amount: 120, Color: "#EF4444"},
		{Label: "GROCERIES", Amount: 60, Color: "#22C55E"},
	}
	c := NewBarChart(bars, Options{Width: 40})

	lines := plain(c.View())
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "DINING"))
	assert.True(t, strings.HasSuffix(lines[0], "$120"))
	assert.Equal(t, c.barW, c.BarLength(0))
	assert.Equal(t, 13, c.BarLength(1))
	assert.Equal(t, 40, c.Width())

	assert.Equal(t, 1.0, c.Opacity(0))
	assert.InDelta(t, 0.725, c.Opacity(1), 1e-9)

	i, ok := c.HitTest(5, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = c.HitTest(5, 2)
	assert.False(t, ok)

	assert.Equal(t, "GROCERIES: $60", c.Label(1))
}

func TestBarChartTruncatesLongLabels(t *testing.T) {
	c := NewBarChart([]Bar{{Label: strings.Repeat("x", 40), Amount: 1, Color: "#fff"}}, Options{Width: 50})
	line := plain(c.View())[0]
	assert.Contains(t, line, "…")
	assert.LessOrEqual(t, ansi.StringWidth(line), c.Width())
}

func TestPieChart(t *testing.T) {
	slices := []Slice{
		{Name: "B", Value: 30, Color: "#00ff00"},
		{Name: "A", Value: 50, Color: "#ff0000"},
		{Name: "C", Value: 20, Color: "#0000ff"},
	}
	c := NewPieChart(slices, Options{Height: 10})

	assert.Equal(t, "A", c.Slices()[0].Name, "slices are sorted by value")
	assert.Equal(t, 10, c.Height())

	// Just right of the top center is the start of the largest slice.
	i, ok := c.HitTest(10, 1)
	require.True(t, ok)
	assert.Equal(t, 0, i)

	// Just left of the top center is the end of the smallest slice.
	i, ok = c.HitTest(9, 1)
	require.True(t, ok)
	assert.Equal(t, 2, i)

	// Corners are outside the disc.
	_, ok = c.HitTest(0, 0)
	assert.False(t, ok)

	// Legend rows hit their slice.
	i, ok = c.HitTest(c.discW()+legendGap+2, 1)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	lines := plain(c.View())
	assert.Len(t, lines, 10)
	assert.Contains(t, lines[0], "A  $50  50%")
	assert.Equal(t, "A: $50 (50.0%)", c.Label(0))
}

func TestLineChart(t *testing.T) {
	points := []Point{
		{Month: "Jan", Key: "2024-01", Amount: 100},
		{Month: "Feb", Key: "2024-02", Amount: 400},
		{Month: "Mar", Key: "2024-03", Amount: 50},
	}
	c := NewLineChart(points, Options{Width: 40, Height: 6})

	hi, lo := c.Extremes()
	assert.Equal(t, 1, hi)
	assert.Equal(t, 2, lo)

	lines := plain(c.View())
	require.Len(t, lines, c.Height())
	assert.Contains(t, lines[0], "▲")
	assert.Contains(t, lines[5], "▼")
	assert.Contains(t, lines[6], "Jan")
	assert.Contains(t, lines[6], "Mar")
	assert.Contains(t, lines[7], "High Feb $400")
	assert.Contains(t, lines[7], "Low Mar $50")

	i, ok := c.HitTest(c.Width()-1, 2)
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, "Feb: $400 (highest)", c.Label(1))
	assert.Equal(t, "Mar: $50 (lowest)", c.Label(2))
}

func TestLineChartSinglePoint(t *testing.T) {
	c := NewLineChart([]Point{{Month: "Jan", Amount: 10}}, Options{Width: 30})
	lines := plain(c.View())
	footer := lines[len(lines)-1]
	assert.Contains(t, footer, "High Jan $10")
	assert.NotContains(t, footer, "Low")
}

func TestFrameShowsNativeTooltip(t *testing.T) {
	c := NewBarChart([]Bar{{Label: "A", Amount: 1, Color: "#fff"}}, Options{Width: 30})
	tt := NewTooltip(0)

	lines := plain(Frame(c, "c1", tt))
	require.Len(t, lines, FrameHeight(c))
	assert.Equal(t, " ", lines[1])

	tt.Hover("c1", 0)
	lines = plain(Frame(c, "c1", tt))
	assert.Equal(t, "▸ A: $1", lines[1])
}
