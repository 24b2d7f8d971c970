// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/model"
)

// =============================================================================
// TOOL RESULT VIEW
// =============================================================================

// chartIndent is the left margin of a chart inside a tool result block.
const chartIndent = 2

// ToolResultOptions are the per-render choices for one tool result.
type ToolResultOptions struct {
	Width int

	// Pie draws a categorical result as a pie instead of bars.
	Pie bool

	// Tooltip supplies the hover state for the inline tooltip; nil draws
	// none.
	Tooltip *charts.Tooltip
}

// renderToolResult draws the header line and then either the chart or the
// raw JSON.
func (r *MessageRenderer) renderToolResult(m *model.ToolResultMessage, opts ToolResultOptions) Block {
	header := r.theme.ToolName.Render("◆ "+m.ToolName) + r.theme.ToolArgs.Render(" result")

	shape := r.Shape(m)
	if opts.Pie && shape.CanPie() {
		shape = shape.AsPie()
	}

	chart := charts.New(shape, charts.Options{
		Width:  max(opts.Width-chartIndent, charts.MinWidth),
		Format: r.format,
	})
	if chart == nil {
		body, hidden := r.json.Render(m.Result, r.maxResultLines)
		lines := []string{header}
		lines = append(lines, indent(body, chartIndent)...)
		if hidden > 0 {
			lines = append(lines, strings.Repeat(" ", chartIndent)+
				r.theme.Truncated.Render(fmt.Sprintf("… %d more lines", hidden)))
		}
		return Block{Text: strings.Join(lines, "\n")}
	}

	framed := charts.Frame(chart, m.MessageID(), opts.Tooltip)
	lines := append([]string{header}, indent(framed, chartIndent)...)
	return Block{
		Text: strings.Join(lines, "\n"),
		Regions: []Region{{
			ID:    m.MessageID(),
			Chart: chart,
			Top:   1,
			Left:  chartIndent,
		}},
	}
}

// Shape returns the detected chart shape of a tool result. Detection is a
// pure function of the payload, so it is computed once per message.
func (r *MessageRenderer) Shape(m *model.ToolResultMessage) charts.Shape {
	if s, ok := r.shapes[m.MessageID()]; ok {
		return s
	}
	s := charts.Detect(m.Result)
	r.shapes[m.MessageID()] = s
	return s
}

func indent(s string, n int) []string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return lines
}
