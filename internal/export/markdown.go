// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes a readable transcript. Tool results that chart
// are written as tables.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export implements Exporter.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, errors.New("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return nil, ErrEmpty
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("thread: %s\n", escapeYAML(t.ThreadID)))
		sb.WriteString(fmt.Sprintf("started: %s\n", t.Started().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(t.Messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", e.options.now().Format(time.RFC3339)))
		sb.WriteString("generator: fintrack\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString("# Spending assistant\n\n")
	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("- **Thread**: `%s`\n", t.ThreadID))
		sb.WriteString(fmt.Sprintf("- **Started**: %s\n", formatTimestamp(t.Started())))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n\n", len(t.Messages)))
	}

	for i, msg := range t.Messages {
		label := e.formatRoleLabel(msg)
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Time())))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(e.formatMessage(msg))
		sb.WriteString("\n\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\n*Exported from fintrack on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) formatRoleLabel(msg model.Message) string {
	switch m := msg.(type) {
	case *model.AIMessage:
		if m.Failed {
			return "[Assistant, failed]"
		}
	case *model.ToolCallStartMessage:
		return "[Tool call]"
	case *model.ToolResultMessage:
		return "[Tool result]"
	}
	return "[" + msg.Kind().DisplayName() + "]"
}

func (e *MarkdownExporter) formatMessage(msg model.Message) string {
	switch m := msg.(type) {
	case *model.ToolCallStartMessage:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("**Tool**: `%s`", m.ToolName))
		if len(m.Args) > 0 {
			args, _ := json.MarshalIndent(m.Args, "", "  ")
			sb.WriteString("\n\n```json\n")
			sb.Write(args)
			sb.WriteString("\n```")
		}
		return sb.String()

	case *model.ToolResultMessage:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("**Tool**: `%s`\n\n", m.ToolName))
		if table := e.chartTable(charts.Detect(m.Result)); table != "" {
			sb.WriteString(table)
			return sb.String()
		}
		var pretty bytes.Buffer
		if json.Indent(&pretty, m.Result, "", "  ") != nil {
			pretty.Reset()
			pretty.Write(m.Result)
		}
		sb.WriteString("```json\n")
		sb.Write(pretty.Bytes())
		sb.WriteString("\n```")
		return sb.String()

	case *model.ErrorMessage:
		return "> " + strings.TrimSpace(m.Text)

	default:
		return strings.TrimSpace(model.Text(msg))
	}
}

// chartTable renders the series behind a chart as a Markdown table, or ""
// when the result does not chart.
func (e *MarkdownExporter) chartTable(s charts.Shape) string {
	format := e.options.Format
	if format.Code() == "" {
		format = charts.DefaultFormatter
	}

	var sb strings.Builder
	switch s.Kind {
	case charts.ShapeBar:
		sb.WriteString("| Label | Amount |\n|---|---:|\n")
		for _, b := range s.Bars {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(b.Label), format.Amount(float64(b.Amount))))
		}
	case charts.ShapePie:
		total := 0.0
		for _, sl := range s.Slices {
			total += sl.Value
		}
		slices := append([]charts.Slice(nil), s.Slices...)
		charts.SortSlices(slices)
		sb.WriteString("| Name | Amount | Share |\n|---|---:|---:|\n")
		for _, sl := range slices {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.1f%% |\n", escapeCell(sl.Name), format.Amount(sl.Value), sl.Value/total*100))
		}
	case charts.ShapeLine:
		sb.WriteString("| Month | Amount |\n|---|---:|\n")
		for _, p := range s.Points {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(p.Month), format.Amount(p.Amount)))
		}
	default:
		return ""
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// escapeYAML quotes values that contain YAML special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
