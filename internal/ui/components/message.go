// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/model"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

// Region locates a chart inside a rendered block. Top and Left are the
// chart's offset from the block's first line and column.
type Region struct {
	ID    string
	Chart charts.Chart
	Top   int
	Left  int
}

// Block is one rendered message.
type Block struct {
	Text    string
	Regions []Region
}

// Height is the number of lines in the block.
func (b Block) Height() int {
	if b.Text == "" {
		return 0
	}
	return strings.Count(b.Text, "\n") + 1
}

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer draws conversation messages. It caches chart shapes and
// markdown by message ID and is owned by a single goroutine.
type MessageRenderer struct {
	theme          *styles.Theme
	markdown       *Markdown
	json           JSON
	format         charts.Formatter
	maxResultLines int

	shapes map[string]charts.Shape
}

// RendererOptions configure a MessageRenderer.
type RendererOptions struct {
	// Markdown renders closed assistant messages; nil prints them plain.
	Markdown       *Markdown
	Format         charts.Formatter
	MaxResultLines int
}

// NewMessageRenderer creates a renderer for theme.
func NewMessageRenderer(theme *styles.Theme, opts RendererOptions) *MessageRenderer {
	return &MessageRenderer{
		theme:          theme,
		markdown:       opts.Markdown,
		json:           NewJSON(theme.IsDark, theme.HasTrueColor),
		format:         opts.Format,
		maxResultLines: opts.MaxResultLines,
		shapes:         make(map[string]charts.Shape),
	}
}

// Render draws one message at width. Every message kind has a case.
func (r *MessageRenderer) Render(msg model.Message, opts ToolResultOptions) Block {
	width := max(opts.Width, 20)

	switch m := msg.(type) {
	case *model.UserMessage:
		return Block{Text: r.renderUser(m, width)}

	case *model.AIMessage:
		return Block{Text: r.renderAI(m, width)}

	case *model.ToolCallStartMessage:
		return Block{Text: r.renderToolCall(m, width)}

	case *model.ToolResultMessage:
		opts.Width = width
		return r.renderToolResult(m, opts)

	case *model.ErrorMessage:
		return Block{Text: r.theme.ErrorLine.Width(width).Render("! " + m.Text)}

	default:
		return Block{}
	}
}

// Reset drops cached shapes and markdown.
func (r *MessageRenderer) Reset() {
	r.shapes = make(map[string]charts.Shape)
	r.markdown.Forget()
}

func (r *MessageRenderer) renderUser(m *model.UserMessage, width int) string {
	label := r.theme.Muted.Render("You")
	bubble := r.theme.UserBubble.MaxWidth(width).Render(wrap(m.Text, width-2))
	return label + "\n" + bubble
}

func (r *MessageRenderer) renderAI(m *model.AIMessage, width int) string {
	text := m.Text()
	if m.Failed {
		return r.theme.FailureLine.Width(width).Render("✗ " + text)
	}

	inner := width - 2
	var body string
	switch {
	case m.Open():
		// Partial markdown renders badly; show the raw text until it closes.
		body = wrap(text, inner) + r.theme.Spinner.Render("▍")
	case text == "":
		return ""
	default:
		body = r.markdown.Render(m.MessageID(), text, inner)
	}
	return r.theme.AssistantBubble.Render(body)
}

func (r *MessageRenderer) renderToolCall(m *model.ToolCallStartMessage, width int) string {
	line := r.theme.ToolName.Render("⚙ " + m.ToolName)
	if len(m.Args) > 0 {
		if args, err := json.Marshal(m.Args); err == nil {
			line += " " + r.theme.ToolArgs.Render(string(args))
		}
	}
	return ansi.Truncate(line, width, "…")
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
