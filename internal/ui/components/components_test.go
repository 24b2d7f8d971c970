// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/model"
	"github.com/jeranaias/fintrack-tui/internal/stream"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

func newRenderer(maxLines int) *MessageRenderer {
	return NewMessageRenderer(styles.NewTheme("dark"), RendererOptions{MaxResultLines: maxLines})
}

func toolResult(t *testing.T, raw string) *model.ToolResultMessage {
	t.Helper()
	log := model.NewLog()
	msg := log.Apply(stream.Event{Kind: stream.EventTool, ToolName: "get_stats", Result: json.RawMessage(raw)})
	return msg.(*model.ToolResultMessage)
}

func TestRender_EveryKind(t *testing.T) {
	r := newRenderer(0)
	log := model.NewLog()
	msgs := []model.Message{
		log.AppendUser("how much on dining?"),
		log.Apply(stream.Event{Kind: stream.EventAI, Text: "Checking"}),
		log.Apply(stream.Event{Kind: stream.EventToolCallStart, ToolName: "get_stats", Args: map[string]any{"from": "2024-01-01"}}),
		log.Apply(stream.Event{Kind: stream.EventTool, ToolName: "get_stats", Result: json.RawMessage(`{"ok":true}`)}),
		log.Apply(stream.Event{Kind: stream.EventError, Text: "tool timed out"}),
		log.AppendFailure("network down"),
	}
	wants := []string{"how much on dining?", "Checking", "get_stats", "ok", "tool timed out", "network down"}

	for i, m := range msgs {
		out := ansi.Strip(r.Render(m, ToolResultOptions{Width: 70}).Text)
		if !strings.Contains(out, wants[i]) {
			t.Errorf("%s: %q missing from %q", m.Kind(), wants[i], out)
		}
	}
}

func TestRenderToolResult_ChartRegion(t *testing.T) {
	r := newRenderer(0)
	m := toolResult(t, `{"byCategory":[{"category":"DINING","amount":120.4},{"category":"FOOD","amount":60}]}`)

	b := r.Render(m, ToolResultOptions{Width: 70})
	if len(b.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(b.Regions))
	}
	reg := b.Regions[0]
	if reg.ID != m.MessageID() || reg.Chart.Kind() != charts.ShapeBar {
		t.Errorf("region = %+v", reg)
	}
	if reg.Top != 1 || reg.Left != chartIndent {
		t.Errorf("offset = (%d,%d)", reg.Left, reg.Top)
	}
	if got, want := b.Height(), 1+charts.FrameHeight(reg.Chart); got != want {
		t.Errorf("height = %d, want %d", got, want)
	}

	pie := r.Render(m, ToolResultOptions{Width: 70, Pie: true})
	if pie.Regions[0].Chart.Kind() != charts.ShapePie {
		t.Errorf("pie toggle ignored: %v", pie.Regions[0].Chart.Kind())
	}
}

func TestRenderToolResult_RawJSONTruncated(t *testing.T) {
	r := newRenderer(3)
	m := toolResult(t, `{"a":1,"b":2,"c":3,"d":4,"e":5}`)

	b := r.Render(m, ToolResultOptions{Width: 70})
	if len(b.Regions) != 0 {
		t.Fatal("no chart expected")
	}
	out := ansi.Strip(b.Text)
	if !strings.Contains(out, "more lines") {
		t.Errorf("truncation notice missing:\n%s", out)
	}
	if strings.Contains(out, `"e"`) {
		t.Error("hidden line rendered")
	}
}

func TestShapeIsCached(t *testing.T) {
	r := newRenderer(0)
	m := toolResult(t, `{"expenses":[{"date":"2024-01-05","amount":10},{"date":"2024-02-10","amount":20}]}`)
	first := r.Shape(m)
	if first.Kind != charts.ShapeLine {
		t.Fatalf("kind = %v", first.Kind)
	}
	if _, ok := r.shapes[m.MessageID()]; !ok {
		t.Error("shape not cached")
	}
	r.Reset()
	if len(r.shapes) != 0 {
		t.Error("Reset kept shapes")
	}
}

func TestJSONRender(t *testing.T) {
	out, hidden := NewJSON(true, false).Render([]byte(`{"x":[1,2]}`), 0)
	if hidden != 0 {
		t.Errorf("hidden = %d", hidden)
	}
	if got := ansi.Strip(out); !strings.Contains(got, `"x"`) || strings.Count(got, "\n") < 3 {
		t.Errorf("not pretty-printed: %q", got)
	}

	out, _ = NewJSON(true, false).Render([]byte(`not json`), 0)
	if ansi.Strip(out) != "not json" {
		t.Errorf("invalid JSON should pass through, got %q", out)
	}
}

func TestStatusBarDropsHintsWhenNarrow(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme("dark"))
	sb.Shortcuts = []Shortcut{{"enter", "send"}, {"ctrl+l", "clear"}, {"esc", "cancel"}}

	sb.Width = 120
	wide := ansi.Strip(sb.View())
	if !strings.Contains(wide, "ctrl+l") {
		t.Errorf("wide bar missing hint: %q", wide)
	}

	sb.Width = 30
	if w := ansi.StringWidth(sb.View()); w > 30 {
		t.Errorf("narrow bar width = %d", w)
	}
}
