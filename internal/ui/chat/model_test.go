// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/conversation"
	"github.com/jeranaias/fintrack-tui/internal/model"
	"github.com/jeranaias/fintrack-tui/internal/stream"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeOpener struct {
	reqs    []stream.Request
	cancels int
}

func (f *fakeOpener) open(req stream.Request, _ stream.Handlers) func() {
	f.reqs = append(f.reqs, req)
	return func() { f.cancels++ }
}

const categoryResult = `{"byCategory":[{"category":"FOOD","amount":120},{"category":"TRANSPORT","amount":40}]}`

func newTestModel(t *testing.T, f *fakeOpener) Model {
	t.Helper()
	s := conversation.New(conversation.Options{ThreadID: "thread-1", Open: f.open})
	m := New(Options{
		Session:        s,
		Theme:          styles.NewTheme("dark"),
		MaxResultLines: 20,
		TooltipDismiss: time.Second,
	})
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// withChart submits a question and streams a categorical tool result.
func withChart(t *testing.T, f *fakeOpener) Model {
	t.Helper()
	m := send(t, newTestModel(t, f), "spending by category")
	m = update(t, m, StreamEventMsg{Gen: 1, Event: stream.Event{
		Kind:     stream.EventTool,
		ToolName: "get_stats",
		Result:   json.RawMessage(categoryResult),
	}})
	m = update(t, m, StreamDoneMsg{Gen: 1})
	if len(m.regions) != 1 {
		t.Fatalf("expected 1 chart region, got %d", len(m.regions))
	}
	return m
}

// screenPos converts a chart cell to screen coordinates.
func screenPos(m Model, r region, x, y int) (int, int) {
	return r.Left + x, m.headerHeight() + r.Top + y - m.viewport.YOffset
}

func hasShortcut(m Model, k string) bool {
	for _, sc := range m.statusBar.Shortcuts {
		if sc.Key == k {
			return true
		}
	}
	return false
}

// =============================================================================
// SUBMISSION AND STREAMING
// =============================================================================

func TestSubmitOpensStream(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "  how much on food?  ")

	if len(f.reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.reqs))
	}
	if f.reqs[0].Query != "how much on food?" || f.reqs[0].ThreadID != "thread-1" {
		t.Errorf("unexpected request %+v", f.reqs[0])
	}
	if !m.Streaming() {
		t.Error("expected streaming after submit")
	}
	if m.input.Value() != "" {
		t.Errorf("input should be reset, got %q", m.input.Value())
	}
}

func TestBlankSubmitIgnored(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "   ")

	if len(f.reqs) != 0 || m.Streaming() {
		t.Error("blank input must not open a stream")
	}
	if len(m.session.Messages()) != 0 {
		t.Error("blank input must not append a message")
	}
}

func TestSubmitWhileStreamingRejected(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "first")
	m = send(t, m, "second")

	if len(f.reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.reqs))
	}
	if m.input.Value() != "second" {
		t.Errorf("rejected text should stay in the input, got %q", m.input.Value())
	}
}

func TestStreamEventsRender(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "hi")
	m = update(t, m, StreamEventMsg{Gen: 1, Event: stream.Event{Kind: stream.EventAI, Text: "Hello "}})
	m = update(t, m, StreamEventMsg{Gen: 1, Event: stream.Event{Kind: stream.EventAI, Text: "there"}})
	m = update(t, m, StreamDoneMsg{Gen: 1})

	if m.Streaming() {
		t.Error("expected idle after done")
	}
	msgs := m.session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if got := model.Text(msgs[1]); got != "Hello there" {
		t.Errorf("expected merged text, got %q", got)
	}
	if !strings.Contains(m.View(), "Hello there") {
		t.Error("view should show the answer")
	}
}

func TestStaleGenerationIgnored(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "hi")
	m = update(t, m, StreamEventMsg{Gen: 7, Event: stream.Event{Kind: stream.EventAI, Text: "old"}})
	m = update(t, m, StreamDoneMsg{Gen: 7})

	if !m.Streaming() {
		t.Error("a stale done must not end the current stream")
	}
	if len(m.session.Messages()) != 1 {
		t.Errorf("stale event must not be applied, got %d messages", len(m.session.Messages()))
	}
}

func TestStreamErrorAppendsFailure(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "hi")
	m = update(t, m, StreamErrorMsg{Gen: 1, Err: errors.New("connection reset")})

	if m.Streaming() {
		t.Error("expected idle after error")
	}
	msgs := m.session.Messages()
	ai, ok := msgs[len(msgs)-1].(*model.AIMessage)
	if !ok || !ai.Failed {
		t.Fatalf("expected a failed assistant message, got %T", msgs[len(msgs)-1])
	}
	if !strings.Contains(ai.Text(), "connection reset") {
		t.Errorf("failure text should carry the cause, got %q", ai.Text())
	}
}

// =============================================================================
// KEYS
// =============================================================================

func TestEscCancelsStream(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "hi")
	m = update(t, m, StreamEventMsg{Gen: 1, Event: stream.Event{Kind: stream.EventAI, Text: "partial"}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if f.cancels != 1 {
		t.Errorf("expected 1 cancel, got %d", f.cancels)
	}
	if m.Streaming() {
		t.Error("expected idle after esc")
	}
	if len(m.session.Messages()) != 2 {
		t.Error("partial answer should be kept")
	}
}

func TestQuitCancelsStream(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "hi")
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	if f.cancels != 1 {
		t.Errorf("expected the stream to be cancelled before quitting, got %d cancels", f.cancels)
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestClearHiddenWhileStreaming(t *testing.T) {
	f := &fakeOpener{}
	m := newTestModel(t, f)
	if !hasShortcut(m, "C-l") {
		t.Error("clear hint should show while idle")
	}

	m = send(t, m, "hi")
	if hasShortcut(m, "C-l") {
		t.Error("clear hint should be hidden while streaming")
	}
	if !hasShortcut(m, "esc") {
		t.Error("stop hint should show while streaming")
	}

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	if cmd != nil || m.clearing {
		t.Error("ctrl+l must do nothing while streaming")
	}

	m = update(t, m, StreamDoneMsg{Gen: 1})
	if !hasShortcut(m, "C-l") {
		t.Error("clear hint should come back after the stream")
	}
}

func TestClearHistory(t *testing.T) {
	f := &fakeOpener{}
	m := send(t, newTestModel(t, f), "hi")
	m = update(t, m, StreamDoneMsg{Gen: 1})

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	if cmd == nil || !m.clearing {
		t.Fatal("expected a clear command")
	}

	// Submissions wait for the clear to finish.
	m = send(t, m, "during clear")
	if len(f.reqs) != 1 {
		t.Error("submit must be ignored while clearing")
	}

	m = update(t, m, cmd())
	if m.clearing {
		t.Error("clearing should end")
	}
	if len(m.session.Messages()) != 0 {
		t.Errorf("expected empty log, got %d messages", len(m.session.Messages()))
	}
	if m.statusBar.Message != "history cleared" {
		t.Errorf("unexpected notice %q", m.statusBar.Message)
	}
}

func TestSessionExpiredBlocksSubmit(t *testing.T) {
	f := &fakeOpener{}
	m := update(t, newTestModel(t, f), SessionExpiredMsg{})
	m = send(t, m, "hi")

	if len(f.reqs) != 0 {
		t.Error("submit must be refused after the session expired")
	}
	if !strings.Contains(m.View(), "fintrack login") {
		t.Error("view should point at fintrack login")
	}
}

// =============================================================================
// CHARTS
// =============================================================================

func TestPieToggle(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	if m.regions[0].Chart.Kind() != charts.ShapeBar {
		t.Fatalf("expected bar chart, got %v", m.regions[0].Chart.Kind())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if m.regions[0].Chart.Kind() != charts.ShapePie {
		t.Errorf("expected pie after ctrl+p, got %v", m.regions[0].Chart.Kind())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if m.regions[0].Chart.Kind() != charts.ShapeBar {
		t.Errorf("expected bar after ctrl+p, got %v", m.regions[0].Chart.Kind())
	}
}

func TestLetterPIsTyped(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	m.input.SetValue("a")
	m.input.CursorEnd()
	m = update(t, m, runes("p"))

	if m.input.Value() != "ap" {
		t.Errorf("expected p to be typed, got %q", m.input.Value())
	}
	if m.regions[0].Chart.Kind() != charts.ShapeBar {
		t.Error("chart should not toggle while typing")
	}
}

func TestHoverShowsInlineTooltip(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	r := m.regions[0]

	x, y := screenPos(m, r, 1, 0)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseMotion})

	i, ok := m.tooltip.Native(r.ID)
	if !ok || i != 0 {
		t.Fatalf("expected hover on bar 0, got %d %v", i, ok)
	}
	if m.tooltip.Mode() != charts.ModePointer {
		t.Errorf("expected pointer mode, got %v", m.tooltip.Mode())
	}
	if !strings.Contains(m.View(), "▸ "+r.Chart.Label(0)) {
		t.Error("view should show the inline tooltip")
	}

	// Moving off the chart clears it.
	m = update(t, m, tea.MouseMsg{X: 0, Y: 0, Type: tea.MouseMotion})
	if _, ok := m.tooltip.Native(r.ID); ok {
		t.Error("hover should clear off the chart")
	}
}

func TestTouchOpensOverlay(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	r := m.regions[0]

	x, y := screenPos(m, r, 1, 1)
	m, cmd := updateCmd(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	if cmd == nil {
		t.Fatal("expected a dismiss timer")
	}

	ov, ok := m.tooltip.Overlay()
	if !ok {
		t.Fatal("expected an overlay")
	}
	if ov.X != x || ov.Y != y || ov.Index != 1 || ov.Text != r.Chart.Label(1) {
		t.Errorf("unexpected overlay %+v", ov)
	}
	if m.tooltip.Mode() != charts.ModeTouch {
		t.Errorf("expected touch mode, got %v", m.tooltip.Mode())
	}
	if _, ok := m.tooltip.Native(r.ID); ok {
		t.Error("inline tooltip must be suppressed during touch")
	}
	if !strings.Contains(m.View(), ov.Text) {
		t.Error("view should draw the overlay")
	}

	// Hover is ignored while the overlay is up.
	hx, hy := screenPos(m, r, 1, 0)
	m = update(t, m, tea.MouseMsg{X: hx, Y: hy, Type: tea.MouseMotion})
	if _, ok := m.tooltip.Native(r.ID); ok {
		t.Error("hover must not show while touch is active")
	}
}

func TestTouchDismissSequence(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	r := m.regions[0]

	x, y := screenPos(m, r, 1, 0)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	first, _ := m.tooltip.Overlay()
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseRelease})

	x, y = screenPos(m, r, 1, 1)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	second, _ := m.tooltip.Overlay()

	m = update(t, m, tooltipDismissMsg{Seq: first.Seq})
	if !m.tooltip.TouchActive() {
		t.Fatal("the first timer must not close the newer overlay")
	}

	m = update(t, m, tooltipDismissMsg{Seq: second.Seq})
	if m.tooltip.TouchActive() {
		t.Error("the current timer should close the overlay")
	}
	if m.tooltip.Mode() != charts.ModePointer {
		t.Error("mode should return to pointer")
	}
}

func TestDragMovesOverlay(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	r := m.regions[0]

	x, y := screenPos(m, r, 1, 0)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	x, y = screenPos(m, r, 1, 1)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseMotion})

	ov, ok := m.tooltip.Overlay()
	if !ok || ov.Index != 1 {
		t.Errorf("drag should move the overlay to bar 1, got %+v", ov)
	}
}

func TestTouchOutsideChartCloses(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	r := m.regions[0]

	x, y := screenPos(m, r, 1, 0)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseRelease})
	m = update(t, m, tea.MouseMsg{X: 0, Y: 0, Type: tea.MouseLeft})

	if m.tooltip.TouchActive() {
		t.Error("touching outside a chart should close the overlay")
	}
}

func TestOverlayClampedToView(t *testing.T) {
	f := &fakeOpener{}
	m := withChart(t, f)
	r := m.regions[0]

	x, y := screenPos(m, r, r.Chart.Width()-1, 0)
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	ov, ok := m.tooltip.Overlay()
	if !ok {
		t.Fatal("expected an overlay")
	}

	found := false
	for _, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > m.width {
			t.Errorf("line wider than the screen: %d > %d", w, m.width)
		}
		if strings.Contains(ansi.Strip(line), ov.Text) {
			found = true
		}
	}
	if !found {
		t.Error("overlay text should be fully visible")
	}
}

func TestSpliceLine(t *testing.T) {
	got := spliceLine("abcdefghij", "XY", 3, 2)
	if got != "abc\x1b[0mXY\x1b[0mfghij" {
		t.Errorf("unexpected splice %q", got)
	}

	got = ansi.Strip(spliceLine("ab", "XY", 4, 2))
	if got != "ab  XY" {
		t.Errorf("short line should be padded, got %q", got)
	}
}

// =============================================================================
// BRIDGE
// =============================================================================

func TestBridgeDeliversTaggedMessages(t *testing.T) {
	b := newBridge()
	h := b.bind(3)

	go func() {
		h.OnEvent(stream.Event{Kind: stream.EventAI, Text: "x"})
		h.OnDone()
	}()

	ev, ok := b.wait()().(StreamEventMsg)
	if !ok || ev.Gen != 3 || ev.Event.Text != "x" {
		t.Fatalf("unexpected first message %+v", ev)
	}
	done, ok := b.wait()().(StreamDoneMsg)
	if !ok || done.Gen != 3 {
		t.Fatalf("unexpected second message %+v", done)
	}
}

func TestBridgeCloseUnblocks(t *testing.T) {
	b := newBridge()
	b.close()
	b.close()

	if msg := b.wait()(); msg != nil {
		t.Errorf("expected nil after close, got %v", msg)
	}

	finished := make(chan struct{})
	go func() {
		for i := 0; i < streamBufferSize+1; i++ {
			b.send(StreamDoneMsg{})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("send blocked after close")
	}
}
