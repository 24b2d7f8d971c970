// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/conversation"
	"github.com/jeranaias/fintrack-tui/internal/model"
	"github.com/jeranaias/fintrack-tui/internal/ui/components"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

const (
	inputHeight  = 1
	statusHeight = 1

	// clearTimeout bounds the server call behind ctrl+l.
	clearTimeout = 15 * time.Second

	// wheelLines is how far one wheel notch scrolls.
	wheelLines = 3
)

// =============================================================================
// MODEL
// =============================================================================

// Options configure a chat Model.
type Options struct {
	Session *conversation.Session
	Theme   *styles.Theme

	// Markdown renders closed assistant messages with glamour.
	Markdown       bool
	Format         charts.Formatter
	MaxResultLines int

	// TooltipDismiss is the lifetime of a touch overlay.
	TooltipDismiss time.Duration

	// Account is shown in the header, usually the signed-in email.
	Account string

	Logger *zerolog.Logger
}

// region is a chart region in content coordinates.
type region struct {
	components.Region
}

// Model is the chat view.
type Model struct {
	session  *conversation.Session
	theme    *styles.Theme
	renderer *components.MessageRenderer
	tooltip  *charts.Tooltip
	bridge   *bridge
	keys     KeyMap
	logger   zerolog.Logger
	opts     Options

	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	statusBar *components.StatusBar

	// pie holds the tool results currently toggled to a pie chart.
	pie     map[string]bool
	regions []region

	// pressed is set between a mouse press and its release, so motion in
	// between is a touch drag rather than a hover.
	pressed bool

	// clearing is set while a history clear runs off the UI loop. The
	// session is not touched until it reports back.
	clearing bool
	notice   string
	expired  bool

	width, height int
	ready         bool
	quitting      bool
}

// New creates the chat view for a session.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	in := textinput.New()
	in.Placeholder = "Ask about your spending…"
	in.Prompt = "› "
	in.PromptStyle = theme.InputPrompt
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = styles.LineSpinner.Spinner()
	sp.Style = theme.Spinner

	m := Model{
		session:   opts.Session,
		theme:     theme,
		tooltip:   charts.NewTooltip(opts.TooltipDismiss),
		bridge:    newBridge(),
		keys:      DefaultKeyMap(),
		logger:    logger,
		opts:      opts,
		input:     in,
		spinner:   sp,
		statusBar: components.NewStatusBar(theme),
		pie:       make(map[string]bool),
	}
	m.renderer = m.newRenderer()
	return m
}

func (m Model) newRenderer() *components.MessageRenderer {
	var md *components.Markdown
	if m.opts.Markdown {
		md = components.NewMarkdown(m.theme.IsDark)
	}
	return components.NewMessageRenderer(m.theme, components.RendererOptions{
		Markdown:       md,
		Format:         m.opts.Format,
		MaxResultLines: m.opts.MaxResultLines,
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.wait())
}

// Streaming reports whether an answer is being received.
func (m Model) Streaming() bool {
	return m.session.Streaming()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case StreamEventMsg:
		if m.session.HandleEvent(msg.Gen, msg.Event) != nil {
			m.refresh()
		}
		return m, m.bridge.wait()

	case StreamDoneMsg:
		if m.session.HandleDone(msg.Gen) {
			m.afterStream()
		}
		return m, m.bridge.wait()

	case StreamErrorMsg:
		if m.session.HandleError(msg.Gen, msg.Err) {
			m.afterStream()
		}
		return m, m.bridge.wait()

	case SessionExpiredMsg:
		m.expired = true
		m.notice = "session expired, run `fintrack login`"
		m.updateStatus()
		return m, m.bridge.wait()

	case ThemeChangedMsg:
		m.applyTheme(msg.Theme)
		return m, m.bridge.wait()

	case historyClearedMsg:
		m.clearing = false
		m.tooltip.Reset()
		m.pie = make(map[string]bool)
		m.renderer.Reset()
		if msg.Err != nil {
			m.logger.Warn().Err(msg.Err).Msg("clear history")
			m.notice = "history cleared locally; server: " + msg.Err.Error()
		} else {
			m.notice = "history cleared"
		}
		m.refresh()
		return m, nil

	case tooltipDismissMsg:
		if m.tooltip.Dismiss(msg.Seq) {
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Streaming() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateStatus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Close()
		m.bridge.close()
		m.quitting = true
		return m, tea.Quit

	case m.clearing:
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.session.Cancel() {
			m.notice = "stopped"
			m.afterStream()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Clear):
		if m.Streaming() {
			return m, nil
		}
		m.clearing = true
		m.notice = "clearing history…"
		m.updateStatus()
		return m, m.clearHistory()

	case key.Matches(msg, m.keys.Pie):
		m.togglePie()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input as a new question. Blank input and submissions
// during a stream are ignored and leave the input as typed.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.expired {
		return m, nil
	}
	if !m.session.Submit(m.input.Value(), m.bridge.bind) {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	m.tooltip.Reset()
	m.updateStatus()
	m.refresh()
	m.viewport.GotoBottom()
	return m, m.spinner.Tick
}

// clearHistory runs the clear off the UI loop. The model holds off every
// session access until historyClearedMsg arrives.
func (m Model) clearHistory() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
		defer cancel()
		return historyClearedMsg{Err: s.ClearHistory(ctx)}
	}
}

// togglePie flips the most recent categorical chart between bars and pie.
func (m *Model) togglePie() {
	msgs := m.session.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		tr, ok := msgs[i].(*model.ToolResultMessage)
		if !ok {
			continue
		}
		if !m.renderer.Shape(tr).CanPie() {
			continue
		}
		id := tr.MessageID()
		m.pie[id] = !m.pie[id]
		m.tooltip.Reset()
		m.refresh()
		return
	}
}

func (m *Model) afterStream() {
	m.updateStatus()
	m.refresh()
}

// =============================================================================
// MOUSE
// =============================================================================

// handleMouse maps mouse input to chart tooltips. Motion is a hover; a
// press, or motion with the button held, is a touch.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.clearing {
		return m, nil
	}

	switch msg.Type {
	case tea.MouseWheelUp:
		m.viewport.LineUp(wheelLines)
		return m, nil
	case tea.MouseWheelDown:
		m.viewport.LineDown(wheelLines)
		return m, nil
	case tea.MouseRelease:
		m.pressed = false
		return m, nil
	case tea.MouseLeft:
		m.pressed = true
		return m, m.touch(msg.X, msg.Y)
	case tea.MouseMotion:
		if m.pressed {
			return m, m.touch(msg.X, msg.Y)
		}
		m.hover(msg.X, msg.Y)
	}
	return m, nil
}

// chartAt finds the chart element under screen cell (x, y).
func (m Model) chartAt(x, y int) (region, int, bool) {
	row := y - m.headerHeight()
	if row < 0 || row >= m.viewport.Height {
		return region{}, -1, false
	}
	cy := row + m.viewport.YOffset
	for _, r := range m.regions {
		lx, ly := x-r.Left, cy-r.Top
		if lx < 0 || ly < 0 || lx >= r.Chart.Width() || ly >= r.Chart.Height() {
			continue
		}
		if i, ok := r.Chart.HitTest(lx, ly); ok {
			return r, i, true
		}
	}
	return region{}, -1, false
}

func (m *Model) hover(x, y int) {
	if m.tooltip.TouchActive() {
		return
	}
	before, hadBefore := m.hoverTarget()
	if r, i, ok := m.chartAt(x, y); ok {
		m.tooltip.Hover(r.ID, i)
	} else {
		m.tooltip.Leave()
	}
	after, hasAfter := m.hoverTarget()
	if before != after || hadBefore != hasAfter {
		m.refresh()
	}
}

// hoverTarget identifies the current inline tooltip for change detection.
func (m Model) hoverTarget() (string, bool) {
	for _, r := range m.regions {
		if i, ok := m.tooltip.Native(r.ID); ok {
			return r.ID + "#" + r.Chart.Label(i), true
		}
	}
	return "", false
}

// touch opens the overlay for the element under (x, y) and schedules its
// dismissal. Touching empty space closes any open overlay.
func (m *Model) touch(x, y int) tea.Cmd {
	r, i, ok := m.chartAt(x, y)
	if !ok {
		if ov, open := m.tooltip.Overlay(); open {
			m.tooltip.Dismiss(ov.Seq)
			m.refresh()
		}
		return nil
	}
	if ov, open := m.tooltip.Overlay(); open && ov.Chart == r.ID && ov.Index == i && ov.X == x && ov.Y == y {
		return nil
	}

	seq := m.tooltip.Touch(r.ID, i, x, y, r.Chart.Label(i), time.Now())
	m.refresh()
	return tea.Tick(m.tooltip.DismissAfter(), func(time.Time) tea.Msg {
		return tooltipDismissMsg{Seq: seq}
	})
}

// =============================================================================
// LAYOUT AND CONTENT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.statusBar.Width = width
	m.input.Width = max(width-4, 10)

	vpHeight := max(height-m.headerHeight()-inputHeight-statusHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.MouseWheelEnabled = false
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.tooltip.Reset()
	m.updateStatus()
	m.refresh()
	m.viewport.GotoBottom()
}

func (m Model) headerHeight() int {
	return strings.Count(m.renderHeader(), "\n") + 1
}

// refresh re-renders every message into the viewport and records where
// each chart landed. It follows the tail when the view was at the bottom.
func (m *Model) refresh() {
	if !m.ready || m.clearing {
		return
	}
	follow := m.viewport.AtBottom()
	width := m.theme.ContentWidth()

	var (
		parts   []string
		regions []region
		top     int
	)
	for _, msg := range m.session.Messages() {
		block := m.renderer.Render(msg, components.ToolResultOptions{
			Width:   width,
			Pie:     m.pie[msg.MessageID()],
			Tooltip: m.tooltip,
		})
		if block.Text == "" {
			continue
		}
		for _, r := range block.Regions {
			r.Top += top
			regions = append(regions, region{r})
		}
		parts = append(parts, block.Text)
		top += block.Height() + 1
	}
	m.regions = regions

	if len(parts) == 0 {
		m.viewport.SetContent(m.theme.Muted.Render("  Ask about your expenses, e.g. \"How much did I spend on food this month?\""))
		return
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

// updateStatus syncs the status bar and the state-dependent key hints.
func (m *Model) updateStatus() {
	streaming := m.Streaming()
	m.keys.Clear.SetEnabled(!streaming && !m.clearing)
	m.keys.Cancel.SetEnabled(streaming)

	sb := m.statusBar
	sb.Message = m.notice
	sb.Spinner = ""
	switch {
	case streaming:
		sb.Status = components.StatusStreaming
		sb.Spinner = m.spinner.View()
	case m.expired:
		sb.Status = components.StatusError
	default:
		sb.Status = components.StatusReady
	}

	sb.Shortcuts = sb.Shortcuts[:0]
	for _, b := range []key.Binding{m.keys.Submit, m.keys.Cancel, m.keys.Clear, m.keys.Pie, m.keys.Quit} {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		sb.Shortcuts = append(sb.Shortcuts, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
}

func (m *Model) applyTheme(mode string) {
	width, height := m.theme.Width, m.theme.Height
	m.theme = styles.NewTheme(mode)
	m.theme.SetSize(width, height)
	m.input.PromptStyle = m.theme.InputPrompt
	m.spinner.Style = m.theme.Spinner
	sb := components.NewStatusBar(m.theme)
	sb.Width = m.statusBar.Width
	m.statusBar = sb
	m.renderer = m.newRenderer()
	m.updateStatus()
	m.refresh()
}
