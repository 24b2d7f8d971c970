// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fintrack-tui/internal/stream"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamEventMsg carries one decoded event of the stream opened under Gen.
type StreamEventMsg struct {
	Gen   uint64
	Event stream.Event
}

// StreamDoneMsg reports that the stream opened under Gen ended normally.
type StreamDoneMsg struct {
	Gen uint64
}

// StreamErrorMsg reports that the stream opened under Gen failed.
type StreamErrorMsg struct {
	Gen uint64
	Err error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// tooltipDismissMsg fires when a touch overlay's timer runs out. Seq
// identifies the touch that started the timer.
type tooltipDismissMsg struct {
	Seq int
}

// historyClearedMsg reports the end of a history clear.
type historyClearedMsg struct {
	Err error
}

// SessionExpiredMsg tells the view the credentials are gone.
type SessionExpiredMsg struct{}

// ThemeChangedMsg asks the view to rebuild its styles, e.g. after the
// config file changed.
type ThemeChangedMsg struct {
	Theme string
}

// =============================================================================
// STREAM BRIDGE
// =============================================================================

// streamBufferSize bounds the events queued between the transport and the
// UI loop.
const streamBufferSize = 256

// bridge moves stream callbacks from the reader goroutine into the UI
// loop. It is shared by every copy of the Model.
type bridge struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func newBridge() *bridge {
	return &bridge{
		ch:   make(chan tea.Msg, streamBufferSize),
		done: make(chan struct{}),
	}
}

// bind returns handlers that tag everything with gen.
func (b *bridge) bind(gen uint64) stream.Handlers {
	return stream.Handlers{
		OnEvent: func(ev stream.Event) { b.send(StreamEventMsg{Gen: gen, Event: ev}) },
		OnDone:  func() { b.send(StreamDoneMsg{Gen: gen}) },
		OnError: func(err error) { b.send(StreamErrorMsg{Gen: gen, Err: err}) },
	}
}

// send blocks while the buffer is full, which throttles the reader, and
// gives up once the bridge is closed.
func (b *bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

// wait is the waitForStream command: it yields the next queued message.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) close() {
	b.once.Do(func() { close(b.done) })
}

// Notify injects a message from outside the UI loop, e.g. the API client's
// session-expired hook. It never blocks after the view has closed.
func (m Model) Notify(msg tea.Msg) {
	m.bridge.send(msg)
}
