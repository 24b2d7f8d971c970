// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/fintrack-tui/internal/stream"
)

// Log is the ordered conversation of one thread. It is owned by a single
// goroutine and is not safe for concurrent use.
type Log struct {
	messages []Message
	open     *AIMessage

	newID func() string
	now   func() time.Time
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (l *Log) stamp() base {
	return base{ID: l.newID(), At: l.now()}
}

// Apply folds one stream event into the log and returns the message it
// created or extended.
func (l *Log) Apply(ev stream.Event) Message {
	if ev.Kind == stream.EventAI {
		if l.open != nil {
			l.open.append(ev.Text)
			return l.open
		}
		msg := &AIMessage{base: l.stamp(), open: true}
		msg.append(ev.Text)
		l.open = msg
		l.messages = append(l.messages, msg)
		return msg
	}

	l.CloseOpen()

	var msg Message
	switch ev.Kind {
	case stream.EventToolCallStart:
		args := ev.Args
		if args == nil {
			args = map[string]any{}
		}
		msg = &ToolCallStartMessage{base: l.stamp(), ToolName: ev.ToolName, Args: args}
	case stream.EventTool:
		result := ev.Result
		if len(result) == 0 {
			result = json.RawMessage("{}")
		}
		msg = &ToolResultMessage{base: l.stamp(), ToolName: ev.ToolName, Result: result}
	case stream.EventError:
		msg = &ErrorMessage{base: l.stamp(), Text: ev.Text}
	default:
		return nil
	}
	l.messages = append(l.messages, msg)
	return msg
}

// AppendUser closes any open AI message and appends the user's text.
func (l *Log) AppendUser(text string) *UserMessage {
	l.CloseOpen()
	msg := &UserMessage{base: l.stamp(), Text: text}
	l.messages = append(l.messages, msg)
	return msg
}

// AppendFailure appends a closed AI message describing a transport failure.
func (l *Log) AppendFailure(text string) *AIMessage {
	l.CloseOpen()
	msg := &AIMessage{base: l.stamp(), Failed: true}
	msg.append(text)
	l.messages = append(l.messages, msg)
	return msg
}

// CloseOpen closes the open AI message, if any.
func (l *Log) CloseOpen() {
	if l.open != nil {
		l.open.close()
		l.open = nil
	}
}

// Clear empties the log.
func (l *Log) Clear() {
	l.CloseOpen()
	l.messages = nil
}

// Restore replaces the log with previously persisted messages. All restored
// AI messages are closed.
func (l *Log) Restore(msgs []Message) {
	l.Clear()
	for _, m := range msgs {
		if ai, ok := m.(*AIMessage); ok {
			ai.close()
		}
		l.messages = append(l.messages, m)
	}
}

// Messages returns the log in arrival order. The slice is a copy; the
// messages are shared.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Since returns the messages from index i on.
func (l *Log) Since(i int) []Message {
	if i < 0 {
		i = 0
	}
	if i >= len(l.messages) {
		return nil
	}
	return append([]Message(nil), l.messages[i:]...)
}
