// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind discriminates conversation messages.
type Kind int

const (
	KindUser Kind = iota + 1
	KindAI
	KindToolCallStart
	KindToolResult
	KindError
)

// String returns the stable name of the kind, used for persistence.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAI:
		return "ai"
	case KindToolCallStart:
		return "toolCallStart"
	case KindToolResult:
		return "toolResult"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindUser; k <= KindError; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// DisplayName returns a human-readable label for the sender.
func (k Kind) DisplayName() string {
	switch k {
	case KindUser:
		return "You"
	case KindAI:
		return "Assistant"
	case KindToolCallStart, KindToolResult:
		return "Tool"
	case KindError:
		return "Error"
	default:
		return k.String()
	}
}

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Message is one entry of a conversation log. The set of implementations is
// closed; switch on Kind or on the concrete type.
type Message interface {
	MessageID() string
	Kind() Kind
	Time() time.Time
	isMessage()
}

type base struct {
	ID string
	At time.Time
}

func (b base) MessageID() string { return b.ID }
func (b base) Time() time.Time   { return b.At }
func (base) isMessage()          {}

// UserMessage is text the user submitted.
type UserMessage struct {
	base
	Text string
}

// Kind implements Message.
func (*UserMessage) Kind() Kind { return KindUser }

// AIMessage is assistant text. While open it grows by Append.
type AIMessage struct {
	base

	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	text strings.Builder
	open bool

	// Failed marks a locally generated transport-failure message.
	Failed bool
}

// Kind implements Message.
func (*AIMessage) Kind() Kind { return KindAI }

// Text returns the accumulated text.
func (m *AIMessage) Text() string { return m.text.String() }

// Open reports whether the message still accepts fragments.
func (m *AIMessage) Open() bool { return m.open }

func (m *AIMessage) append(fragment string) {
	m.text.WriteString(fragment)
}

func (m *AIMessage) close() {
	m.open = false
}

// ToolCallStartMessage announces a tool invocation.
type ToolCallStartMessage struct {
	base
	ToolName string
	Args     map[string]any
}

// Kind implements Message.
func (*ToolCallStartMessage) Kind() Kind { return KindToolCallStart }

// ToolResultMessage carries the raw JSON result of a tool.
type ToolResultMessage struct {
	base
	ToolName string
	Result   json.RawMessage
}

// Kind implements Message.
func (*ToolResultMessage) Kind() Kind { return KindToolResult }

// ErrorMessage is a protocol-level error sent by the backend.
type ErrorMessage struct {
	base
	Text string
}

// Kind implements Message.
func (*ErrorMessage) Kind() Kind { return KindError }

// Text returns the display text of any message kind. Tool calls render as
// their tool name.
func Text(m Message) string {
	switch v := m.(type) {
	case *UserMessage:
		return v.Text
	case *AIMessage:
		return v.Text()
	case *ToolCallStartMessage:
		return v.ToolName
	case *ToolResultMessage:
		return v.ToolName
	case *ErrorMessage:
		return v.Text
	default:
		return ""
	}
}
