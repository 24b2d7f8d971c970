// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventKind discriminates decoded stream events.
type EventKind int

const (
	// EventAI carries a fragment of assistant text.
	EventAI EventKind = iota + 1
	// EventToolCallStart announces a tool invocation and its arguments.
	EventToolCallStart
	// EventTool carries a tool's result payload.
	EventTool
	// EventError is a protocol-level error reported by the backend.
	EventError
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAI:
		return "ai"
	case EventToolCallStart:
		return "toolCall:start"
	case EventTool:
		return "tool"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one decoded frame. Only the fields of its Kind are set.
type Event struct {
	Kind     EventKind
	Text     string
	ToolName string
	Args     map[string]any
	Result   json.RawMessage
}

// wireFrame is the JSON envelope of every frame.
type wireFrame struct {
	Type    *string         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type toolCallPayload struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type toolResultPayload struct {
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result"`
}

// =============================================================================
// FRAME DECODING
// =============================================================================

// DecodeFrame parses one frame payload. It reports false for malformed JSON,
// a missing or unknown type, or a payload that does not fit its type.
func DecodeFrame(data []byte) (Event, bool) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, false
	}
	if frame.Type == nil {
		return Event{}, false
	}

	payload := frame.Payload
	if len(payload) == 0 || string(payload) == "null" {
		payload = []byte("{}")
	}

	switch *frame.Type {
	case "ai":
		var p textPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, false
		}
		return Event{Kind: EventAI, Text: p.Text}, true

	case "toolCall:start":
		var p toolCallPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, false
		}
		if p.Args == nil {
			p.Args = map[string]any{}
		}
		return Event{Kind: EventToolCallStart, ToolName: p.Name, Args: p.Args}, true

	case "tool":
		var p toolResultPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, false
		}
		if len(p.Result) == 0 || string(p.Result) == "null" {
			p.Result = json.RawMessage("{}")
		}
		return Event{Kind: EventTool, ToolName: p.Name, Result: p.Result}, true

	case "error":
		var p textPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, false
		}
		return Event{Kind: EventError, Text: p.Text}, true
	}

	// Unknown discriminants are dropped; upstream payloads are not versioned.
	return Event{}, false
}
