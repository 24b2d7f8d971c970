// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the flat, persistable form of a Message.
type Record struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Text     string          `json:"text,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Failed   bool            `json:"failed,omitempty"`
	At       time.Time       `json:"at"`
}

// ToRecord flattens a message.
func ToRecord(m Message) Record {
	r := Record{
		ID:   m.MessageID(),
		Kind: m.Kind().String(),
		At:   m.Time(),
	}
	switch v := m.(type) {
	case *UserMessage:
		r.Text = v.Text
	case *AIMessage:
		r.Text = v.Text()
		r.Failed = v.Failed
	case *ToolCallStartMessage:
		r.ToolName = v.ToolName
		r.Args, _ = json.Marshal(v.Args)
	case *ToolResultMessage:
		r.ToolName = v.ToolName
		r.Result = v.Result
	case *ErrorMessage:
		r.Text = v.Text
	}
	return r
}

// FromRecord rebuilds a message. Restored AI messages are closed.
func FromRecord(r Record) (Message, error) {
	kind, ok := ParseKind(r.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown message kind %q", r.Kind)
	}
	b := base{ID: r.ID, At: r.At}

	switch kind {
	case KindUser:
		return &UserMessage{base: b, Text: r.Text}, nil
	case KindAI:
		msg := &AIMessage{base: b, Failed: r.Failed}
		msg.append(r.Text)
		return msg, nil
	case KindToolCallStart:
		args := map[string]any{}
		if len(r.Args) > 0 {
			if err := json.Unmarshal(r.Args, &args); err != nil {
				return nil, fmt.Errorf("decode tool args: %w", err)
			}
		}
		return &ToolCallStartMessage{base: b, ToolName: r.ToolName, Args: args}, nil
	case KindToolResult:
		result := r.Result
		if len(result) == 0 {
			result = json.RawMessage("{}")
		}
		return &ToolResultMessage{base: b, ToolName: r.ToolName, Result: result}, nil
	default:
		return &ErrorMessage{base: b, Text: r.Text}, nil
	}
}
