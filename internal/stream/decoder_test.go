// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name string
		data string
		ok   bool
		kind EventKind
	}{
		{"ai", `{"type":"ai","payload":{"text":"hi"}}`, true, EventAI},
		{"tool call", `{"type":"toolCall:start","payload":{"name":"stats","args":{"from":"2024-01-01"}}}`, true, EventToolCallStart},
		{"tool", `{"type":"tool","payload":{"name":"stats","result":{"total":3}}}`, true, EventTool},
		{"error", `{"type":"error","payload":{"text":"boom"}}`, true, EventError},
		{"malformed", `{"type":"ai",`, false, 0},
		{"missing type", `{"payload":{"text":"x"}}`, false, 0},
		{"unknown type", `{"type":"thinking","payload":{"text":"x"}}`, false, 0},
		{"wrong payload", `{"type":"ai","payload":{"text":42}}`, false, 0},
		{"not an object", `"ai"`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := DecodeFrame([]byte(tt.data))
			if ok != tt.ok {
				t.Fatalf("DecodeFrame ok = %v, want %v", ok, tt.ok)
			}
			if ok && ev.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", ev.Kind, tt.kind)
			}
		})
	}
}

func TestDecodeFramePayloads(t *testing.T) {
	ev, ok := DecodeFrame([]byte(`{"type":"toolCall:start","payload":{"name":"listExpenses"}}`))
	if !ok {
		t.Fatal("expected tool call to decode")
	}
	if ev.ToolName != "listExpenses" {
		t.Errorf("ToolName = %q", ev.ToolName)
	}
	if ev.Args == nil {
		t.Error("Args should default to an empty map")
	}

	ev, ok = DecodeFrame([]byte(`{"type":"tool","payload":{"name":"stats","result":{"byCategory":[]}}}`))
	if !ok {
		t.Fatal("expected tool result to decode")
	}
	if string(ev.Result) != `{"byCategory":[]}` {
		t.Errorf("Result = %s", ev.Result)
	}
}

func TestDecoderFraming(t *testing.T) {
	input := "data: {\"type\":\"ai\",\"payload\":{\"text\":\"a\"}}\n\n" +
		": comment line\n" +
		"event: ignored\n" +
		"data: {\"type\":\"ai\",\"payload\":{\"text\":\"b\"}}\r\n\r\n"

	events := NewDecoder().Feed([]byte(input))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Text != "a" || events[1].Text != "b" {
		t.Errorf("texts = %q, %q", events[0].Text, events[1].Text)
	}
}

func TestDecoderLastDataLineWins(t *testing.T) {
	input := "data: {\"type\":\"ai\",\"payload\":{\"text\":\"first\"}}\n" +
		"data: {\"type\":\"ai\",\"payload\":{\"text\":\"second\"}}\n\n"

	events := NewDecoder().Feed([]byte(input))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Text != "second" {
		t.Errorf("Text = %q, want second", events[0].Text)
	}
}

func TestDecoderSplitAcrossChunks(t *testing.T) {
	input := "data: {\"type\":\"ai\",\"payload\":{\"text\":\"hello \"}}\n\n" +
		"data: {\"type\":\"ai\",\"payload\":{\"text\":\"world\"}}\n\n"

	// Every split point must produce the same events.
	for split := 1; split < len(input); split++ {
		dec := NewDecoder()
		events := dec.Feed([]byte(input[:split]))
		events = append(events, dec.Feed([]byte(input[split:]))...)

		var got strings.Builder
		for _, ev := range events {
			got.WriteString(ev.Text)
		}
		if got.String() != "hello world" {
			t.Fatalf("split at %d: got %q", split, got.String())
		}
		if dec.Pending() {
			t.Fatalf("split at %d: decoder left pending data", split)
		}
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	input := "data: {\"type\":\"error\",\"payload\":{\"text\":\"rate limited\"}}\n\n"
	dec := NewDecoder()
	var events []Event
	for i := 0; i < len(input); i++ {
		events = append(events, dec.Feed([]byte{input[i]})...)
	}
	if len(events) != 1 || events[0].Kind != EventError || events[0].Text != "rate limited" {
		t.Fatalf("events = %+v", events)
	}
}

func TestDecoderDropsBadFramesAndContinues(t *testing.T) {
	input := "data: not json\n\n" +
		"data: {\"payload\":{}}\n\n" +
		"data: {\"type\":\"ai\",\"payload\":{\"text\":\"ok\"}}\n\n"

	dec := NewDecoder()
	events := dec.Feed([]byte(input))
	if len(events) != 1 || events[0].Text != "ok" {
		t.Fatalf("events = %+v", events)
	}
	if dec.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", dec.Dropped())
	}
}

func TestDecoderUnterminatedFrame(t *testing.T) {
	dec := NewDecoder()
	events := dec.Feed([]byte("data: {\"type\":\"ai\",\"payload\":{\"text\":\"x\"}}\n"))
	if len(events) != 0 {
		t.Fatalf("frame without blank line emitted %d events", len(events))
	}
	if !dec.Pending() {
		t.Error("expected pending frame")
	}
}

func TestDecoderBlankLinesWithoutData(t *testing.T) {
	events := NewDecoder().Feed([]byte("\n\n\r\n"))
	if len(events) != 0 {
		t.Errorf("got %d events from blank lines", len(events))
	}
}

func TestEventKindString(t *testing.T) {
	if EventToolCallStart.String() != "toolCall:start" {
		t.Errorf("String() = %q", EventToolCallStart.String())
	}
	if EventKind(99).String() != "unknown" {
		t.Errorf("String() = %q", EventKind(99).String())
	}
}

func TestDecoderLargeFrameInSmallChunks(t *testing.T) {
	text := strings.Repeat("x", 2<<20)
	input := "data: {\"type\":\"ai\",\"payload\":{\"text\":\"" + text + "\"}}\n\n"

	dec := NewDecoder()
	var events []Event
	for i := 0; i < len(input); i += 4096 {
		events = append(events, dec.Feed([]byte(input[i:min(i+4096, len(input))]))...)
	}
	if len(events) != 1 || len(events[0].Text) != len(text) {
		t.Fatalf("got %d events", len(events))
	}
	if dec.Dropped() != 0 || dec.Oversized() != 0 || dec.Pending() {
		t.Errorf("dropped = %d, oversized = %d, pending = %v", dec.Dropped(), dec.Oversized(), dec.Pending())
	}
}

func TestDecoderSkipsOversizedLine(t *testing.T) {
	dec := NewDecoder()
	dec.maxLine = 64

	long := "data: {\"type\":\"ai\",\"payload\":{\"text\":\"" + strings.Repeat("y", 200) + "\"}}"
	var events []Event
	for i := 0; i < len(long); i += 16 {
		events = append(events, dec.Feed([]byte(long[i:min(i+16, len(long))]))...)
	}
	events = append(events, dec.Feed([]byte("\n\ndata: {\"type\":\"ai\",\"payload\":{\"text\":\"ok\"}}\n\n"))...)

	if len(events) != 1 || events[0].Text != "ok" {
		t.Fatalf("events = %+v", events)
	}
	if dec.Oversized() != 1 {
		t.Errorf("Oversized = %d, want 1", dec.Oversized())
	}
	if dec.Pending() {
		t.Error("decoder left pending data")
	}
}
