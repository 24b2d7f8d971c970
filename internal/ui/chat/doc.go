// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the interactive conversation view.
//
// Model is a Bubble Tea model that owns a conversation.Session. Stream
// callbacks run on the transport's reader goroutine and never touch the
// model: they push generation-tagged messages into a buffered channel, and
// a waitForStream command feeds them back into Update one at a time. Every
// change to the conversation therefore happens on the UI loop, in the
// order the transport decoded it.
//
// Charts inside tool results respond to the mouse. Motion over a chart is
// treated as pointer hover and drives the chart's inline tooltip; a press
// is treated as a touch and opens a fixed overlay at the press position
// that dismisses itself after the configured delay or on the next press.
package chat
