// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation log and its message types.
//
// # Key Types
//
//   - Message: closed sum type over UserMessage, AIMessage,
//     ToolCallStartMessage, ToolResultMessage and ErrorMessage
//   - Log: append-only conversation log that folds stream events
//   - Record: flat form of a Message used for persistence
//
// # Usage
//
// Fold stream events into a log:
//
//	log := model.NewLog()
//	log.AppendUser("what did I spend on dining?")
//	for _, ev := range events {
//	    log.Apply(ev)
//	}
//	log.CloseOpen()
//
// At most one AIMessage is open at a time. Any event that is not AI text
// closes it before being appended.
package model
