// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation drives one chat thread: it gates submissions on the
// idle/streaming state, folds stream events into the message log, and
// keeps the local transcript and server-side history in step.
//
// A Session is owned by the UI loop. Stream callbacks must not call it
// directly; they forward their events to the owning goroutine, which passes
// them back through HandleEvent, HandleDone and HandleError together with
// the generation they were opened under.
package conversation
