// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps local chat transcripts in SQLite.
//
// Each thread's messages are stored as flat model.Record rows in arrival
// order. The TUI restores a thread from here on start so the conversation
// is visible before the first new message; clearing history removes the
// thread's rows.
//
// # Usage
//
//	store, err := storage.Open(storage.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	recs, err := store.Load(threadID)
package storage
