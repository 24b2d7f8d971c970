// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored chat transcripts to files.
//
// Two formats are supported:
//
//   - Markdown: readable, with chartable tool results written as tables
//   - JSON: the stored records, readable back with model.FromRecord
//
// # Usage
//
//	recs, _ := store.Load(threadID)
//	t := export.FromRecords(threadID, recs)
//	exp, _ := export.New("md", export.DefaultOptions())
//	path, err := export.ExportToFile(t, exp, opts)
package export
