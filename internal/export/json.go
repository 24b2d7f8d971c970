// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jeranaias/fintrack-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the transcript as the same records the local store
// keeps, so an export can be read back with model.FromRecord.
type JSONExporter struct {
	options *Options
}

type jsonTranscript struct {
	ThreadID string         `json:"thread_id"`
	Exported time.Time      `json:"exported"`
	Messages []model.Record `json:"messages"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export implements Exporter.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, errors.New("transcript is nil")
	}
	out := jsonTranscript{
		ThreadID: t.ThreadID,
		Exported: e.options.now().UTC(),
		Messages: make([]model.Record, 0, len(t.Messages)),
	}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, model.ToRecord(m))
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
