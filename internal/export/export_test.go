// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/fintrack-tui/internal/model"
)

var t0 = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func sampleTranscript() *Transcript {
	recs := []model.Record{
		{ID: "1", Kind: "user", Text: "What did I spend?", At: t0},
		{ID: "2", Kind: "toolCallStart", ToolName: "getStats", Args: json.RawMessage(`{"month":"2024-03"}`), At: t0.Add(time.Second)},
		{ID: "3", Kind: "toolResult", ToolName: "getStats", Result: json.RawMessage(`{"byCategory":[{"category":"FOOD","amount":120},{"category":"TRANSPORT","amount":40}]}`), At: t0.Add(2 * time.Second)},
		{ID: "4", Kind: "toolResult", ToolName: "lookup", Result: json.RawMessage(`{"ok":true}`), At: t0.Add(3 * time.Second)},
		{ID: "5", Kind: "ai", Text: "Mostly **food**.", At: t0.Add(4 * time.Second)},
		{ID: "6", Kind: "bogus", At: t0},
	}
	return FromRecords("0f3c9a7e-1111-2222", recs)
}

func TestFromRecordsSkipsUnknownKinds(t *testing.T) {
	tr := sampleTranscript()
	if len(tr.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(tr.Messages))
	}
	if !tr.Started().Equal(t0) {
		t.Errorf("Started = %v, want %v", tr.Started(), t0)
	}
}

func TestMarkdownExport(t *testing.T) {
	opts := DefaultOptions()
	opts.Now = t0.Add(time.Hour)
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"thread: 0f3c9a7e-1111-2222",
		"messages: 5",
		"### [You] <sub>14:30:00</sub>",
		"What did I spend?",
		"**Tool**: `getStats`",
		`"month": "2024-03"`,
		"| FOOD | $120 |",
		"| TRANSPORT | $40 |",
		"```json\n{\n  \"ok\": true\n}\n```",
		"Mostly **food**.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)
	if strings.HasPrefix(md, "---") {
		t.Error("front matter written without IncludeMetadata")
	}
	if strings.Contains(md, "<sub>") {
		t.Error("timestamps written without IncludeTimestamps")
	}
}

func TestMarkdownExportEmpty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&Transcript{ThreadID: "x"})
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestJSONExportRoundTripsRecords(t *testing.T) {
	out, err := NewJSONExporter(&Options{Now: t0}).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var doc jsonTranscript
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.ThreadID != "0f3c9a7e-1111-2222" || len(doc.Messages) != 5 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	msg, err := model.FromRecord(doc.Messages[4])
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if got := model.Text(msg); got != "Mostly **food**." {
		t.Errorf("text = %q", got)
	}
}

func TestNew(t *testing.T) {
	for format, ext := range map[string]string{"md": ".md", "Markdown": ".md", "json": ".json"} {
		e, err := New(format, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		if e.FileExtension() != ext {
			t.Errorf("New(%q) extension = %q", format, e.FileExtension())
		}
	}
	if _, err := New("html", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	opts := &Options{OutputDir: dir, Now: t0}
	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if want := filepath.Join(dir, "fintrack_0f3c9a7e_20240305_143000.md"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"a/b:c":      "a-b-c",
		"two words":  "two_words",
		"":           "thread",
		"tab\there":  "tab_here",
		"ok-name_01": "ok-name_01",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
