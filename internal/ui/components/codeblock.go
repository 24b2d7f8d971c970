// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// JSON BLOCK (Chroma-based)
// =============================================================================

// JSON renders raw tool results that have no chart.
type JSON struct {
	Style     string // chroma style name
	Formatter string // chroma formatter name
}

// NewJSON picks a style for the background and a formatter for the colour
// depth.
func NewJSON(dark, trueColor bool) JSON {
	j := JSON{Style: "monokai", Formatter: "terminal256"}
	if !dark {
		j.Style = "github"
	}
	if trueColor {
		j.Formatter = "terminal16m"
	}
	return j
}

// Render pretty-prints raw and highlights it. Output longer than maxLines
// is cut and the number of hidden lines returned; maxLines <= 0 keeps all.
func (j JSON) Render(raw []byte, maxLines int) (string, int) {
	var pretty bytes.Buffer
	code := string(raw)
	if json.Indent(&pretty, raw, "", "  ") == nil {
		code = pretty.String()
	}

	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	hidden := 0
	if maxLines > 0 && len(lines) > maxLines {
		hidden = len(lines) - maxLines
		lines = lines[:maxLines]
	}
	return strings.TrimRight(j.highlight(strings.Join(lines, "\n")), "\n"), hidden
}

func (j JSON) highlight(code string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(j.Style)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get(j.Formatter)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// =============================================================================
// MARKDOWN (glamour)
// =============================================================================

// Markdown renders closed assistant messages. Renderers are built per wrap
// width and output is cached by key, so re-rendering an unchanged
// conversation is cheap.
type Markdown struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
	cache     map[string]string
}

// NewMarkdown creates a renderer using glamour's "dark" or "light" style.
func NewMarkdown(dark bool) *Markdown {
	style := "light"
	if dark {
		style = "dark"
	}
	return &Markdown{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     make(map[string]string),
	}
}

// Render renders text wrapped at width. key identifies the text for the
// cache; an empty key disables caching. On failure text is returned as is.
func (m *Markdown) Render(key, text string, width int) string {
	if m == nil {
		return text
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cacheKey := ""
	if key != "" {
		cacheKey = fmt.Sprintf("%s@%d", key, width)
		if out, ok := m.cache[cacheKey]; ok {
			return out
		}
	}

	r, ok := m.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.renderers[width] = r
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	if cacheKey != "" {
		m.cache[cacheKey] = out
	}
	return out
}

// Forget drops cached output, e.g. after the history is cleared.
func (m *Markdown) Forget() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.cache = make(map[string]string)
	m.mu.Unlock()
}
