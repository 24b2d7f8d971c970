// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
)

// MaxLineSize bounds a single buffered line (16MB). The rest of a longer
// line is skipped up to its newline and the frame it belonged to is counted
// in Oversized.
const MaxLineSize = 16 << 20

var dataPrefix = []byte("data: ")

// Decoder turns arbitrary read chunks into events. It keeps the partial
// trailing line between calls, so a frame may be split anywhere.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf       []byte
	scanned   int // bytes of buf already searched for a newline
	skipping  bool
	maxLine   int
	data      []byte
	hasData   bool
	dropped   int
	oversized int
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{maxLine: MaxLineSize}
}

// Feed consumes a chunk and returns the events of every frame it completes.
func (d *Decoder) Feed(chunk []byte) []Event {
	var events []Event

	d.buf = append(d.buf, chunk...)
	start := 0
	for {
		i := bytes.IndexByte(d.buf[d.scanned:], '\n')
		if i < 0 {
			break
		}
		end := d.scanned + i
		line := bytes.TrimSuffix(d.buf[start:end], []byte("\r"))
		start = end + 1
		d.scanned = start

		if d.skipping {
			d.skipping = false
			continue
		}
		if ev, ok := d.line(line); ok {
			events = append(events, ev)
		}
	}

	// Only the unterminated tail is kept; it never exceeds this chunk.
	if start > 0 {
		n := copy(d.buf, d.buf[start:])
		d.buf = d.buf[:n]
	}
	d.scanned = len(d.buf)

	if len(d.buf) > d.maxLine {
		d.oversized++
		d.skipping = true
		d.data = nil
		d.hasData = false
		d.buf = d.buf[:0]
		d.scanned = 0
	}
	if d.skipping {
		d.buf = d.buf[:0]
		d.scanned = 0
	}
	return events
}

// Dropped reports how many terminated frames failed to decode.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Oversized reports how many lines were skipped for exceeding MaxLineSize.
func (d *Decoder) Oversized() int {
	return d.oversized
}

// Pending reports whether an unterminated line or frame is buffered.
func (d *Decoder) Pending() bool {
	return len(d.buf) > 0 || d.hasData
}

func (d *Decoder) line(line []byte) (Event, bool) {
	if len(line) == 0 {
		if !d.hasData {
			return Event{}, false
		}
		data := d.data
		d.data = nil
		d.hasData = false

		ev, ok := DecodeFrame(data)
		if !ok {
			d.dropped++
		}
		return ev, ok
	}

	if bytes.HasPrefix(line, dataPrefix) {
		// Last data line of a frame wins.
		d.data = append(d.data[:0], line[len(dataPrefix):]...)
		d.hasData = true
	}
	return Event{}, false
}
