// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"sync/atomic"
	"time"
)

// TouchDismiss is how long a touch overlay stays up without another touch.
const TouchDismiss = 2200 * time.Millisecond

// Mode is the kind of input currently driving the tooltip.
type Mode int32

const (
	ModePointer Mode = iota
	ModeTouch
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeTouch {
		return "touch"
	}
	return "pointer"
}

// ModeRef holds the input mode. It is written the moment an interaction
// starts and read on every render, so a render never sees a stale mode.
type ModeRef struct {
	v atomic.Int32
}

// Set stores the mode.
func (r *ModeRef) Set(m Mode) { r.v.Store(int32(m)) }

// Get loads the mode.
func (r *ModeRef) Get() Mode { return Mode(r.v.Load()) }

// Overlay is a fixed-position touch tooltip anchored at raw screen
// coordinates.
type Overlay struct {
	Chart   string
	Index   int
	X, Y    int
	Text    string
	Seq     int
	Expires time.Time
}

// Tooltip tracks hover and touch state for the charts of one view.
type Tooltip struct {
	mode    ModeRef
	dismiss time.Duration

	hoverChart string
	hoverIndex int

	overlay *Overlay
	seq     int
}

// NewTooltip creates a tooltip controller. A non-positive dismiss uses
// TouchDismiss.
func NewTooltip(dismiss time.Duration) *Tooltip {
	if dismiss <= 0 {
		dismiss = TouchDismiss
	}
	return &Tooltip{dismiss: dismiss, hoverIndex: -1}
}

// Mode returns the current input mode.
func (t *Tooltip) Mode() Mode {
	return t.mode.Get()
}

// DismissAfter is the touch overlay lifetime.
func (t *Tooltip) DismissAfter() time.Duration {
	return t.dismiss
}

// Hover records pointer movement over chart index i. It is ignored while a
// touch session is active.
func (t *Tooltip) Hover(chart string, i int) {
	if t.TouchActive() {
		return
	}
	t.mode.Set(ModePointer)
	t.hoverChart = chart
	t.hoverIndex = i
}

// Leave clears the hover target.
func (t *Tooltip) Leave() {
	t.hoverChart = ""
	t.hoverIndex = -1
}

// Touch opens, or supersedes, the overlay at screen position (x, y) and
// returns its sequence number for the dismiss timer.
func (t *Tooltip) Touch(chart string, i, x, y int, text string, now time.Time) int {
	t.mode.Set(ModeTouch)
	t.seq++
	t.overlay = &Overlay{
		Chart:   chart,
		Index:   i,
		X:       x,
		Y:       y,
		Text:    text,
		Seq:     t.seq,
		Expires: now.Add(t.dismiss),
	}
	t.Leave()
	return t.seq
}

// Dismiss closes the overlay if seq is still the current touch. A stale
// timer from a superseded touch does nothing.
func (t *Tooltip) Dismiss(seq int) bool {
	if t.overlay == nil || t.overlay.Seq != seq {
		return false
	}
	t.overlay = nil
	t.mode.Set(ModePointer)
	return true
}

// Reset drops all tooltip state.
func (t *Tooltip) Reset() {
	t.overlay = nil
	t.Leave()
	t.mode.Set(ModePointer)
}

// TouchActive reports whether a touch overlay is showing.
func (t *Tooltip) TouchActive() bool {
	return t.overlay != nil
}

// Overlay returns the touch overlay, if any.
func (t *Tooltip) Overlay() (Overlay, bool) {
	if t.overlay == nil {
		return Overlay{}, false
	}
	return *t.overlay, true
}

// Native returns the hovered index of chart for the inline tooltip. It is
// suppressed in touch mode.
func (t *Tooltip) Native(chart string) (int, bool) {
	if t.mode.Get() != ModePointer || t.hoverChart != chart || t.hoverIndex < 0 {
		return -1, false
	}
	return t.hoverIndex, true
}
