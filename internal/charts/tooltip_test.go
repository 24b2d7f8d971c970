// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"testing"
	"time"
)

func TestTooltip_HoverShowsNative(t *testing.T) {
	tt := NewTooltip(0)
	tt.Hover("c1", 2)

	if i, ok := tt.Native("c1"); !ok || i != 2 {
		t.Errorf("Native(c1) = %d, %v", i, ok)
	}
	if _, ok := tt.Native("c2"); ok {
		t.Error("hover on c1 should not show on c2")
	}
	if tt.DismissAfter() != TouchDismiss {
		t.Errorf("DismissAfter() = %v", tt.DismissAfter())
	}
}

func TestTooltip_TouchSuppressesNative(t *testing.T) {
	now := time.Now()
	tt := NewTooltip(0)
	tt.Hover("c1", 0)

	tt.Touch("c1", 1, 40, 10, "DINING: $120", now)

	if tt.Mode() != ModeTouch {
		t.Fatalf("Mode() = %v, want touch", tt.Mode())
	}
	if _, ok := tt.Native("c1"); ok {
		t.Error("native tooltip must be suppressed during touch")
	}

	// Pointer motion during a touch session does not bring it back.
	tt.Hover("c1", 0)
	if _, ok := tt.Native("c1"); ok {
		t.Error("hover during touch re-enabled the native tooltip")
	}

	ov, ok := tt.Overlay()
	if !ok || ov.X != 40 || ov.Y != 10 || ov.Text != "DINING: $120" {
		t.Errorf("Overlay() = %+v, %v", ov, ok)
	}
}

func TestTooltip_NextTouchSupersedes(t *testing.T) {
	now := time.Now()
	tt := NewTooltip(0)
	first := tt.Touch("c1", 0, 1, 1, "a", now)
	second := tt.Touch("c1", 1, 5, 2, "b", now.Add(time.Second))

	if tt.Dismiss(first) {
		t.Error("stale dismiss closed the newer overlay")
	}
	if ov, ok := tt.Overlay(); !ok || ov.Text != "b" {
		t.Fatalf("Overlay() = %+v, %v", ov, ok)
	}
	if !tt.Dismiss(second) {
		t.Error("current dismiss should close the overlay")
	}
	if tt.TouchActive() || tt.Mode() != ModePointer {
		t.Error("dismiss should return to pointer mode")
	}
}

func TestTooltip_DefaultDismiss(t *testing.T) {
	now := time.Now()
	tt := NewTooltip(0)
	if tt.DismissAfter() != 2200*time.Millisecond {
		t.Errorf("DismissAfter() = %v, want 2.2s", tt.DismissAfter())
	}
	tt.Touch("c1", 0, 0, 0, "x", now)
	ov, ok := tt.Overlay()
	if !ok || !ov.Expires.Equal(now.Add(2200*time.Millisecond)) {
		t.Errorf("Overlay() = %+v, %v", ov, ok)
	}
}

func TestTooltip_Reset(t *testing.T) {
	tt := NewTooltip(time.Second)
	tt.Touch("c", 0, 0, 0, "x", time.Now())
	tt.Reset()
	if tt.TouchActive() || tt.Mode() != ModePointer {
		t.Error("Reset() left touch state")
	}
}

func TestModeString(t *testing.T) {
	if ModeTouch.String() != "touch" || ModePointer.String() != "pointer" {
		t.Error("unexpected mode names")
	}
}
