// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// AngleFromTop returns the angle in degrees of the vector (dx, dy) measured
// clockwise from straight up, in [0, 360). Screen y grows downward.
func AngleFromTop(dx, dy float64) float64 {
	a := math.Atan2(dx, -dy) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	return a
}

// HitSlice maps an angle to the slice containing it, walking values in order
// and accumulating each span as value/total*360. An angle left over by
// rounding belongs to the last slice. It returns -1 when there is nothing to
// hit.
func HitSlice(values []float64, angle float64) int {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if len(values) == 0 || total <= 0 {
		return -1
	}

	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}

	acc := 0.0
	for i, v := range values {
		acc += v / total * 360
		if angle < acc {
			return i
		}
	}
	return len(values) - 1
}

// Opacity ranks a bar against the series maximum: the maximum is fully
// opaque and every other bar falls between 0.5 and 0.95 in proportion to
// value/max.
func Opacity(value, max float64) float64 {
	if max <= 0 || value >= max {
		return 1
	}
	ratio := value / max
	if ratio < 0 {
		ratio = 0
	}
	return 0.5 + 0.45*ratio
}

// Extremes returns the indexes of the highest and lowest points. The first
// occurrence wins on ties; both are -1 for an empty series.
func Extremes(points []Point) (hi, lo int) {
	if len(points) == 0 {
		return -1, -1
	}
	hi, lo = 0, 0
	for i, p := range points {
		if p.Amount > points[hi].Amount {
			hi = i
		}
		if p.Amount < points[lo].Amount {
			lo = i
		}
	}
	return hi, lo
}

// Fade blends a hex color toward bg at the given opacity.
func Fade(hex, bg string, opacity float64) string {
	if opacity >= 1 {
		return hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	b, err := colorful.Hex(bg)
	if err != nil {
		return hex
	}
	return c.BlendRgb(b, 1-opacity).Clamped().Hex()
}

// Clamp keeps a box of size w×h at (x, y) inside a view of viewW×viewH.
func Clamp(x, y, w, h, viewW, viewH int) (int, int) {
	if x+w > viewW {
		x = viewW - w
	}
	if y+h > viewH {
		y = viewH - h
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
