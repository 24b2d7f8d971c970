// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"sort"
)

// ShapeKind is the chart a payload maps to.
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapeBar
	ShapePie
	ShapeLine
)

// String returns the name of the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case ShapeBar:
		return "bar"
	case ShapePie:
		return "pie"
	case ShapeLine:
		return "line"
	default:
		return "none"
	}
}

// Bar is one labelled bar.
type Bar struct {
	Label  string
	Amount int
	Color  string
}

// Slice is one pie slice.
type Slice struct {
	Name  string
	Value float64
	Color string
}

// Point is one month of a line series. Key is YYYY-MM.
type Point struct {
	Month  string
	Key    string
	Amount float64
}

// Shape is the normalized chart input. Only the series of Kind is set.
type Shape struct {
	Kind   ShapeKind
	Bars   []Bar
	Slices []Slice
	Points []Point
}

// None reports whether no chart was recognized.
func (s Shape) None() bool {
	return s.Kind == ShapeNone
}

// Len is the number of data points in the shape.
func (s Shape) Len() int {
	switch s.Kind {
	case ShapeBar:
		return len(s.Bars)
	case ShapePie:
		return len(s.Slices)
	case ShapeLine:
		return len(s.Points)
	default:
		return 0
	}
}

// CanPie reports whether the shape can be shown as a pie.
func (s Shape) CanPie() bool {
	return (s.Kind == ShapeBar || s.Kind == ShapePie) && len(s.AsPie().Slices) > 0
}

// AsPie converts a bar shape to pie slices sorted by descending value.
// Non-positive bars are left out. Shapes other than bar and pie yield none.
func (s Shape) AsPie() Shape {
	switch s.Kind {
	case ShapePie:
		return s
	case ShapeBar:
	default:
		return Shape{}
	}

	slices := make([]Slice, 0, len(s.Bars))
	for _, b := range s.Bars {
		if b.Amount <= 0 {
			continue
		}
		slices = append(slices, Slice{Name: b.Label, Value: float64(b.Amount), Color: b.Color})
	}
	if len(slices) == 0 {
		return Shape{}
	}
	SortSlices(slices)
	return Shape{Kind: ShapePie, Slices: slices}
}

// SortSlices orders slices by descending value, keeping input order on ties.
func SortSlices(slices []Slice) {
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value > slices[j].Value
	})
}
