// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"testing"
)

func TestDetect_ByCategory(t *testing.T) {
	s := Detect([]byte(`{"byCategory":[{"category":"DINING","amount":120.4,"count":2}]}`))
	if s.Kind != ShapeBar {
		t.Fatalf("Kind = %v, want bar", s.Kind)
	}
	if len(s.Bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(s.Bars))
	}
	b := s.Bars[0]
	if b.Label != "DINING" || b.Amount != 120 {
		t.Errorf("bar = %+v, want DINING/120", b)
	}
	if want, _ := CategoryColor("DINING"); b.Color != want {
		t.Errorf("Color = %s, want %s", b.Color, want)
	}
}

func TestDetect_ByCategoryRoundsHalfUp(t *testing.T) {
	s := Detect([]byte(`{"byCategory":[{"category":"FOOD","amount":2.5},{"category":"REFUND","amount":-2.5},{"category":"OTHER","amount":-2.6}]}`))
	if s.Kind != ShapeBar || len(s.Bars) != 3 {
		t.Fatalf("Detect = %+v", s)
	}
	want := map[string]int{"FOOD": 3, "REFUND": -2, "OTHER": -3}
	for _, b := range s.Bars {
		if b.Amount != want[b.Label] {
			t.Errorf("%s amount = %d, want %d", b.Label, b.Amount, want[b.Label])
		}
	}
}

func TestDetect_ByCategoryUnknownUsesFallback(t *testing.T) {
	s := Detect([]byte(`{"byCategory":[{"category":"PETS","amount":9.5}]}`))
	if s.Kind != ShapeBar || s.Bars[0].Color != FallbackColor {
		t.Fatalf("shape = %+v", s)
	}
	if s.Bars[0].Amount != 10 {
		t.Errorf("Amount = %d, want 10", s.Bars[0].Amount)
	}
}

func TestDetect_ExpensesAcrossMonthsIsLine(t *testing.T) {
	s := Detect([]byte(`{"expenses":[{"date":"2024-01-05","amount":10},{"date":"2024-02-10","amount":20}]}`))
	if s.Kind != ShapeLine {
		t.Fatalf("Kind = %v, want line", s.Kind)
	}
	if len(s.Points) != 2 {
		t.Fatalf("got %d points", len(s.Points))
	}
	if s.Points[0].Amount != 10 || s.Points[1].Amount != 20 {
		t.Errorf("amounts = [%v %v], want [10 20]", s.Points[0].Amount, s.Points[1].Amount)
	}
	if s.Points[0].Month != "Jan" || s.Points[1].Month != "Feb" {
		t.Errorf("months = %q %q", s.Points[0].Month, s.Points[1].Month)
	}
}

func TestDetect_ExpensesMonthlySumAndOrder(t *testing.T) {
	raw := `{"expenses":[
		{"date":"2024-03-02","amount":5},
		{"date":"2024-01-31","amount":1.25},
		{"date":"2024-03-20","amount":7},
		{"date":"2024-01-01","amount":2}
	]}`
	s := Detect([]byte(raw))
	if s.Kind != ShapeLine || len(s.Points) != 2 {
		t.Fatalf("shape = %+v", s)
	}
	if s.Points[0].Key != "2024-01" || s.Points[0].Amount != 3.25 {
		t.Errorf("first point = %+v", s.Points[0])
	}
	if s.Points[1].Key != "2024-03" || s.Points[1].Amount != 12 {
		t.Errorf("second point = %+v", s.Points[1])
	}
}

func TestDetect_ExpensesAcrossYearsKeepYear(t *testing.T) {
	s := Detect([]byte(`{"expenses":[{"date":"2023-12-05","amount":1},{"date":"2024-01-10","amount":2}]}`))
	if s.Points[0].Month != "Dec '23" || s.Points[1].Month != "Jan '24" {
		t.Errorf("months = %q %q", s.Points[0].Month, s.Points[1].Month)
	}
}

func TestDetect_ExpensesSameMonthIsDailyBar(t *testing.T) {
	s := Detect([]byte(`{"expenses":[{"date":"2024-01-10","amount":20},{"date":"2024-01-05","amount":10},{"date":"2024-01-05","amount":4.6}]}`))
	if s.Kind != ShapeBar {
		t.Fatalf("Kind = %v, want bar", s.Kind)
	}
	if len(s.Bars) != 2 {
		t.Fatalf("got %d bars", len(s.Bars))
	}
	if s.Bars[0].Label != "01-05" || s.Bars[0].Amount != 15 {
		t.Errorf("bar 0 = %+v", s.Bars[0])
	}
	if s.Bars[1].Label != "01-10" || s.Bars[1].Amount != 20 {
		t.Errorf("bar 1 = %+v", s.Bars[1])
	}
	for _, b := range s.Bars {
		if b.Color != AccentColor {
			t.Errorf("daily bar color = %s, want accent", b.Color)
		}
	}
}

func TestDetect_GenericData(t *testing.T) {
	raw := `{"data":[{"name":"Coffee","total":4.4,"label":"coffee-label"},{"name":"Tea","total":2.6,"label":"tea-label"}]}`
	s := Detect([]byte(raw))
	if s.Kind != ShapeBar {
		t.Fatalf("Kind = %v", s.Kind)
	}
	// label wins over name because it comes first in the probe order.
	if s.Bars[0].Label != "coffee-label" || s.Bars[0].Amount != 4 {
		t.Errorf("bar 0 = %+v", s.Bars[0])
	}
	if s.Bars[0].Color != FallbackPalette[0] || s.Bars[1].Color != FallbackPalette[1] {
		t.Errorf("colors = %s %s", s.Bars[0].Color, s.Bars[1].Color)
	}
}

func TestDetect_GenericDataStringifiesLabels(t *testing.T) {
	s := Detect([]byte(`{"data":[{"month":3,"count":7},{"month":4,"count":1}]}`))
	if s.Kind != ShapeBar || s.Bars[0].Label != "3" || s.Bars[0].Amount != 7 {
		t.Fatalf("shape = %+v", s)
	}
}

func TestDetect_GenericDataCategoryColor(t *testing.T) {
	s := Detect([]byte(`{"data":[{"category":"travel","value":300}]}`))
	want, _ := CategoryColor("TRAVEL")
	if s.Bars[0].Color != want {
		t.Errorf("Color = %s, want %s", s.Bars[0].Color, want)
	}
}

func TestDetect_Precedence(t *testing.T) {
	raw := `{"data":[{"label":"x","amount":1}],"expenses":[{"date":"2024-01-01","amount":1}],"byCategory":[{"category":"FOOD","amount":2}]}`
	s, name := DetectWith([]byte(raw))
	if name != "byCategory" || s.Kind != ShapeBar || s.Bars[0].Label != "FOOD" {
		t.Errorf("matcher = %q, shape = %+v", name, s)
	}
}

func TestDetect_None(t *testing.T) {
	tests := map[string]string{
		"empty object":      `{}`,
		"empty byCategory":  `{"byCategory":[]}`,
		"empty expenses":    `{"expenses":[]}`,
		"expenses no dates": `{"expenses":[{"amount":5}]}`,
		"data no value key": `{"data":[{"label":"a","note":"b"}]}`,
		"data no label key": `{"data":[{"amount":1}]}`,
		"data of scalars":   `{"data":[1,2,3]}`,
		"not an object":     `[1,2]`,
		"invalid json":      `{"byCategory":`,
		"wrong type":        `{"byCategory":"DINING"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if s := Detect([]byte(raw)); !s.None() {
				t.Errorf("Detect(%s) = %v, want none", raw, s.Kind)
			}
		})
	}
}

func TestDetect_FallsThroughToNextMatcher(t *testing.T) {
	s, name := DetectWith([]byte(`{"byCategory":[],"data":[{"label":"a","amount":3}]}`))
	if name != "data" || s.Kind != ShapeBar {
		t.Errorf("matcher = %q, kind = %v", name, s.Kind)
	}
}

func TestDetectMap(t *testing.T) {
	s := DetectMap(map[string]any{
		"byCategory": []any{map[string]any{"category": "DINING", "amount": 120.4}},
	})
	if s.Kind != ShapeBar || s.Bars[0].Amount != 120 {
		t.Errorf("shape = %+v", s)
	}
}

func TestShape_AsPie(t *testing.T) {
	bar := Shape{Kind: ShapeBar, Bars: []Bar{
		{Label: "A", Amount: 10, Color: "#111111"},
		{Label: "B", Amount: 0},
		{Label: "C", Amount: 30, Color: "#333333"},
	}}
	pie := bar.AsPie()
	if pie.Kind != ShapePie || len(pie.Slices) != 2 {
		t.Fatalf("pie = %+v", pie)
	}
	if pie.Slices[0].Name != "C" || pie.Slices[1].Name != "A" {
		t.Errorf("slices not sorted: %+v", pie.Slices)
	}
	if !bar.CanPie() {
		t.Error("CanPie() = false")
	}
	if (Shape{Kind: ShapeLine, Points: []Point{{Amount: 1}}}).CanPie() {
		t.Error("line shape should not convert to pie")
	}
}
