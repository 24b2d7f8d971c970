// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// labelKeys and valueKeys are probed in order on the first data row.
	labelKeys = []string{"label", "category", "month", "date", "name"}
	valueKeys = []string{"amount", "total", "value", "count"}
)

// matcher recognizes one payload layout.
type matcher struct {
	name  string
	match func(root gjson.Result) (Shape, bool)
}

// matchers run in order; the first match wins.
var matchers = []matcher{
	{name: "byCategory", match: matchByCategory},
	{name: "expenses", match: matchExpenses},
	{name: "data", match: matchData},
}

// Detect infers a chart shape from a raw JSON tool result. Anything it does
// not recognize, including invalid JSON, is ShapeNone.
func Detect(raw []byte) Shape {
	s, _ := DetectWith(raw)
	return s
}

// DetectWith is Detect that also names the matcher that fired.
func DetectWith(raw []byte) (Shape, string) {
	if !gjson.ValidBytes(raw) {
		return Shape{}, ""
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Shape{}, ""
	}
	for _, m := range matchers {
		if s, ok := m.match(root); ok {
			return s, m.name
		}
	}
	return Shape{}, ""
}

// DetectMap runs Detect on a decoded result.
func DetectMap(result map[string]any) Shape {
	raw, err := json.Marshal(result)
	if err != nil {
		return Shape{}
	}
	return Detect(raw)
}

// objects returns the object elements of a non-empty array at key.
func objects(root gjson.Result, key string) []gjson.Result {
	arr := root.Get(key)
	if !arr.IsArray() {
		return nil
	}
	var out []gjson.Result
	for _, item := range arr.Array() {
		if item.IsObject() {
			out = append(out, item)
		}
	}
	return out
}

// roundAmount rounds halves up, so a -2.5 refund becomes -2.
func roundAmount(v float64) int {
	return int(math.Floor(v + 0.5))
}

// =============================================================================
// MATCHERS
// =============================================================================

// matchByCategory: {"byCategory":[{"category":"DINING","amount":120.4}]}
func matchByCategory(root gjson.Result) (Shape, bool) {
	var bars []Bar
	for _, item := range objects(root, "byCategory") {
		cat := item.Get("category")
		if !cat.Exists() {
			continue
		}
		color, ok := CategoryColor(cat.String())
		if !ok {
			color = FallbackColor
		}
		bars = append(bars, Bar{
			Label:  cat.String(),
			Amount: roundAmount(item.Get("amount").Float()),
			Color:  color,
		})
	}
	if len(bars) == 0 {
		return Shape{}, false
	}
	return Shape{Kind: ShapeBar, Bars: bars}, true
}

// matchExpenses: {"expenses":[{"date":"2024-01-05","amount":10}]}
// More than one distinct month yields a monthly line, otherwise daily bars.
func matchExpenses(root gjson.Result) (Shape, bool) {
	byMonth := map[string]float64{}
	byDay := map[string]float64{}
	n := 0
	for _, item := range objects(root, "expenses") {
		date := item.Get("date").String()
		if len(date) < 10 {
			continue
		}
		amount := item.Get("amount").Float()
		byMonth[date[:7]] += amount
		byDay[date[5:10]] += amount
		n++
	}
	if n == 0 {
		return Shape{}, false
	}

	if len(byMonth) > 1 {
		keys := sortedKeys(byMonth)
		multiYear := keys[0][:4] != keys[len(keys)-1][:4]
		points := make([]Point, 0, len(keys))
		for _, k := range keys {
			points = append(points, Point{
				Month:  monthLabel(k, multiYear),
				Key:    k,
				Amount: math.Floor(byMonth[k]*100+0.5) / 100,
			})
		}
		return Shape{Kind: ShapeLine, Points: points}, true
	}

	keys := sortedKeys(byDay)
	bars := make([]Bar, 0, len(keys))
	for _, k := range keys {
		bars = append(bars, Bar{Label: k, Amount: roundAmount(byDay[k]), Color: AccentColor})
	}
	return Shape{Kind: ShapeBar, Bars: bars}, true
}

// matchData: {"data":[{"label":"Jan","total":10}]} with the label and value
// keys chosen from the first row.
func matchData(root gjson.Result) (Shape, bool) {
	rows := root.Get("data")
	if !rows.IsArray() {
		return Shape{}, false
	}
	all := rows.Array()
	if len(all) == 0 || !all[0].IsObject() {
		return Shape{}, false
	}

	labelKey := firstPresent(all[0], labelKeys)
	valueKey := firstPresent(all[0], valueKeys)
	if labelKey == "" || valueKey == "" {
		return Shape{}, false
	}

	bars := make([]Bar, 0, len(all))
	for i, item := range all {
		if !item.IsObject() {
			continue
		}
		label := item.Get(labelKey).String()
		color, ok := CategoryColor(label)
		if !ok {
			color = paletteAt(i)
		}
		bars = append(bars, Bar{
			Label:  label,
			Amount: roundAmount(item.Get(valueKey).Float()),
			Color:  color,
		})
	}
	return Shape{Kind: ShapeBar, Bars: bars}, true
}

func firstPresent(obj gjson.Result, keys []string) string {
	for _, k := range keys {
		if obj.Get(k).Exists() {
			return k
		}
	}
	return ""
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// monthLabel turns YYYY-MM into a short month name. Series that cross a
// year boundary keep the year so labels stay distinct.
func monthLabel(key string, withYear bool) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	if withYear {
		return t.Format("Jan '06")
	}
	return t.Format("Jan")
}
