// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"strings"
)

const (
	// FallbackColor is used for categories missing from the palette.
	FallbackColor = "#64748B"

	// AccentColor fills every bar of a day-of-month series.
	AccentColor = "#8B5CF6"

	// Background is the color bars fade toward at low opacity.
	Background = "#1E1E2E"
)

// categoryColors is keyed by upper-case category name.
var categoryColors = map[string]string{
	"FOOD":           "#F97316",
	"DINING":         "#EF4444",
	"GROCERIES":      "#22C55E",
	"TRANSPORT":      "#3B82F6",
	"TRANSPORTATION": "#3B82F6",
	"SHOPPING":       "#EC4899",
	"ENTERTAINMENT":  "#A855F7",
	"BILLS":          "#EAB308",
	"UTILITIES":      "#EAB308",
	"HEALTH":         "#14B8A6",
	"HEALTHCARE":     "#14B8A6",
	"TRAVEL":         "#06B6D4",
	"EDUCATION":      "#6366F1",
	"HOUSING":        "#84CC16",
	"RENT":           "#84CC16",
	"SUBSCRIPTIONS":  "#F43F5E",
	"OTHER":          "#94A3B8",
}

// FallbackPalette colors generic series by position.
var FallbackPalette = []string{
	"#60A5FA",
	"#F472B6",
	"#34D399",
	"#FBBF24",
	"#A78BFA",
	"#FB923C",
	"#22D3EE",
	"#F87171",
}

// CategoryColor returns the palette entry for a category, matched
// case-insensitively.
func CategoryColor(category string) (string, bool) {
	c, ok := categoryColors[strings.ToUpper(strings.TrimSpace(category))]
	return c, ok
}

func paletteAt(i int) string {
	return FallbackPalette[i%len(FallbackPalette)]
}
