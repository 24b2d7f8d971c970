// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package charts infers a chart shape from an untyped tool result and renders
// it as a terminal bar, pie or line chart.
//
// Detection is an ordered list of pure matchers over the raw JSON; the first
// one that recognizes the payload wins, and a payload nothing recognizes is
// ShapeNone rather than an error.
//
// Rendering is split from interaction: a Chart draws itself and answers hit
// tests in chart-local cells, while a Tooltip tracks whether the user is
// hovering (mouse motion) or touching (button press) and what to show.
package charts
