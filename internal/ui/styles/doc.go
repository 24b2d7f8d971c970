// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the colour palette and lipgloss styles shared by the
// chat view, the charts and the CLI.
//
// Colours are lipgloss.AdaptiveColor values so the same name works on
// light and dark terminals. NewTheme resolves the background once, honouring
// the ui.theme setting, and builds the styles from the palette.
package styles
