// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for fintrack.
//
// Configuration lives in a TOML file with sensible defaults, environment
// variable overrides and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Backend address, timeout and client-side rate limit
//   - ChatConfig: Thread and rendering settings for the chat view
//   - UIConfig: Theme, tooltip and mouse settings
//   - LogConfig: Log level and rotating file settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FINTRACK_*)
//   - ~/.fintrack/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.BaseURL)
//
// Dotted keys address single values, as used by `fintrack config get|set`:
//
//	v, _ := cfg.Get("ui.tooltip_dismiss")
//	_ = cfg.Set("log.level", "debug")
package config
