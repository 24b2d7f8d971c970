// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the fintrack command line.
//
// Commands:
//
//	fintrack [chat]              Interactive assistant (TUI)
//	fintrack ask "<question>"    One-shot question, streamed to stdout
//	fintrack dashboard           Totals and charts for a date range
//	fintrack expenses ...        list, add, update, delete, bulk-delete, stats
//	fintrack login [google]      Sign in
//	fintrack signup              Create an account
//	fintrack logout              Sign out
//	fintrack whoami              Show the signed-in account
//	fintrack passwd              Change the password
//	fintrack history ...         list, export, clear local transcripts
//	fintrack config ...          get, set, path, keys
//	fintrack version             Build information
//
// Every command returns its error to Execute, which prints it with
// printError and maps it to an exit code.
package cli
