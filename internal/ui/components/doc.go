// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components renders conversation messages for the terminal.

It is shared by the interactive chat view and the one-shot `fintrack ask`
command, so both draw a message the same way.

# Components

MessageRenderer (message.go) dispatches on the message kind and returns a
Block: the rendered text plus the position of every chart inside it, which
the chat view uses to hit-test pointer and touch events.

ToolResult (toolresult.go) draws a tool result as a chart when the payload
has a recognised shape, and as highlighted JSON otherwise.

Markdown and JSON (codeblock.go) wrap glamour and chroma.

StatusBar (statusbar.go) shows the state of the conversation and the keys
that are usable in it.
*/
package components
