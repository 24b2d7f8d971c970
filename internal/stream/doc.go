// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream is the client side of the chat SSE endpoint.
//
// A chat request is a single POST to /chat. The response body is a sequence of
// frames, each one or more "data: <json>" lines closed by a blank line:
//
//	data: {"type":"ai","payload":{"text":"You spent "}}
//
//	data: {"type":"tool","payload":{"name":"stats","result":{...}}}
//
// Frames that fail to decode are dropped without ending the stream. Exactly one
// of Handlers.OnDone or Handlers.OnError fires per stream, and neither fires
// after Subscription.Cancel.
package stream
