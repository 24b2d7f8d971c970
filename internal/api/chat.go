// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
)

// ChatService wraps the non-streaming chat endpoints. Streaming lives in
// package stream.
type ChatService struct {
	c *Client
}

// NewChatService creates a chat service on c.
func NewChatService(c *Client) *ChatService {
	return &ChatService{c: c}
}

// ClearHistory deletes the server-side history of a thread.
func (s *ChatService) ClearHistory(ctx context.Context, threadID string) error {
	env, err := s.c.Do(ctx, http.MethodDelete, "/chat/history/"+url.PathEscape(threadID), nil, nil)
	if err != nil {
		return err
	}
	return env.Err()
}
