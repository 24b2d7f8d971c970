// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/sjson"
)

// Expense is one recorded expense. Date is YYYY-MM-DD.
type Expense struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
}

// ExpenseInput is the body of a create.
type ExpenseInput struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
}

// ExpensePatch is a partial update; nil fields are left unchanged.
type ExpensePatch struct {
	Amount      *float64
	Category    *string
	Description *string
	Date        *string
}

// Empty reports whether the patch changes nothing.
func (p ExpensePatch) Empty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

// body renders only the set fields.
func (p ExpensePatch) body() ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, v)
		}
	}
	if p.Amount != nil {
		set("amount", *p.Amount)
	}
	if p.Category != nil {
		set("category", *p.Category)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Date != nil {
		set("date", *p.Date)
	}
	return body, err
}

// Filters are the optional list query parameters.
type Filters struct {
	From     string
	To       string
	Category string
	Search   string
	Page     int
	Limit    int
}

// Values encodes the set filters; empty ones are omitted.
func (f Filters) Values() url.Values {
	q := url.Values{}
	add := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	add("from", f.From)
	add("to", f.To)
	add("category", f.Category)
	add("search", f.Search)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// ExpensePage is one page of a list.
type ExpensePage struct {
	Expenses   []Expense `json:"expenses"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// CategoryTotal is one category of a stats response.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// Stats is the aggregate view behind the dashboard. Raw keeps the full
// payload so it can be fed to chart detection.
type Stats struct {
	Total      float64         `json:"total"`
	Count      int             `json:"count"`
	Average    float64         `json:"average"`
	ByCategory []CategoryTotal `json:"byCategory"`
	Expenses   []Expense       `json:"expenses,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ExpenseService wraps the /expenses endpoints.
type ExpenseService struct {
	c *Client
}

// NewExpenseService creates an expense service on c.
func NewExpenseService(c *Client) *ExpenseService {
	return &ExpenseService{c: c}
}

// List returns one page of expenses matching f.
func (s *ExpenseService) List(ctx context.Context, f Filters) (*ExpensePage, error) {
	env, err := s.c.Get(ctx, "/expenses", f.Values())
	if err != nil {
		return nil, err
	}
	var page ExpensePage
	if err := env.Into(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Stats returns aggregates for the optional date range.
func (s *ExpenseService) Stats(ctx context.Context, from, to string) (*Stats, error) {
	env, err := s.c.Get(ctx, "/expenses/stats", Filters{From: from, To: to}.Values())
	if err != nil {
		return nil, err
	}
	var stats Stats
	if err := env.Into(&stats); err != nil {
		return nil, err
	}
	stats.Raw = env.Data
	return &stats, nil
}

// Create records a new expense.
func (s *ExpenseService) Create(ctx context.Context, in ExpenseInput) (*Expense, error) {
	env, err := s.c.Do(ctx, http.MethodPost, "/expenses", nil, in)
	if err != nil {
		return nil, err
	}
	var e Expense
	if err := env.Into(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Update applies a partial change to expense id.
func (s *ExpenseService) Update(ctx context.Context, id string, patch ExpensePatch) (*Expense, error) {
	if patch.Empty() {
		return nil, errors.New("nothing to update")
	}
	body, err := patch.body()
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	env, err := s.c.Do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), nil, body)
	if err != nil {
		return nil, err
	}
	var e Expense
	if err := env.Into(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes expense id.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	env, err := s.c.Do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return env.Err()
}

// BulkDelete removes several expenses and returns how many were deleted.
func (s *ExpenseService) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	env, err := s.c.Do(ctx, http.MethodPost, "/expenses/bulk-delete", nil, map[string][]string{"ids": ids})
	if err != nil {
		return 0, err
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := env.Into(&out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}
