// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recorder collects callbacks from one stream.
type recorder struct {
	mu       sync.Mutex
	events   []Event
	dones    int
	errs     []error
	terminal chan struct{}
	once     sync.Once
}

func newRecorder() *recorder {
	return &recorder{terminal: make(chan struct{})}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnEvent: func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		},
		OnDone: func() {
			r.mu.Lock()
			r.dones++
			r.mu.Unlock()
			r.once.Do(func() { close(r.terminal) })
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.once.Do(func() { close(r.terminal) })
		},
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal callback")
	}
}

func (r *recorder) snapshot() ([]Event, int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...), r.dones, append([]error(nil), r.errs...)
}

func writeFrame(w http.ResponseWriter, typ string, payload any) {
	data, _ := json.Marshal(map[string]any{"type": typ, "payload": payload})
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestOpenStreamsEvents(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrame(w, "ai", map[string]any{"text": "You spent "})
		writeFrame(w, "ai", map[string]any{"text": "$120"})
		writeFrame(w, "toolCall:start", map[string]any{"name": "stats", "args": map[string]any{}})
		fmt.Fprint(w, "data: {broken\n\n")
		writeFrame(w, "tool", map[string]any{"name": "stats", "result": map[string]any{"total": 120}})
	}))
	defer server.Close()

	rec := newRecorder()
	sub := NewClient(server.URL).Open(context.Background(), Request{Query: "how much?", ThreadID: "t-1"}, rec.handlers())
	rec.wait(t)
	<-sub.Done()

	if got.Query != "how much?" || got.ThreadID != "t-1" {
		t.Errorf("request body = %+v", got)
	}

	events, dones, errs := rec.snapshot()
	if dones != 1 || len(errs) != 0 {
		t.Fatalf("dones = %d, errs = %v", dones, errs)
	}
	kinds := []EventKind{EventAI, EventAI, EventToolCallStart, EventTool}
	if len(events) != len(kinds) {
		t.Fatalf("got %d events, want %d", len(events), len(kinds))
	}
	for i, k := range kinds {
		if events[i].Kind != k {
			t.Errorf("event %d kind = %v, want %v", i, events[i].Kind, k)
		}
	}
}

func TestOpenNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"error":"agent unavailable"}`)
	}))
	defer server.Close()

	rec := newRecorder()
	NewClient(server.URL).Open(context.Background(), Request{Query: "q", ThreadID: "t"}, rec.handlers())
	rec.wait(t)

	_, dones, errs := rec.snapshot()
	if dones != 0 || len(errs) != 1 {
		t.Fatalf("dones = %d, errs = %v", dones, errs)
	}
	var se *StatusError
	if !errors.As(errs[0], &se) {
		t.Fatalf("error = %T, want *StatusError", errs[0])
	}
	if se.Code != http.StatusInternalServerError || se.Message != "agent unavailable" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestOpenEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rec := newRecorder()
	NewClient(server.URL).Open(context.Background(), Request{}, rec.handlers())
	rec.wait(t)

	_, _, errs := rec.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], ErrNoBody) {
		t.Fatalf("errs = %v, want ErrNoBody", errs)
	}
}

func TestOpenConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	rec := newRecorder()
	NewClient(url).Open(context.Background(), Request{}, rec.handlers())
	rec.wait(t)

	_, dones, errs := rec.snapshot()
	if dones != 0 || len(errs) != 1 {
		t.Fatalf("dones = %d, errs = %v", dones, errs)
	}
}

func TestReadErrorFiresOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrame(w, "ai", map[string]any{"text": "You spent "})

		// Drop the connection in the middle of the chunked body.
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer does not support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	defer server.Close()

	rec := newRecorder()
	sub := NewClient(server.URL).Open(context.Background(), Request{Query: "q", ThreadID: "t"}, rec.handlers())
	rec.wait(t)
	<-sub.Done()

	events, dones, errs := rec.snapshot()
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
	if dones != 0 || len(errs) != 1 {
		t.Fatalf("dones = %d, errs = %v", dones, errs)
	}
	var re *ReadError
	if !errors.As(errs[0], &re) {
		t.Errorf("error = %T, want *ReadError", errs[0])
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "ai", map[string]any{"text": "first"})
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		writeFrame(w, "ai", map[string]any{"text": "second"})
		<-r.Context().Done()
	}))
	defer server.Close()

	first := make(chan struct{})
	var events, terminals atomic.Int32
	h := Handlers{
		OnEvent: func(Event) {
			if events.Add(1) == 1 {
				close(first)
			}
		},
		OnDone:  func() { terminals.Add(1) },
		OnError: func(error) { terminals.Add(1) },
	}

	sub := NewClient(server.URL).Open(context.Background(), Request{}, h)
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("no first event")
	}

	sub.Cancel()
	close(release)

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not exit after cancel")
	}

	if n := events.Load(); n != 1 {
		t.Errorf("events after cancel: got %d total, want 1", n)
	}
	if n := terminals.Load(); n != 0 {
		t.Errorf("terminal callbacks after cancel = %d, want 0", n)
	}
	if !sub.Cancelled() {
		t.Error("Cancelled() = false")
	}
}

func TestCancelAfterDoneIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "ai", map[string]any{"text": "done soon"})
	}))
	defer server.Close()

	rec := newRecorder()
	sub := NewClient(server.URL).Open(context.Background(), Request{}, rec.handlers())
	rec.wait(t)
	<-sub.Done()

	sub.Cancel()
	sub.Cancel()

	_, dones, errs := rec.snapshot()
	if dones != 1 || len(errs) != 0 {
		t.Errorf("dones = %d, errs = %v after repeated cancel", dones, errs)
	}
}

func TestParentContextCancelSuppressesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "ai", map[string]any{"text": "x"})
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var terminals atomic.Int32
	got := make(chan struct{}, 1)
	sub := NewClient(server.URL).Open(ctx, Request{}, Handlers{
		OnEvent: func(Event) { got <- struct{}{} },
		OnDone:  func() { terminals.Add(1) },
		OnError: func(error) { terminals.Add(1) },
	})
	<-got
	cancel()
	<-sub.Done()

	if terminals.Load() != 0 {
		t.Errorf("terminal callbacks = %d, want 0", terminals.Load())
	}
}

type fakeAuthorizer struct {
	token     atomic.Value
	refreshes atomic.Int32
	expired   atomic.Int32
	fail      bool
}

func (f *fakeAuthorizer) AccessToken() string {
	s, _ := f.token.Load().(string)
	return s
}

func (f *fakeAuthorizer) RefreshAccess(context.Context) error {
	f.refreshes.Add(1)
	if f.fail {
		return errors.New("refresh rejected")
	}
	f.token.Store("fresh")
	return nil
}

func (f *fakeAuthorizer) ExpireSession() { f.expired.Add(1) }

func TestOpenRefreshesOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeFrame(w, "ai", map[string]any{"text": "authorized"})
	}))
	defer server.Close()

	auth := &fakeAuthorizer{}
	auth.token.Store("stale")

	rec := newRecorder()
	NewClient(server.URL).WithAuthorizer(auth).Open(context.Background(), Request{}, rec.handlers())
	rec.wait(t)

	events, dones, errs := rec.snapshot()
	if dones != 1 || len(errs) != 0 || len(events) != 1 {
		t.Fatalf("events = %v, dones = %d, errs = %v", events, dones, errs)
	}
	if auth.refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", auth.refreshes.Load())
	}
}

func TestOpenRefreshFailureExpiresSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	auth := &fakeAuthorizer{fail: true}
	auth.token.Store("stale")

	rec := newRecorder()
	NewClient(server.URL).WithAuthorizer(auth).Open(context.Background(), Request{}, rec.handlers())
	rec.wait(t)

	_, _, errs := rec.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], ErrSessionExpired) {
		t.Fatalf("errs = %v, want ErrSessionExpired", errs)
	}
	if auth.expired.Load() != 1 {
		t.Errorf("ExpireSession calls = %d, want 1", auth.expired.Load())
	}
}

func TestOpenFunc(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "ai", map[string]any{"text": "x"})
	}))
	defer server.Close()

	rec := newRecorder()
	cancel := NewClient(server.URL).OpenFunc(context.Background())(Request{}, rec.handlers())
	rec.wait(t)
	cancel()
}
