// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/fintrack-tui/internal/model"
	"github.com/jeranaias/fintrack-tui/internal/stream"
)

// ErrBusy is returned by operations that are unavailable while a stream is
// active.
var ErrBusy = errors.New("a response is still streaming")

// =============================================================================
// STATE
// =============================================================================

// State is the position of a session in its idle/streaming cycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Opener starts a chat stream and returns its cancel function.
// stream.Client.OpenFunc produces one.
type Opener func(stream.Request, stream.Handlers) (cancel func())

// Bind builds the handlers for the stream opened under generation gen.
type Bind func(gen uint64) stream.Handlers

// HistoryClearer deletes the server-side history of a thread.
type HistoryClearer interface {
	ClearHistory(ctx context.Context, threadID string) error
}

// Transcript is the local message cache of a thread.
type Transcript interface {
	Append(threadID string, recs []model.Record) error
	Load(threadID string) ([]model.Record, error)
	Clear(threadID string) error
}

// Options configure a Session.
type Options struct {
	ThreadID   string
	Open       Opener
	Clearer    HistoryClearer
	Transcript Transcript
	Logger     *zerolog.Logger
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one chat thread. It is not safe for concurrent use.
type Session struct {
	threadID string
	log      *model.Log
	state    State

	// gen increments on every submission; events carrying an older
	// generation belong to a stream that is no longer current.
	gen    uint64
	cancel func()

	open       Opener
	clearer    HistoryClearer
	transcript Transcript

	// saved is the number of log messages already in the transcript.
	saved int

	logger zerolog.Logger
}

// New creates an idle session with an empty log.
func New(opts Options) *Session {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("thread", opts.ThreadID).Logger()
	}
	return &Session{
		threadID:   opts.ThreadID,
		log:        model.NewLog(),
		open:       opts.Open,
		clearer:    opts.Clearer,
		transcript: opts.Transcript,
		logger:     logger,
	}
}

// ThreadID returns the thread this session talks on.
func (s *Session) ThreadID() string { return s.threadID }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Streaming reports whether a response is in flight.
func (s *Session) Streaming() bool { return s.state == StateStreaming }

// Generation returns the generation of the most recent submission.
func (s *Session) Generation() uint64 { return s.gen }

// Messages returns the log in arrival order.
func (s *Session) Messages() []model.Message { return s.log.Messages() }

// Log exposes the underlying log for rendering.
func (s *Session) Log() *model.Log { return s.log }

// Submit appends text as a user message and opens a stream for it. It
// returns false and changes nothing when text is blank or a stream is
// already active.
func (s *Session) Submit(text string, bind Bind) bool {
	query := strings.TrimSpace(text)
	if query == "" || s.state == StateStreaming || s.open == nil {
		return false
	}

	s.log.AppendUser(query)
	s.gen++
	s.state = StateStreaming

	var h stream.Handlers
	if bind != nil {
		h = bind(s.gen)
	}
	s.cancel = s.open(stream.Request{Query: query, ThreadID: s.threadID}, h)

	s.logger.Debug().Uint64("gen", s.gen).Int("len", len(query)).Msg("submitted")
	return true
}

// HandleEvent folds ev into the log. It returns the affected message, or
// nil when gen is stale or the session is idle.
func (s *Session) HandleEvent(gen uint64, ev stream.Event) model.Message {
	if !s.current(gen) {
		return nil
	}
	return s.log.Apply(ev)
}

// HandleDone ends the current stream normally.
func (s *Session) HandleDone(gen uint64) bool {
	if !s.current(gen) {
		return false
	}
	s.finish()
	s.logger.Debug().Uint64("gen", gen).Msg("stream done")
	return true
}

// HandleError ends the current stream and records the failure as a
// synthetic assistant message. Messages already received are kept.
func (s *Session) HandleError(gen uint64, err error) bool {
	if !s.current(gen) {
		return false
	}
	s.log.AppendFailure(FailureText(err))
	s.finish()
	s.logger.Warn().Err(err).Uint64("gen", gen).Msg("stream failed")
	return true
}

// Cancel stops the active stream, if any, and returns to idle. Messages
// received so far are kept.
func (s *Session) Cancel() bool {
	if s.state != StateStreaming {
		return false
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.finish()
	s.logger.Debug().Uint64("gen", s.gen).Msg("stream cancelled")
	return true
}

// Close cancels any active stream. The session must not be used after.
func (s *Session) Close() {
	s.Cancel()
}

// ClearHistory empties the log and the local transcript, then deletes the
// thread's history on the server. It is refused while streaming.
func (s *Session) ClearHistory(ctx context.Context) error {
	if s.state == StateStreaming {
		return ErrBusy
	}
	s.log.Clear()
	s.saved = 0

	var errs []error
	if s.transcript != nil {
		if err := s.transcript.Clear(s.threadID); err != nil {
			errs = append(errs, fmt.Errorf("clear transcript: %w", err))
		}
	}
	if s.clearer != nil {
		if err := s.clearer.ClearHistory(ctx, s.threadID); err != nil {
			errs = append(errs, fmt.Errorf("clear server history: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Restore loads the local transcript into an idle, empty session.
func (s *Session) Restore() (int, error) {
	if s.transcript == nil {
		return 0, nil
	}
	if s.state == StateStreaming {
		return 0, ErrBusy
	}
	recs, err := s.transcript.Load(s.threadID)
	if err != nil {
		return 0, fmt.Errorf("load transcript: %w", err)
	}
	msgs := make([]model.Message, 0, len(recs))
	for _, r := range recs {
		m, err := model.FromRecord(r)
		if err != nil {
			s.logger.Debug().Err(err).Str("id", r.ID).Msg("skipping transcript record")
			continue
		}
		msgs = append(msgs, m)
	}
	s.log.Restore(msgs)
	s.saved = s.log.Len()
	return len(msgs), nil
}

func (s *Session) current(gen uint64) bool {
	return s.state == StateStreaming && gen == s.gen
}

func (s *Session) finish() {
	s.log.CloseOpen()
	s.state = StateIdle
	s.cancel = nil
	s.persist()
}

// persist appends the messages added since the last save. A transcript
// failure is logged and otherwise ignored; the chat keeps working.
func (s *Session) persist() {
	if s.transcript == nil {
		return
	}
	pending := s.log.Since(s.saved)
	if len(pending) == 0 {
		return
	}
	recs := make([]model.Record, len(pending))
	for i, m := range pending {
		recs[i] = model.ToRecord(m)
	}
	if err := s.transcript.Append(s.threadID, recs); err != nil {
		s.logger.Warn().Err(err).Msg("save transcript")
		return
	}
	s.saved += len(pending)
}

// FailureText is the assistant text shown when a stream fails.
func FailureText(err error) string {
	switch {
	case errors.Is(err, stream.ErrSessionExpired):
		return "Your session has expired. Sign in again with `fintrack login`."
	case err == nil:
		return "Sorry, something went wrong while answering."
	default:
		return "Sorry, something went wrong while answering: " + err.Error()
	}
}
