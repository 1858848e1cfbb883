// Package session coordinates concurrent pipeline requests: one run per
// request, per-session ordering, a global in-flight bound, and batch or
// streaming delivery of result envelopes.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/avatarpipeline/internal/pipeline"
	"github.com/normanking/avatarpipeline/internal/timeline"
)

// ErrSessionBusy is returned when a session's wait queue is full. Requests
// for a busy session queue rather than drop user input; the queue bound is
// where back-pressure finally applies.
var ErrSessionBusy = errors.New("session queue full")

// Config bounds coordinator concurrency.
type Config struct {
	// MaxInFlight is the global cap on concurrently running pipelines
	// (default 8).
	MaxInFlight int
	// QueueDepth is how many requests may wait behind a session's
	// in-flight request (default 4).
	QueueDepth int
}

// DefaultConfig returns the default bounds.
func DefaultConfig() Config {
	return Config{MaxInFlight: 8, QueueDepth: 4}
}

// Coordinator accepts requests, serializes them per session, and runs each
// through the orchestrator on its own goroutine. Two requests from
// different sessions may complete in either order; two requests from the
// same session never interleave.
type Coordinator struct {
	logger   zerolog.Logger
	orch     *pipeline.Orchestrator
	inflight chan struct{}
	cfg      Config

	mu       sync.Mutex
	sessions map[string]*sessionGate
}

type sessionGate struct {
	queue chan struct{} // running + waiting admission
	gate  chan struct{} // single execution
	refs  int
}

// New creates a Coordinator over the given orchestrator.
func New(logger zerolog.Logger, orch *pipeline.Orchestrator, cfg Config) *Coordinator {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultConfig().MaxInFlight
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultConfig().QueueDepth
	}
	return &Coordinator{
		logger:   logger.With().Str("component", "coordinator").Logger(),
		orch:     orch,
		inflight: make(chan struct{}, cfg.MaxInFlight),
		cfg:      cfg,
		sessions: make(map[string]*sessionGate),
	}
}

// Do runs one request synchronously and returns its envelope. A terminal
// pipeline failure is returned as a *pipeline.Failure error. The envelope
// is delivered exactly once, to this caller only.
func (c *Coordinator) Do(ctx context.Context, sessionID string, req *pipeline.Request) (*pipeline.Envelope, error) {
	gate, err := c.admit(sessionID)
	if err != nil {
		return nil, err
	}
	defer c.release(sessionID, gate)

	env, fail, err := c.run(ctx, sessionID, gate, req)
	if err != nil {
		return nil, err
	}
	if fail != nil {
		return nil, fail
	}
	return env, nil
}

// EventType tags a streamed event.
type EventType string

const (
	EventKeyframe EventType = "keyframe"
	EventComplete EventType = "complete"
	EventFailed   EventType = "failed"
)

// Event is one item of a streamed response: keyframes in timeline order,
// then exactly one terminal Complete or Failed event.
type Event struct {
	Type     EventType          `json:"type"`
	Keyframe *timeline.Keyframe `json:"keyframe,omitempty"`
	Envelope *pipeline.Envelope `json:"envelope,omitempty"`
	Failure  *pipeline.Failure  `json:"failure,omitempty"`
	Err      error              `json:"-"`
}

// Stream runs one request and delivers its keyframes incrementally, in
// timeline order, each exactly once, followed by a terminal event. The
// channel is closed after the terminal event. Admission errors
// (ErrSessionBusy) are returned synchronously.
func (c *Coordinator) Stream(ctx context.Context, sessionID string, req *pipeline.Request) (<-chan Event, error) {
	gate, err := c.admit(sessionID)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer c.release(sessionID, gate)

		env, fail, err := c.run(ctx, sessionID, gate, req)
		switch {
		case err != nil:
			out <- Event{Type: EventFailed, Err: err}
		case fail != nil:
			out <- Event{Type: EventFailed, Failure: fail, Err: fail}
		default:
			for i := range env.Timeline.Keyframes {
				kf := env.Timeline.Keyframes[i]
				select {
				case out <- Event{Type: EventKeyframe, Keyframe: &kf}:
				case <-ctx.Done():
					// The consumer may have stopped reading; the close
					// below is the real termination signal.
					select {
					case out <- Event{Type: EventFailed, Err: ctx.Err()}:
					default:
					}
					return
				}
			}
			out <- Event{Type: EventComplete, Envelope: env}
		}
	}()
	return out, nil
}

// admit reserves a spot in the session's bounded queue.
func (c *Coordinator) admit(sessionID string) (*sessionGate, error) {
	c.mu.Lock()
	g, ok := c.sessions[sessionID]
	if !ok {
		g = &sessionGate{
			queue: make(chan struct{}, 1+c.cfg.QueueDepth),
			gate:  make(chan struct{}, 1),
		}
		c.sessions[sessionID] = g
	}
	g.refs++
	c.mu.Unlock()

	select {
	case g.queue <- struct{}{}:
		return g, nil
	default:
		c.unref(sessionID, g)
		return nil, ErrSessionBusy
	}
}

func (c *Coordinator) release(sessionID string, g *sessionGate) {
	<-g.queue
	c.unref(sessionID, g)
}

func (c *Coordinator) unref(sessionID string, g *sessionGate) {
	c.mu.Lock()
	g.refs--
	if g.refs <= 0 {
		delete(c.sessions, sessionID)
	}
	c.mu.Unlock()
}

// run waits for the session turn and a global in-flight slot, then
// executes the pipeline.
func (c *Coordinator) run(ctx context.Context, sessionID string, g *sessionGate, req *pipeline.Request) (*pipeline.Envelope, *pipeline.Failure, error) {
	select {
	case g.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	defer func() { <-g.gate }()

	select {
	case c.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	defer func() { <-c.inflight }()

	requestID := uuid.NewString()
	c.logger.Debug().Str("session_id", sessionID).Str("request_id", requestID).Msg("Request started")

	env, fail := c.orch.Run(ctx, requestID, req)
	if fail != nil {
		c.logger.Warn().
			Str("session_id", sessionID).
			Str("request_id", requestID).
			Str("stage", fail.Stage).
			Str("reason", string(fail.Reason)).
			Msg("Request failed")
		return nil, fail, nil
	}
	return env, nil, nil
}
