package stage

import (
	"context"
	"errors"
)

// Serialized enforces a single in-flight call against a collaborator that
// is not documented as safe for concurrent use. Callers beyond the queue
// depth are rejected immediately rather than piling up behind a slow model.
type Serialized[Req, Resp any] struct {
	name   string
	invoke func(context.Context, Req) (Resp, error)
	queue  chan struct{} // admission: running call + waiters
	gate   chan struct{} // execution: exactly one holder
}

// NewSerialized wraps invoke with a one-at-a-time guarantee and a bounded
// wait queue of queueDepth callers behind the running one.
func NewSerialized[Req, Resp any](name string, queueDepth int, invoke func(context.Context, Req) (Resp, error)) *Serialized[Req, Resp] {
	if queueDepth < 0 {
		queueDepth = 0
	}
	return &Serialized[Req, Resp]{
		name:   name,
		invoke: invoke,
		queue:  make(chan struct{}, 1+queueDepth),
		gate:   make(chan struct{}, 1),
	}
}

// Invoke runs the wrapped call, waiting for the collaborator to become
// free. Returns Rejected when the wait queue is full, or the context error
// if ctx expires while queued.
func (s *Serialized[Req, Resp]) Invoke(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	select {
	case s.queue <- struct{}{}:
	default:
		return zero, NewError(Rejected, s.name, errors.New("call queue full"))
	}
	defer func() { <-s.queue }()

	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	defer func() { <-s.gate }()

	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return s.invoke(ctx, req)
}
