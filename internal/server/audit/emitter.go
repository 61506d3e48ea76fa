// Package audit ships audit records to an external queue without ever
// holding up the request that produced them.
//
// Delivery is at most once: a record is dropped when the buffer is full and
// lost when the transport fails. Both cases are logged.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
)

// Sender posts one serialized record.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}

// Emitter buffers records in a bounded channel drained by one worker.
type Emitter struct {
	sender  Sender
	timeout time.Duration
	logger  logging.Logger

	mu      sync.RWMutex
	queue   chan models.AuditRecord
	closed  bool
	started atomic.Bool
	done    chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewEmitter(sender Sender, bufferSize int, timeout time.Duration, l logging.Logger) *Emitter {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Emitter{
		sender:  sender,
		timeout: timeout,
		logger:  l.With("module", "audit"),
		queue:   make(chan models.AuditRecord, bufferSize),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (e *Emitter) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.run()
}

// Emit enqueues r and returns immediately. It reports whether the record was
// accepted.
func (e *Emitter) Emit(r models.AuditRecord) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return false
	}

	select {
	case e.queue <- r:
		return true
	default:
		e.dropped.Add(1)
		e.logger.Warn(context.Background(), "audit buffer full, record dropped",
			"activity", r.ActivityType, "user_id", r.UserID)
		return false
	}
}

// Close stops intake and waits for queued records to be dispatched or for
// ctx to end, whichever comes first.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	if !e.started.Load() {
		return nil
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.logger.Warn(ctx, "audit drain interrupted", "pending", len(e.queue))
		return ctx.Err()
	}
}

// Dropped counts records rejected because the buffer was full.
func (e *Emitter) Dropped() uint64 { return e.dropped.Load() }

// Failed counts records the transport did not accept.
func (e *Emitter) Failed() uint64 { return e.failed.Load() }

func (e *Emitter) run() {
	defer close(e.done)
	for r := range e.queue {
		e.dispatch(r)
	}
}

func (e *Emitter) dispatch(r models.AuditRecord) {
	ctx := context.Background()

	body, err := json.Marshal(r)
	if err != nil {
		e.failed.Add(1)
		e.logger.Error(ctx, "audit record serialization failed", "error", err)
		return
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			e.failed.Add(1)
			e.logger.Error(ctx, "audit sender panicked", "panic", p)
		}
	}()

	if err := e.sender.Send(ctx, body); err != nil {
		e.failed.Add(1)
		e.logger.Error(ctx, "audit dispatch failed", "activity", r.ActivityType, "error", err)
	}
}
