package async

import (
	"context"
	"sync"
)

// Handle tracks the eventual outcome of an enqueued task. Queue
// implementations resolve it exactly once; later resolutions are ignored.
type Handle struct {
	done chan struct{}
	once sync.Once
	id   string
	err  error
}

func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Resolve records the outcome and unblocks waiters. Safe to call more than
// once; only the first call wins.
func (h *Handle) Resolve(auditID string, err error) {
	h.once.Do(func() {
		h.id = auditID
		h.err = err
		close(h.done)
	})
}

// Done is closed when the task has finished (or failed terminally).
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the audit ID and error. Only meaningful after Done.
func (h *Handle) Result() (string, error) {
	return h.id, h.err
}

// Wait blocks until the task finishes or ctx expires.
func (h *Handle) Wait(ctx context.Context) (string, error) {
	select {
	case <-h.done:
		return h.id, h.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Queue is the durable task transport. Enqueue blocks only for the enqueue
// acknowledgment; execution is decoupled.
type Queue interface {
	Enqueue(ctx context.Context, t Task) (*Handle, error)
}

// Executor runs one task to completion, returning the created audit ID.
// Both the in-process pool and the Kafka consumer drive an Executor.
type Executor interface {
	Execute(ctx context.Context, t Task) (string, error)
}
