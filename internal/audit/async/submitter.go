package async

import (
	"context"
	"log/slog"
)

// Submitter is the fire-and-forget API business code uses to queue audit
// work. The only error a caller can see is an enqueue failure; task outcomes
// are observable through the returned handle but waiting is optional.
type Submitter struct {
	queue  Queue
	logger *slog.Logger
}

func NewSubmitter(queue Queue, logger *slog.Logger) *Submitter {
	return &Submitter{queue: queue, logger: logger}
}

// SubmitCreate queues a generic audit-creation task.
func (s *Submitter) SubmitCreate(ctx context.Context, req CreateRequest) (*Handle, error) {
	return s.enqueue(ctx, NewCreateTask(req))
}

// SubmitAuthEvent queues an authentication-event task.
func (s *Submitter) SubmitAuthEvent(ctx context.Context, req AuthRequest) (*Handle, error) {
	return s.enqueue(ctx, NewAuthTask(req))
}

// SubmitSecurityEvent queues a security-event task.
func (s *Submitter) SubmitSecurityEvent(ctx context.Context, req SecurityRequest) (*Handle, error) {
	return s.enqueue(ctx, NewSecurityTask(req))
}

// SubmitBulk queues a batch of create requests processed as one task.
func (s *Submitter) SubmitBulk(ctx context.Context, reqs []CreateRequest) (*Handle, error) {
	return s.enqueue(ctx, NewBulkTask(reqs))
}

func (s *Submitter) enqueue(ctx context.Context, t Task) (*Handle, error) {
	h, err := s.queue.Enqueue(ctx, t)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue audit task",
			"task_id", t.ID,
			"kind", t.Kind,
			"error", err,
		)
		return nil, err
	}
	return h, nil
}
