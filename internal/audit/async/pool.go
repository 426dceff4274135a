package async

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fyndora/internal/audit"
)

// Pool is the in-process queue runtime: a bounded inbox drained by a fixed
// set of workers, each applying the retry policy per task. It backs
// single-process deployments and the worker side of the Kafka transport.
type Pool struct {
	exec    Executor
	inbox   chan job
	policy  RetryPolicy
	logger  *slog.Logger
	metrics *audit.Metrics
	workers int

	group  *errgroup.Group
	cancel context.CancelFunc
}

type job struct {
	task   Task
	handle *Handle
}

func NewPool(exec Executor, workers, buffer int, policy RetryPolicy, logger *slog.Logger, metrics *audit.Metrics) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Pool{
		exec:    exec,
		inbox:   make(chan job, buffer),
		policy:  policy,
		logger:  logger,
		metrics: metrics,
		workers: workers,
	}
}

// Start launches the workers. They run until ctx is canceled and Close is
// called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		p.group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case j := <-p.inbox:
					p.run(ctx, j)
				}
			}
		})
	}
}

// Enqueue hands a task to the pool. It blocks only while the inbox is full,
// bounded by ctx; callers treat a returned error as an enqueue failure, not
// a task failure.
func (p *Pool) Enqueue(ctx context.Context, t Task) (*Handle, error) {
	h := NewHandle()
	select {
	case p.inbox <- job{task: t, handle: h}:
		return h, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("enqueue audit task: %w", ctx.Err())
	}
}

// Close stops the workers. Queued tasks that were not picked up resolve
// with an error so bulk waiters are not left hanging.
func (p *Pool) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.group != nil {
		_ = p.group.Wait()
	}
	for {
		select {
		case j := <-p.inbox:
			j.handle.Resolve("", context.Canceled)
		default:
			return
		}
	}
}

// run executes one task with bounded retries for transient failures.
// Retried attempts are not deduplicated: an attempt that persisted but lost
// its acknowledgment can produce a duplicate entry, which is accepted.
func (p *Pool) run(ctx context.Context, j job) {
	var (
		auditID string
		err     error
	)
	for attempt := 0; ; attempt++ {
		auditID, err = p.exec.Execute(ctx, j.task)
		if err == nil {
			break
		}
		if attempt >= p.policy.MaxRetries || !p.policy.Retryable(err) {
			p.metrics.IncTaskFailed()
			p.logger.ErrorContext(ctx, "audit task failed",
				"task_id", j.task.ID,
				"kind", j.task.Kind,
				"attempts", attempt+1,
				"error", err,
			)
			break
		}
		p.metrics.IncTaskRetry()
		p.logger.WarnContext(ctx, "retrying audit task",
			"task_id", j.task.ID,
			"kind", j.task.Kind,
			"attempt", attempt+1,
			"error", err,
		)
		select {
		case <-ctx.Done():
			j.handle.Resolve("", ctx.Err())
			return
		case <-time.After(p.policy.Backoff):
		}
	}
	j.handle.Resolve(auditID, err)
}
