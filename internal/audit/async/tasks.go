package async

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fyndora/internal/audit"
)

// ActorLookup resolves an actor ID to a reference for the trail entry.
// Implementations return audit.ErrNotFound for unknown principals.
type ActorLookup interface {
	FindActor(ctx context.Context, id uuid.UUID) (*audit.Reference, error)
}

const defaultBulkEntryTimeout = 30 * time.Second

// Tasks executes queued audit-creation tasks. Reference resolution failures
// degrade to nil references with a warning; the entry is still created.
// Persistence errors are returned so the queue runtime can classify them
// for retry.
type Tasks struct {
	recorder *audit.Recorder
	resolver *audit.Resolver
	actors   ActorLookup
	logger   *slog.Logger
	metrics  *audit.Metrics

	// queue is where bulk tasks fan out their per-entry work. Bound after
	// construction because the pool itself needs Tasks as its executor.
	queue            Queue
	bulkEntryTimeout time.Duration
}

func NewTasks(recorder *audit.Recorder, entities audit.EntityLookup, actors ActorLookup, logger *slog.Logger, metrics *audit.Metrics) *Tasks {
	return &Tasks{
		recorder:         recorder,
		resolver:         audit.NewResolver(entities),
		actors:           actors,
		logger:           logger,
		metrics:          metrics,
		bulkEntryTimeout: defaultBulkEntryTimeout,
	}
}

// BindQueue wires the queue bulk tasks submit their entries to.
func (t *Tasks) BindQueue(q Queue) {
	t.queue = q
}

// Execute dispatches a task to its handler. Bulk tasks report success as
// long as the batch ran; individual entry failures live in the aggregate.
func (t *Tasks) Execute(ctx context.Context, task Task) (string, error) {
	switch task.Kind {
	case TaskCreate:
		if task.Create == nil {
			return "", fmt.Errorf("create task %s has no payload", task.ID)
		}
		return t.ExecuteCreate(ctx, *task.Create)
	case TaskAuthEvent:
		if task.Auth == nil {
			return "", fmt.Errorf("auth task %s has no payload", task.ID)
		}
		return t.ExecuteAuthEvent(ctx, *task.Auth)
	case TaskSecurityEvent:
		if task.Security == nil {
			return "", fmt.Errorf("security task %s has no payload", task.ID)
		}
		return t.ExecuteSecurityEvent(ctx, *task.Security)
	case TaskBulkCreate:
		result := t.ExecuteBulk(ctx, task.Bulk)
		t.logger.InfoContext(ctx, "bulk audit processing completed",
			"success_count", result.SuccessCount,
			"failed_count", result.FailedCount,
			"total_processed", result.TotalProcessed,
		)
		return "", nil
	default:
		return "", fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

// ExecuteCreate resolves the request's references and writes one trail
// entry. The returned error is the persistence error, if any, so retry
// policies can classify it; resolution failures never error.
func (t *Tasks) ExecuteCreate(ctx context.Context, req CreateRequest) (string, error) {
	actor := t.resolveActor(ctx, req.ActorID)
	target := t.resolveDescriptor(ctx, req.Target)
	workspace := t.resolveDescriptor(ctx, req.Workspace)

	entry, err := t.recorder.Record(ctx, actor, req.ActionType, target, workspace, markManual(req.Metadata))
	if err != nil {
		t.logger.ErrorContext(ctx, "async audit creation failed",
			"action_type", req.ActionType,
			"error", err,
		)
		return "", err
	}
	return entry.AuditID.String(), nil
}

// ExecuteAuthEvent is the queued variant of CreateAuthenticationEvent.
func (t *Tasks) ExecuteAuthEvent(ctx context.Context, req AuthRequest) (string, error) {
	actor := t.resolveActor(ctx, req.ActorID)
	entry := t.recorder.CreateAuthenticationEvent(ctx, actor, req.ActionType, markManual(req.Metadata))
	if entry == nil {
		return "", fmt.Errorf("authentication audit creation returned no entry")
	}
	return entry.AuditID.String(), nil
}

// ExecuteSecurityEvent is the queued variant of CreateSecurityEvent.
func (t *Tasks) ExecuteSecurityEvent(ctx context.Context, req SecurityRequest) (string, error) {
	actor := t.resolveActor(ctx, req.ActorID)
	target := t.resolveDescriptor(ctx, req.Target)
	entry := t.recorder.CreateSecurityEvent(ctx, actor, req.ActionType, target, markManual(req.Metadata))
	if entry == nil {
		return "", fmt.Errorf("security audit creation returned no entry")
	}
	return entry.AuditID.String(), nil
}

// ExecuteBulk submits one create task per entry and waits for each with a
// bounded per-entry timeout, so a single stuck entry cannot block the batch.
// An entry that times out, fails to enqueue, or resolves without an audit ID
// counts as failed.
func (t *Tasks) ExecuteBulk(ctx context.Context, reqs []CreateRequest) BulkResult {
	result := BulkResult{TotalProcessed: len(reqs), AuditIDs: []string{}}

	for _, req := range reqs {
		auditID, err := t.submitAndWait(ctx, req)
		if err != nil || auditID == "" {
			if err != nil {
				t.logger.ErrorContext(ctx, "failed to process bulk audit entry", "error", err)
			}
			result.FailedCount++
			continue
		}
		result.AuditIDs = append(result.AuditIDs, auditID)
		result.SuccessCount++
	}

	return result
}

func (t *Tasks) submitAndWait(ctx context.Context, req CreateRequest) (string, error) {
	if t.queue == nil {
		return "", fmt.Errorf("no queue bound for bulk processing")
	}
	handle, err := t.queue.Enqueue(ctx, NewCreateTask(req))
	if err != nil {
		return "", fmt.Errorf("enqueue bulk entry: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.bulkEntryTimeout)
	defer cancel()
	return handle.Wait(waitCtx)
}

// markManual stamps queued entries as manually invoked. Lifecycle emitters
// mark their own entries automatic; anything arriving through the task queue
// was requested by a caller, so every persisted entry states which path it
// took. Callers that already set either marker win.
func markManual(metadata map[string]any) map[string]any {
	if _, ok := metadata["automatic_logging"]; ok {
		return metadata
	}
	if _, ok := metadata["manual_logging"]; ok {
		return metadata
	}
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["manual_logging"] = true
	return out
}

// resolveActor degrades every failure to a nil actor: the audit entry is
// still worth keeping without attribution.
func (t *Tasks) resolveActor(ctx context.Context, actorID *uuid.UUID) *audit.Reference {
	if actorID == nil {
		return nil
	}
	if t.actors == nil {
		t.logger.WarnContext(ctx, "no actor lookup configured, dropping actor reference", "actor_id", *actorID)
		return nil
	}
	actor, err := t.actors.FindActor(ctx, *actorID)
	if err != nil {
		t.logger.WarnContext(ctx, "actor not found for audit logging", "actor_id", *actorID, "error", err)
		return nil
	}
	return actor
}

// resolveDescriptor degrades a failed or malformed descriptor lookup to a
// nil reference and logs a warning.
func (t *Tasks) resolveDescriptor(ctx context.Context, d *Descriptor) *audit.Reference {
	if d == nil {
		return nil
	}
	entity, err := t.resolver.Resolve(ctx, audit.ByDescriptor(d.Kind, d.ID))
	if err != nil || entity == nil {
		t.logger.WarnContext(ctx, "target entity not found for audit logging",
			"kind", d.Kind,
			"id", d.ID,
			"error", err,
		)
		return nil
	}
	return audit.Ref(entity)
}
