// Package async is the queued wrapper around the audit Recorder. Tasks carry
// loosely-typed references (actor IDs, kind/primary-key descriptors) and are
// resolved to live objects on the worker before delegating to the
// synchronous write path.
package async

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"fyndora/internal/audit"
)

// TaskKind discriminates the audit-creation flavors.
type TaskKind string

const (
	TaskCreate        TaskKind = "create"
	TaskAuthEvent     TaskKind = "auth_event"
	TaskSecurityEvent TaskKind = "security_event"
	TaskBulkCreate    TaskKind = "bulk_create"
)

// Descriptor names an entity by kind and primary key for resolution on the
// worker side.
type Descriptor struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// CreateRequest is the payload of a generic audit-creation task.
type CreateRequest struct {
	ActorID    *uuid.UUID       `json:"actor_id,omitempty"`
	ActionType audit.ActionType `json:"action_type"`
	Target     *Descriptor      `json:"target,omitempty"`
	Workspace  *Descriptor      `json:"workspace,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// AuthRequest is the payload of an authentication-event task.
type AuthRequest struct {
	ActorID    *uuid.UUID       `json:"actor_id,omitempty"`
	ActionType audit.ActionType `json:"action_type"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// SecurityRequest is the payload of a security-event task.
type SecurityRequest struct {
	ActorID    *uuid.UUID       `json:"actor_id,omitempty"`
	ActionType audit.ActionType `json:"action_type"`
	Target     *Descriptor      `json:"target,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// Task is the queue envelope. Exactly one payload field matching Kind is set.
type Task struct {
	ID       uuid.UUID        `json:"id"`
	Kind     TaskKind         `json:"kind"`
	Create   *CreateRequest   `json:"create,omitempty"`
	Auth     *AuthRequest     `json:"auth,omitempty"`
	Security *SecurityRequest `json:"security,omitempty"`
	Bulk     []CreateRequest  `json:"bulk,omitempty"`
}

func NewCreateTask(req CreateRequest) Task {
	return Task{ID: uuid.New(), Kind: TaskCreate, Create: &req}
}

func NewAuthTask(req AuthRequest) Task {
	return Task{ID: uuid.New(), Kind: TaskAuthEvent, Auth: &req}
}

func NewSecurityTask(req SecurityRequest) Task {
	return Task{ID: uuid.New(), Kind: TaskSecurityEvent, Security: &req}
}

func NewBulkTask(reqs []CreateRequest) Task {
	return Task{ID: uuid.New(), Kind: TaskBulkCreate, Bulk: reqs}
}

// BulkResult aggregates the outcome of a bulk creation task. It is always
// returned to the caller, never raised.
type BulkResult struct {
	SuccessCount   int      `json:"success_count"`
	FailedCount    int      `json:"failed_count"`
	AuditIDs       []string `json:"audit_ids"`
	TotalProcessed int      `json:"total_processed"`
}

// RetryPolicy bounds how a queue runtime retries a failed task. Only errors
// classified retryable are attempted again; everything else is terminal for
// the attempt.
type RetryPolicy struct {
	MaxRetries  int
	Backoff     time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryPolicy retries transient infrastructure failures twice.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  2,
		Backoff:     500 * time.Millisecond,
		IsRetryable: IsTransient,
	}
}

// Retryable reports whether the policy classifies err as worth retrying.
func (p RetryPolicy) Retryable(err error) bool {
	if p.IsRetryable == nil {
		return false
	}
	return p.IsRetryable(err)
}

// IsTransient classifies connection and timeout failures, the only error
// class worth retrying for an audit write.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "i/o timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
