// Package postgres persists audit trail entries in an append-only table.
// Metadata is stored as JSONB so the open key/value shape survives as-is.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fyndora/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const trailColumns = `
	audit_id, actor_kind, actor_id, action_type,
	target_entity_kind, target_entity_id,
	workspace_id, metadata, created_at
`

// Append inserts one trail entry. Entries are never updated afterwards.
func (s *Store) Append(ctx context.Context, entry audit.TrailEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_trail (` + trailColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.AuditID,
		refKind(entry.Actor),
		refID(entry.Actor),
		string(entry.ActionType),
		refKind(entry.TargetEntity),
		refID(entry.TargetEntity),
		refID(entry.Workspace),
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit trail entry: %w", err)
	}
	return nil
}

func (s *Store) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]audit.TrailEntry, error) {
	return s.ListFiltered(ctx, audit.Filters{WorkspaceID: &workspaceID, Limit: limit})
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.TrailEntry, error) {
	return s.ListFiltered(ctx, audit.Filters{Limit: limit})
}

// ListFiltered builds a WHERE clause from the non-zero filters and returns
// entries most recent first.
func (s *Store) ListFiltered(ctx context.Context, f audit.Filters) ([]audit.TrailEntry, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.ActorID != nil {
		add("actor_id = ?", *f.ActorID)
	}
	if f.ActionType != "" {
		add("action_type = ?", string(f.ActionType))
	}
	if f.TargetEntityID != nil {
		add("target_entity_id = ?", *f.TargetEntityID)
	}
	if f.TargetEntityKind != "" {
		add("target_entity_kind = ?", f.TargetEntityKind)
	}
	if f.WorkspaceID != nil {
		add("workspace_id = ?", *f.WorkspaceID)
	}
	if f.Since != nil {
		add("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		add("created_at <= ?", *f.Until)
	}
	if f.Search != "" {
		add("metadata::text ILIKE ?", "%"+f.Search+"%")
	}

	query := "SELECT " + trailColumns + " FROM audit_trail"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries for one action type past the cutoff.
// This is the retention cleanup path, not part of the write pipeline.
func (s *Store) DeleteOlderThan(ctx context.Context, action audit.ActionType, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_trail WHERE action_type = $1 AND created_at < $2`,
		string(action), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit entries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted audit entries: %w", err)
	}
	return removed, nil
}

func scanEntries(rows *sql.Rows) ([]audit.TrailEntry, error) {
	var entries []audit.TrailEntry
	for rows.Next() {
		var (
			entry       audit.TrailEntry
			actorKind   sql.NullString
			actorID     *uuid.UUID
			targetKind  sql.NullString
			targetID    *uuid.UUID
			workspaceID *uuid.UUID
			metadata    []byte
			action      string
		)
		err := rows.Scan(
			&entry.AuditID,
			&actorKind,
			&actorID,
			&action,
			&targetKind,
			&targetID,
			&workspaceID,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit trail entry: %w", err)
		}

		entry.ActionType = audit.ActionType(action)
		if actorID != nil {
			entry.Actor = &audit.Reference{Kind: actorKind.String, ID: *actorID}
		}
		if targetID != nil {
			entry.TargetEntity = &audit.Reference{Kind: targetKind.String, ID: *targetID}
		}
		if workspaceID != nil {
			entry.Workspace = &audit.Reference{Kind: "workspaces.Workspace", ID: *workspaceID}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				entry.Metadata = map[string]any{"raw_data": string(metadata)}
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit trail entries: %w", err)
	}
	return entries, nil
}

func refKind(r *audit.Reference) any {
	if r == nil {
		return nil
	}
	return r.Kind
}

func refID(r *audit.Reference) any {
	if r == nil {
		return nil
	}
	return r.ID
}
