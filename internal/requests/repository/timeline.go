package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Timeline event types.
const (
	TimelineStageChanged   = "stage_changed"
	TimelineStatusChanged  = "status_changed"
	TimelineMessageAdded   = "message_added"
	TimelineClarification  = "clarification_queued"
	TimelineDisposition    = "disposition_applied"
	TimelineManualOverride = "manual_override"
)

// Timeline actor types.
const (
	ActorAutomation = "automation"
	ActorAdmin      = "admin"
	ActorSystem     = "system"
)

// AppendTimeline records one audit entry for a request.
func (r *Repository) AppendTimeline(ctx context.Context, event *TimelineEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO request_timeline (request_id, actor_type, actor_name, event_type, title, summary, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, event.RequestID, event.ActorType, event.ActorName, event.EventType,
		event.Title, event.Summary, metadata,
	).Scan(&event.ID, &event.CreatedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// ListTimeline returns a request's audit entries, oldest first.
func (r *Repository) ListTimeline(ctx context.Context, requestID uuid.UUID) ([]TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, actor_type, actor_name, event_type, title, summary, metadata, created_at
		FROM request_timeline
		WHERE request_id = $1
		ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineEvent
	for rows.Next() {
		var event TimelineEvent
		var metadata []byte
		if err := rows.Scan(
			&event.ID, &event.RequestID, &event.ActorType, &event.ActorName,
			&event.EventType, &event.Title, &event.Summary, &metadata, &event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
