// Package repository provides data access for requests, messages, and the
// request timeline.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a referenced row is absent.
var ErrNotFound = errors.New("not found")

// ErrDuplicateMessage is returned when a (channel, external_id) pair already exists.
var ErrDuplicateMessage = errors.New("duplicate message")

// Request is a tracked procurement need.
type Request struct {
	ID              uuid.UUID
	Source          string
	ClientID        *uuid.UUID
	SenderIdentity  string
	Status          string
	PipelineStage   string
	Category        *string
	Subcategory     *string
	Urgency         string
	RawContent      string
	ExtractedFields map[string]string
	AutoReply       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Message is one inbound or outbound message owned by a request.
type Message struct {
	ID             uuid.UUID
	RequestID      uuid.UUID
	Direction      string
	Channel        string
	ExternalID     *string
	SenderIdentity string
	Content        string
	Processed      *bool
	CreatedAt      time.Time
}

// TimelineEvent is one append-only audit entry for a request.
type TimelineEvent struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	ActorType string
	ActorName string
	EventType string
	Title     string
	Summary   *string
	Metadata  map[string]any
	CreatedAt time.Time
}

// ListFilter narrows ListRequests.
type ListFilter struct {
	Stage    string
	Status   string
	ClientID *uuid.UUID
	Limit    int
}

// Repository provides pgx-backed data access for the requests context.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new requests repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `
	id, source, client_id, sender_identity, status, pipeline_stage,
	category, subcategory, urgency, raw_content, extracted_fields,
	auto_reply, created_at, updated_at, deleted_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var fields []byte
	err := row.Scan(
		&req.ID, &req.Source, &req.ClientID, &req.SenderIdentity, &req.Status,
		&req.PipelineStage, &req.Category, &req.Subcategory, &req.Urgency,
		&req.RawContent, &fields, &req.AutoReply, &req.CreatedAt, &req.UpdatedAt,
		&req.DeletedAt,
	)
	if err != nil {
		return Request{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &req.ExtractedFields); err != nil {
			return Request{}, err
		}
	}
	if req.ExtractedFields == nil {
		req.ExtractedFields = make(map[string]string)
	}
	return req, nil
}

// CreateRequestWithMessage atomically creates a request together with its
// first message. A request without messages must never exist.
func (r *Repository) CreateRequestWithMessage(ctx context.Context, req *Request, msg *Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fields, err := json.Marshal(orEmpty(req.ExtractedFields))
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO requests (source, client_id, sender_identity, status, pipeline_stage,
			category, subcategory, urgency, raw_content, extracted_fields, auto_reply)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, req.Source, req.ClientID, req.SenderIdentity, req.Status, req.PipelineStage,
		req.Category, req.Subcategory, req.Urgency, req.RawContent, fields, req.AutoReply,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return err
	}

	msg.RequestID = req.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (request_id, direction, channel, external_id, sender_identity, content, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, msg.RequestID, msg.Direction, msg.Channel, msg.ExternalID, msg.SenderIdentity,
		msg.Content, msg.Processed, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateMessage
		}
		return err
	}

	return tx.Commit(ctx)
}

// GetRequest retrieves a request by id, excluding soft-deleted rows.
func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// ListRequests returns requests matching the filter, most recently updated first.
func (r *Repository) ListRequests(ctx context.Context, filter ListFilter) ([]Request, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE deleted_at IS NULL
			AND ($1 = '' OR pipeline_stage = $1)
			AND ($2 = '' OR status = $2)
			AND ($3::uuid IS NULL OR client_id = $3)
		ORDER BY updated_at DESC
		LIMIT $4
	`, filter.Stage, filter.Status, filter.ClientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateContent stores the accumulated content and extraction results.
func (r *Repository) UpdateContent(ctx context.Context, id uuid.UUID, rawContent string, fields map[string]string, category *string, urgency string) error {
	data, err := json.Marshal(orEmpty(fields))
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests
		SET raw_content = $2,
			extracted_fields = $3,
			category = COALESCE($4, category),
			urgency = $5,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, rawContent, data, category, urgency)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStageStatus moves a request to a new (stage, status) pair.
func (r *Repository) UpdateStageStatus(ctx context.Context, id uuid.UUID, stage, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests
		SET pipeline_stage = $2, status = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, stage, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus sets only the status column (admin update_status action).
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests
		SET status = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a request as deleted. Deletion is always explicit and manual.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSiblings returns other non-deleted, non-closed requests from the same
// client (or the same unresolved sender identity).
func (r *Repository) ListSiblings(ctx context.Context, req Request) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE id <> $1 AND deleted_at IS NULL AND pipeline_stage <> 'closed'
			AND (
				($2::uuid IS NOT NULL AND client_id = $2)
				OR ($2::uuid IS NULL AND client_id IS NULL AND sender_identity = $3 AND source = $4)
			)
		ORDER BY updated_at DESC
		LIMIT 20
	`, req.ID, req.ClientID, req.SenderIdentity, req.Source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		sibling, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sibling)
	}
	return out, rows.Err()
}

// FindCandidate returns the most recently updated open request eligible as a
// continuation target: same resolved client, or same unresolved sender
// identity on the same channel, updated within the recency window.
func (r *Repository) FindCandidate(ctx context.Context, clientID *uuid.UUID, channel, senderIdentity string, since time.Time) (*Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE deleted_at IS NULL
			AND pipeline_stage <> 'closed'
			AND updated_at >= $1
			AND (
				($2::uuid IS NOT NULL AND client_id = $2)
				OR ($2::uuid IS NULL AND client_id IS NULL AND sender_identity = $3 AND source = $4)
			)
		ORDER BY updated_at DESC
		LIMIT 1
	`, since, clientID, senderIdentity, channel))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func orEmpty(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)
