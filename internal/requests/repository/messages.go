package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `
	id, request_id, direction, channel, external_id, sender_identity,
	content, processed, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var msg Message
	err := row.Scan(
		&msg.ID, &msg.RequestID, &msg.Direction, &msg.Channel, &msg.ExternalID,
		&msg.SenderIdentity, &msg.Content, &msg.Processed, &msg.CreatedAt,
	)
	return msg, err
}

// FindMessageByExternal returns the message for a (channel, external_id) pair,
// or nil when none exists. This is the dedup fast path.
func (r *Repository) FindMessageByExternal(ctx context.Context, channel, externalID string) (*Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE channel = $1 AND external_id = $2
	`, channel, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// InsertMessage appends a message to an existing request. A redelivered
// external id surfaces as ErrDuplicateMessage so the caller can treat it as
// an idempotent success.
func (r *Repository) InsertMessage(ctx context.Context, msg *Message) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (request_id, direction, channel, external_id, sender_identity, content, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, msg.RequestID, msg.Direction, msg.Channel, msg.ExternalID, msg.SenderIdentity,
		msg.Content, msg.Processed, msg.CreatedAt,
	).Scan(&msg.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateMessage
	}
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// GetMessage retrieves one message by id.
func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return msg, err
}

// ListMessages returns a request's messages ordered by ingestion timestamp,
// not arrival order.
func (r *Repository) ListMessages(ctx context.Context, requestID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE request_id = $1
		ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// LastInboundContents returns the content of the request's most recent inbound
// messages, oldest first, capped at limit. Used as classifier context.
func (r *Repository) LastInboundContents(ctx context.Context, requestID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT content FROM (
			SELECT content, created_at
			FROM messages
			WHERE request_id = $1 AND direction = 'inbound'
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		out = append(out, content)
	}
	return out, rows.Err()
}

// QueueOutbound records an outbound message awaiting delivery (processed=false).
func (r *Repository) QueueOutbound(ctx context.Context, msg *Message) error {
	processed := false
	msg.Processed = &processed
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (request_id, direction, channel, sender_identity, content, processed, created_at)
		VALUES ($1, 'outbound', $2, $3, $4, false, now())
		RETURNING id, created_at
	`, msg.RequestID, msg.Channel, msg.SenderIdentity, msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// ListUnprocessedOutbound returns queued outbound messages awaiting delivery.
func (r *Repository) ListUnprocessedOutbound(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE direction = 'outbound' AND processed = false
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// MarkOutboundProcessed records a confirmed channel delivery.
func (r *Repository) MarkOutboundProcessed(ctx context.Context, id uuid.UUID, providerMessageID string) error {
	var external *string
	if providerMessageID != "" {
		external = &providerMessageID
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET processed = true, external_id = COALESCE($2, external_id)
		WHERE id = $1 AND direction = 'outbound'
	`, id, external)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23503"
}
