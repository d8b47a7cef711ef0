// Package repository provides pgx-backed data access for RFQs and quotes.
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

var (
	// ErrNotFound is returned when an RFQ or quote does not exist.
	ErrNotFound = errors.New("rfq not found")
	// ErrQuoteAccepted is returned when the unique accepted-quote constraint fires.
	ErrQuoteAccepted = errors.New("quote already accepted")
)

// RFQ statuses.
const (
	RFQStatusOpen   = "open"
	RFQStatusClosed = "closed"
)

// Quote statuses.
const (
	QuoteStatusSubmitted = "submitted"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusRejected  = "rejected"
	QuoteStatusInvalid   = "invalid"
)

// RFQ is one quoting round for a request.
type RFQ struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"requestId"`
	Status    string    `json:"status"`
	Round     int       `json:"round"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QuoteItem is one line of a supplier quote.
type QuoteItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Quote is a supplier's offer against an RFQ.
type Quote struct {
	ID           uuid.UUID   `json:"id"`
	RFQID        uuid.UUID   `json:"rfqId"`
	SupplierName string      `json:"supplierName"`
	Items        []QuoteItem `json:"items"`
	Subtotal     float64     `json:"subtotal"`
	Taxes        float64     `json:"taxes"`
	Shipping     float64     `json:"shipping"`
	Total        float64     `json:"total"`
	DeliveryDays int         `json:"deliveryDays"`
	ValidUntil   *time.Time  `json:"validUntil,omitempty"`
	Status       string      `json:"status"`
	SubmittedAt  time.Time   `json:"submittedAt"`
}

// Repository provides data access for the rfq context.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new rfq repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRFQ opens an RFQ. The round is one past the request's latest round.
func (r *Repository) CreateRFQ(ctx context.Context, rfq *RFQ) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rfqs (request_id, status, round)
		VALUES ($1, $2, (SELECT COALESCE(MAX(round), 0) + 1 FROM rfqs WHERE request_id = $1))
		RETURNING id, round, created_at, updated_at
	`, rfq.RequestID, RFQStatusOpen).Scan(&rfq.ID, &rfq.Round, &rfq.CreatedAt, &rfq.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// GetRFQ returns an RFQ by id.
func (r *Repository) GetRFQ(ctx context.Context, id uuid.UUID) (RFQ, error) {
	var rfq RFQ
	err := r.pool.QueryRow(ctx, `
		SELECT id, request_id, status, round, created_at, updated_at
		FROM rfqs WHERE id = $1
	`, id).Scan(&rfq.ID, &rfq.RequestID, &rfq.Status, &rfq.Round, &rfq.CreatedAt, &rfq.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RFQ{}, ErrNotFound
	}
	return rfq, err
}

// LatestOpenRFQ returns the request's most recent open RFQ, or nil.
func (r *Repository) LatestOpenRFQ(ctx context.Context, requestID uuid.UUID) (*RFQ, error) {
	var rfq RFQ
	err := r.pool.QueryRow(ctx, `
		SELECT id, request_id, status, round, created_at, updated_at
		FROM rfqs
		WHERE request_id = $1 AND status = $2
		ORDER BY round DESC
		LIMIT 1
	`, requestID, RFQStatusOpen).Scan(&rfq.ID, &rfq.RequestID, &rfq.Status, &rfq.Round, &rfq.CreatedAt, &rfq.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rfq, nil
}

// CountForRequest returns how many RFQs and submitted quotes a request has.
func (r *Repository) CountForRequest(ctx context.Context, requestID uuid.UUID) (rfqs int, submittedQuotes int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT r.id),
		       COUNT(q.id) FILTER (WHERE q.status = $2)
		FROM rfqs r
		LEFT JOIN quotes q ON q.rfq_id = r.id
		WHERE r.request_id = $1
	`, requestID, QuoteStatusSubmitted).Scan(&rfqs, &submittedQuotes)
	return rfqs, submittedQuotes, err
}

// CloseRFQ marks an RFQ closed.
func (r *Repository) CloseRFQ(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rfqs SET status = $2, updated_at = now() WHERE id = $1
	`, id, RFQStatusClosed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertQuote stores a supplier quote.
func (r *Repository) InsertQuote(ctx context.Context, quote *Quote) error {
	items, err := json.Marshal(quote.Items)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO quotes (rfq_id, supplier_name, items, subtotal, taxes, shipping,
		                    total, delivery_days, valid_until, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, submitted_at
	`, quote.RFQID, quote.SupplierName, items, quote.Subtotal, quote.Taxes,
		quote.Shipping, quote.Total, quote.DeliveryDays, quote.ValidUntil, quote.Status,
	).Scan(&quote.ID, &quote.SubmittedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// GetQuote returns a quote by id.
func (r *Repository) GetQuote(ctx context.Context, id uuid.UUID) (Quote, error) {
	var quote Quote
	var items []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, rfq_id, supplier_name, items, subtotal, taxes, shipping,
		       total, delivery_days, valid_until, status, submitted_at
		FROM quotes WHERE id = $1
	`, id).Scan(&quote.ID, &quote.RFQID, &quote.SupplierName, &items,
		&quote.Subtotal, &quote.Taxes, &quote.Shipping, &quote.Total,
		&quote.DeliveryDays, &quote.ValidUntil, &quote.Status, &quote.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &quote.Items); err != nil {
			return Quote{}, err
		}
	}
	return quote, nil
}

// ListQuotes returns an RFQ's quotes ordered by submission time.
func (r *Repository) ListQuotes(ctx context.Context, rfqID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, rfq_id, supplier_name, items, subtotal, taxes, shipping,
		       total, delivery_days, valid_until, status, submitted_at
		FROM quotes
		WHERE rfq_id = $1
		ORDER BY submitted_at ASC
	`, rfqID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		var quote Quote
		var items []byte
		if err := rows.Scan(&quote.ID, &quote.RFQID, &quote.SupplierName, &items,
			&quote.Subtotal, &quote.Taxes, &quote.Shipping, &quote.Total,
			&quote.DeliveryDays, &quote.ValidUntil, &quote.Status, &quote.SubmittedAt); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &quote.Items); err != nil {
				return nil, err
			}
		}
		out = append(out, quote)
	}
	return out, rows.Err()
}

// MarkQuoteStatus sets a quote's status guarded by its current status.
func (r *Repository) MarkQuoteStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuoteAccepted
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
