// Package repository provides pgx-backed data access for purchase orders.
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
	// ErrNotFound is returned when a purchase order does not exist.
	ErrNotFound = errors.New("purchase order not found")
	// ErrQuoteTaken is returned when the unique quote_id constraint fires.
	ErrQuoteTaken = errors.New("quote already has a purchase order")
	// ErrStale is returned when a guarded update matched no row, meaning the
	// order moved concurrently.
	ErrStale = errors.New("purchase order state changed concurrently")
)

// TimelineEntry is one append-only audit record on a purchase order.
type TimelineEntry struct {
	At     time.Time `json:"at"`
	Status string    `json:"status"`
	Actor  string    `json:"actor"`
	Note   string    `json:"note,omitempty"`
}

// PurchaseOrder tracks fulfillment of an accepted quote.
type PurchaseOrder struct {
	ID            uuid.UUID       `json:"id"`
	RequestID     uuid.UUID       `json:"requestId"`
	QuoteID       uuid.UUID       `json:"quoteId"`
	SupplierName  string          `json:"supplierName"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	TotalAmount   float64         `json:"totalAmount"`
	ApprovedBy    string          `json:"approvedBy"`
	Timeline      []TimelineEntry `json:"timeline"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Repository provides data access for the purchaseorders context.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new purchase orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a purchase order. The unique index on quote_id backs the
// one-PO-per-quote invariant.
func (r *Repository) Create(ctx context.Context, po *PurchaseOrder) error {
	timeline, err := json.Marshal(po.Timeline)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO purchase_orders (request_id, quote_id, supplier_name, status,
		                             payment_status, total_amount, approved_by, timeline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, po.RequestID, po.QuoteID, po.SupplierName, po.Status, po.PaymentStatus,
		po.TotalAmount, po.ApprovedBy, timeline,
	).Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrQuoteTaken
	}
	return err
}

// Get returns a purchase order by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, request_id, quote_id, supplier_name, status, payment_status,
		       total_amount, approved_by, timeline, created_at, updated_at
		FROM purchase_orders WHERE id = $1
	`, id))
}

// LatestForRequest returns the request's most recent purchase order, or nil.
func (r *Repository) LatestForRequest(ctx context.Context, requestID uuid.UUID) (*PurchaseOrder, error) {
	po, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, request_id, quote_id, supplier_name, status, payment_status,
		       total_amount, approved_by, timeline, created_at, updated_at
		FROM purchase_orders
		WHERE request_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, requestID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// UpdateStatus moves a purchase order to a new status and appends the
// timeline entry in one statement, guarded by the expected current status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to, paymentStatus string, entry TimelineEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $3,
		    payment_status = $4,
		    timeline = timeline || $5::jsonb,
		    updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to, paymentStatus, encoded)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var timeline []byte
	err := row.Scan(&po.ID, &po.RequestID, &po.QuoteID, &po.SupplierName,
		&po.Status, &po.PaymentStatus, &po.TotalAmount, &po.ApprovedBy,
		&timeline, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &po.Timeline); err != nil {
			return PurchaseOrder{}, err
		}
	}
	return po, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
