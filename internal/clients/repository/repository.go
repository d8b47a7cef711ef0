// Package repository provides pgx-backed data access for clients and contacts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a client or contact does not exist.
var ErrNotFound = errors.New("client not found")

// Client is a known buyer organization.
type Client struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"-"`
}

// Contact is an additional person reachable for a client.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"clientId"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository provides data access for the clients context.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new clients repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a client.
func (r *Repository) Create(ctx context.Context, client *Client) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, client.Name, client.Phone, client.Email).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

// Get returns a client by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Client, error) {
	var client Client
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, created_at, updated_at, deleted_at
		FROM clients
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&client.ID, &client.Name, &client.Phone, &client.Email,
		&client.CreatedAt, &client.UpdatedAt, &client.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return client, err
}

// List returns all active clients.
func (r *Repository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, phone, email, created_at, updated_at, deleted_at
		FROM clients
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var client Client
		if err := rows.Scan(&client.ID, &client.Name, &client.Phone, &client.Email,
			&client.CreatedAt, &client.UpdatedAt, &client.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, client)
	}
	return out, rows.Err()
}

// AddContact inserts an additional contact for a client.
func (r *Repository) AddContact(ctx context.Context, contact *Contact) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO client_contacts (client_id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, contact.ClientID, contact.Name, contact.Phone, contact.Email).Scan(&contact.ID, &contact.CreatedAt)
}

// ListContacts returns a client's additional contacts.
func (r *Repository) ListContacts(ctx context.Context, clientID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, name, phone, email, created_at
		FROM client_contacts
		WHERE client_id = $1
		ORDER BY created_at ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var contact Contact
		if err := rows.Scan(&contact.ID, &contact.ClientID, &contact.Name,
			&contact.Phone, &contact.Email, &contact.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, contact)
	}
	return out, rows.Err()
}

// Match is a sender identity resolved to a client.
type Match struct {
	ClientID uuid.UUID
	Name     string
}

// FindByPhone matches a normalized E.164 phone against clients and their
// additional contacts. Primary client records win over contacts.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*Match, error) {
	var match Match
	err := r.pool.QueryRow(ctx, `
		SELECT id, name FROM clients
		WHERE phone = $1 AND deleted_at IS NULL
		LIMIT 1
	`, phone).Scan(&match.ClientID, &match.Name)
	if err == nil {
		return &match, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT c.id, c.name
		FROM client_contacts cc
		JOIN clients c ON c.id = cc.client_id AND c.deleted_at IS NULL
		WHERE cc.phone = $1
		LIMIT 1
	`, phone).Scan(&match.ClientID, &match.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// FindByEmail matches a lowercased email against clients and their contacts.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Match, error) {
	var match Match
	err := r.pool.QueryRow(ctx, `
		SELECT id, name FROM clients
		WHERE lower(email) = $1 AND deleted_at IS NULL
		LIMIT 1
	`, email).Scan(&match.ClientID, &match.Name)
	if err == nil {
		return &match, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT c.id, c.name
		FROM client_contacts cc
		JOIN clients c ON c.id = cc.client_id AND c.deleted_at IS NULL
		WHERE lower(cc.email) = $1
		LIMIT 1
	`, email).Scan(&match.ClientID, &match.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}
