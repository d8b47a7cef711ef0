// Package repository provides data access for category rules.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"procurement_backend/internal/catalog/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRuleNotFound is returned when no rule exists for a category.
var ErrRuleNotFound = errors.New("category rule not found")

// StoredRule is a category rule row.
type StoredRule struct {
	Category  string
	Fields    []domain.FieldRule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides data access for category rules.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts or replaces the rule for a category.
func (r *Repository) Upsert(ctx context.Context, rule domain.CategoryRule) error {
	fields, err := json.Marshal(rule.Fields)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO category_rules (category, fields)
		VALUES ($1, $2)
		ON CONFLICT (category) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
	`, domain.NormalizeCategory(rule.Category), fields)
	return err
}

// GetByCategory retrieves the rule for one category.
func (r *Repository) GetByCategory(ctx context.Context, category string) (StoredRule, error) {
	var rule StoredRule
	var fields []byte
	err := r.pool.QueryRow(ctx, `
		SELECT category, fields, created_at, updated_at
		FROM category_rules
		WHERE category = $1
	`, domain.NormalizeCategory(category)).Scan(&rule.Category, &fields, &rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredRule{}, ErrRuleNotFound
	}
	if err != nil {
		return StoredRule{}, err
	}
	if err := json.Unmarshal(fields, &rule.Fields); err != nil {
		return StoredRule{}, err
	}
	return rule, nil
}

// List returns all category rules ordered by category.
func (r *Repository) List(ctx context.Context) ([]StoredRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, fields, created_at, updated_at
		FROM category_rules
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []StoredRule
	for rows.Next() {
		var rule StoredRule
		var fields []byte
		if err := rows.Scan(&rule.Category, &fields, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(fields, &rule.Fields); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
