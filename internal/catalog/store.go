package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the product catalog.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// productColumns is the full list of columns used in SELECT statements.
const productColumns = `id, name, description, default_price, currency,
	rate_limit_calls, rate_limit_period_seconds, sla_uptime, sla_response_time_ms, created_at`

// scanProduct scans a single product row into a Product struct.
func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.DefaultPrice,
		&p.Currency,
		&p.RateLimit.Calls,
		&p.RateLimit.PeriodSeconds,
		&p.SLA.Uptime,
		&p.SLA.ResponseTimeMs,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new product and returns the full row.
func (s *Store) Create(ctx context.Context, input CreateProductInput) (*Product, error) {
	query := fmt.Sprintf(`INSERT INTO products
		(id, name, description, default_price, currency,
		 rate_limit_calls, rate_limit_period_seconds, sla_uptime, sla_response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, productColumns)

	row := s.pool.QueryRow(ctx, query,
		input.ID,
		input.Name,
		input.Description,
		input.DefaultPrice,
		input.Currency,
		input.RateLimit.Calls,
		input.RateLimit.PeriodSeconds,
		input.SLA.Uptime,
		input.SLA.ResponseTimeMs,
	)
	return scanProduct(row)
}

// GetByID retrieves a product by its ID.
func (s *Store) GetByID(ctx context.Context, id string) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	row := s.pool.QueryRow(ctx, query, id)
	return scanProduct(row)
}

// List returns all products ordered by ID.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id`, productColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
