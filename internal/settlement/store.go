package settlement

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists settlement receipts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// BatchInsert writes a batch of receipts in a single round trip.
func (s *Store) BatchInsert(ctx context.Context, receipts []Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range receipts {
		batch.Queue(`INSERT INTO settlements
			(id, consumer_id, product_id, account, transaction_ref, amount, currency, score, stale_data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.ConsumerID, r.ProductID, r.Account, r.TransactionRef,
			r.Amount, r.Currency, r.Score, r.StaleData, r.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range receipts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting settlement receipt: %w", err)
		}
	}
	return nil
}

// CountByConsumer returns the number of settled sales per consumer since
// the given time. Operator-facing; not exposed over HTTP.
func (s *Store) CountByConsumer(ctx context.Context, consumerID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM settlements WHERE consumer_id = $1`, consumerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting settlements: %w", err)
	}
	return n, nil
}
