package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbruno/v11pos/internal/domain/order"
)

var (
	_ order.StockRepository   = (*StockRepository)(nil)
	_ order.CustomerDirectory = (*CustomerRepository)(nil)
)

// StockRepository adjusts product stock with single atomic statements, so
// concurrent checkouts cannot oversell.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// Decrement reserves qty units of the product. The guard in the WHERE clause
// makes the check-and-decrement atomic; a miss means the product is unknown
// or cannot cover qty, and both surface as order.ErrInsufficientStock.
func (r *StockRepository) Decrement(ctx context.Context, productID uuid.UUID, qty int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
		qty, productID)
	if err != nil {
		return errors.Wrapf(err, "decrement stock for product %s", productID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrInsufficientStock
	}
	return nil
}

// Restore returns qty units to the product, e.g. after a cancellation.
func (r *StockRepository) Restore(ctx context.Context, productID uuid.UUID, qty int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE products SET stock = stock + $1 WHERE id = $2`,
		qty, productID)
	if err != nil {
		return errors.Wrapf(err, "restore stock for product %s", productID)
	}
	return nil
}

// CustomerRepository tracks per-customer lifetime spend on the same row that
// holds the loyalty balance.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// TotalSpent returns the customer's lifetime spend in minor units.
func (r *CustomerRepository) TotalSpent(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var spent int64
	err := r.pool.QueryRow(ctx,
		`SELECT total_spent FROM customer_balances WHERE customer_id = $1`, customerID,
	).Scan(&spent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "load total spent for customer %s", customerID)
	}
	return spent, nil
}

// AddSpend adds a completed order's total to the customer's lifetime spend.
func (r *CustomerRepository) AddSpend(ctx context.Context, customerID uuid.UUID, amount int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customer_balances (customer_id, total_spent)
		VALUES ($1, $2)
		ON CONFLICT (customer_id)
		DO UPDATE SET total_spent = customer_balances.total_spent + EXCLUDED.total_spent,
		              updated_at = now()`,
		customerID, amount)
	if err != nil {
		return errors.Wrapf(err, "add spend for customer %s", customerID)
	}
	return nil
}
