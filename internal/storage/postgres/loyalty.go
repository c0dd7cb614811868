package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbruno/v11pos/internal/domain/loyalty"
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements loyalty.Repository backed by PostgreSQL. The
// customer_balances row doubles as the per-customer lock: Append and
// ExpireLots take it FOR UPDATE so two writers can never read the same
// balance-before, and ExpireLots reads the lot set only after holding it.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// Balance returns the customer's current point balance. Unknown customers
// have a zero balance.
func (r *LoyaltyRepository) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM customer_balances WHERE customer_id = $1`, customerID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "load balance for customer %s", customerID)
	}
	return balance, nil
}

// HasEarned reports whether points were already minted for the order.
func (r *LoyaltyRepository) HasEarned(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM loyalty_transactions WHERE order_id = $1 AND kind = 'earn')`,
		orderID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "check earn for order %s", orderID)
	}
	return exists, nil
}

// Append runs fn under an exclusive row lock on the customer's balance and
// persists the returned entry and the balance update in one transaction. A
// collision on the one-earn-per-order index surfaces as
// loyalty.ErrDuplicateEarn.
func (r *LoyaltyRepository) Append(ctx context.Context, customerID uuid.UUID, fn func(balance int64) (*loyalty.Transaction, error)) (*loyalty.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := lockBalance(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	entry, err := fn(balance)
	if err != nil {
		return nil, err
	}
	if err := persistEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit ledger entry")
	}
	return entry, nil
}

// ExpireLots locks the customer's balance, reads the unexpired lots inside
// the same transaction, and hands both to fn. The lot ids fn returns are
// flagged expired atomically with the entry; a nil entry rolls back without
// writing anything.
func (r *LoyaltyRepository) ExpireLots(ctx context.Context, customerID uuid.UUID, fn func(balance int64, lots []loyalty.Lot) (*loyalty.Transaction, []uuid.UUID, error)) (*loyalty.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := lockBalance(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, points, expires_at
		FROM loyalty_transactions
		WHERE customer_id = $1 AND kind = 'earn' AND NOT expired
		ORDER BY created_at`, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "load lots for customer %s", customerID)
	}
	var lots []loyalty.Lot
	for rows.Next() {
		var l loyalty.Lot
		if err := rows.Scan(&l.ID, &l.Points, &l.ExpiresAt); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan lot row")
		}
		lots = append(lots, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read lot rows")
	}

	entry, expired, err := fn(balance, lots)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	if len(expired) > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE loyalty_transactions SET expired = TRUE WHERE id = ANY($1)`,
			expired)
		if err != nil {
			return nil, errors.Wrap(err, "mark lots expired")
		}
	}
	if err := persistEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit expire entry")
	}
	return entry, nil
}

// lockBalance takes the customer's balance row FOR UPDATE, creating it first
// so there is always a row to lock.
func lockBalance(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (int64, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO customer_balances (customer_id) VALUES ($1)
		ON CONFLICT (customer_id) DO NOTHING`, customerID)
	if err != nil {
		return 0, errors.Wrapf(err, "ensure balance row for customer %s", customerID)
	}

	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT balance FROM customer_balances WHERE customer_id = $1 FOR UPDATE`,
		customerID,
	).Scan(&balance)
	if err != nil {
		return 0, errors.Wrapf(err, "lock balance for customer %s", customerID)
	}
	return balance, nil
}

func persistEntry(ctx context.Context, tx pgx.Tx, entry *loyalty.Transaction) error {
	if !entry.Balanced() {
		return loyalty.ErrUnbalancedEntry
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO loyalty_transactions (
			id, customer_id, points, kind, balance_before, balance_after,
			order_id, expires_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.CustomerID, entry.Points, string(entry.Kind),
		entry.BalanceBefore, entry.BalanceAfter,
		entry.OrderID, entry.ExpiresAt, entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "loyalty_transactions_earn_once" {
			return loyalty.ErrDuplicateEarn
		}
		return errors.Wrapf(err, "insert ledger entry for customer %s", entry.CustomerID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE customer_balances SET balance = $1, updated_at = $2
		WHERE customer_id = $3`,
		entry.BalanceAfter, entry.CreatedAt, entry.CustomerID)
	if err != nil {
		return errors.Wrapf(err, "update balance for customer %s", entry.CustomerID)
	}
	return nil
}
