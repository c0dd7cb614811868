package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbruno/v11pos/internal/domain/kot"
	"github.com/josephbruno/v11pos/internal/domain/order"
	"github.com/josephbruno/v11pos/internal/domain/tax"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its first history row, and its kitchen tickets
// in a single transaction. Line items and the tax breakdown are stored as
// JSONB.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, h *order.StatusHistory, tickets []kot.Ticket) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	taxLinesJSON, err := json.Marshal(o.Totals.TaxLines)
	if err != nil {
		return errors.Wrap(err, "marshal tax lines")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, customer_name, order_type, delivery_address,
			status, payment_status, items,
			subtotal, tax_total, tax_lines, service_charge, discount,
			loyalty_value, tip, total,
			points_redeemed, points_earned, priority,
			created_at, confirmed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		o.ID, o.CustomerID, o.CustomerName, string(o.Type), o.DeliveryAddress,
		string(o.Status), string(o.PaymentStatus), itemsJSON,
		o.Totals.Subtotal, o.Totals.Tax, taxLinesJSON, o.Totals.ServiceCharge, o.Totals.Discount,
		o.Totals.LoyaltyValue, o.Totals.Tip, o.Totals.Total,
		o.PointsRedeemed, o.PointsEarned, o.Priority,
		o.CreatedAt, o.ConfirmedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return err
	}

	for i := range tickets {
		t := &tickets[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO kot_tickets (
				id, order_id, department, status, item_count, print_count,
				estimated_minutes, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			t.ID, t.OrderID, t.Department, string(t.Status), t.ItemCount, t.PrintCount,
			t.EstimatedMinutes, t.CreatedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "insert %s ticket for order %s", t.Department, o.ID)
		}
	}

	return tx.Commit(ctx)
}

// Get loads an order by id.
func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		taxLinesJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, customer_name, order_type, delivery_address,
		       status, payment_status, items,
		       subtotal, tax_total, tax_lines, service_charge, discount,
		       loyalty_value, tip, total,
		       points_redeemed, points_earned, priority,
		       created_at, confirmed_at, preparing_at, ready_at, completed_at, cancelled_at
		FROM orders WHERE id = $1`, id,
	).Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.Type, &o.DeliveryAddress,
		&o.Status, &o.PaymentStatus, &itemsJSON,
		&o.Totals.Subtotal, &o.Totals.Tax, &taxLinesJSON, &o.Totals.ServiceCharge, &o.Totals.Discount,
		&o.Totals.LoyaltyValue, &o.Totals.Tip, &o.Totals.Total,
		&o.PointsRedeemed, &o.PointsEarned, &o.Priority,
		&o.CreatedAt, &o.ConfirmedAt, &o.PreparingAt, &o.ReadyAt, &o.CompletedAt, &o.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "load order %s", id)
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal order items")
	}
	if len(taxLinesJSON) > 0 {
		var lines []tax.BreakdownLine
		if err := json.Unmarshal(taxLinesJSON, &lines); err != nil {
			return nil, errors.Wrap(err, "unmarshal tax lines")
		}
		o.Totals.TaxLines = lines
	}
	o.Totals.EffectiveDiscount = o.Totals.Discount + o.Totals.LoyaltyValue

	return &o, nil
}

// UpdateStatus compare-and-swaps the order's status and appends the history
// row in the same transaction. A CAS miss returns order.ErrStaleStatus.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, expected order.Status, h *order.StatusHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET
			status = $1, payment_status = $2,
			preparing_at = $3, ready_at = $4, completed_at = $5, cancelled_at = $6
		WHERE id = $7 AND status = $8`,
		string(o.Status), string(o.PaymentStatus),
		o.PreparingAt, o.ReadyAt, o.CompletedAt, o.CancelledAt,
		o.ID, string(expected),
	)
	if err != nil {
		return errors.Wrapf(err, "update order %s", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStaleStatus
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetPointsEarned records the minted points on the completed order row.
func (r *OrderRepository) SetPointsEarned(ctx context.Context, orderID uuid.UUID, points int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET points_earned = $1 WHERE id = $2`, points, orderID)
	if err != nil {
		return errors.Wrapf(err, "set points earned for order %s", orderID)
	}
	return nil
}

// History returns the order's audit trail, oldest first.
func (r *OrderRepository) History(ctx context.Context, orderID uuid.UUID) ([]order.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, status, note, actor, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "load history for order %s", orderID)
	}
	defer rows.Close()

	var out []order.StatusHistory
	for rows.Next() {
		var h order.StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.Actor, &h.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan history row")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, h *order.StatusHistory) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, status, note, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.OrderID, string(h.Status), h.Note, h.Actor, h.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert history for order %s", h.OrderID)
	}
	return nil
}
