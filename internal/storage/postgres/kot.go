package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbruno/v11pos/internal/domain/kot"
)

var _ kot.Repository = (*TicketRepository)(nil)

// TicketRepository implements kot.Repository backed by PostgreSQL.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a TicketRepository that uses the given pool.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, order_id, department, status, item_count, print_count,
	estimated_minutes, created_at, acknowledged_at, preparing_at, ready_at, served_at`

// ForOrder returns all tickets for an order, ordered by department.
func (r *TicketRepository) ForOrder(ctx context.Context, orderID uuid.UUID) ([]kot.Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM kot_tickets WHERE order_id = $1 ORDER BY department`,
		orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "load tickets for order %s", orderID)
	}
	defer rows.Close()

	var out []kot.Ticket
	for rows.Next() {
		var t kot.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get loads the ticket for one (order, department) pair.
func (r *TicketRepository) Get(ctx context.Context, orderID uuid.UUID, department string) (*kot.Ticket, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM kot_tickets WHERE order_id = $1 AND department = $2`,
		orderID, department)

	var t kot.Ticket
	if err := scanTicket(row, &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &kot.NotFoundError{OrderID: orderID, Department: department}
		}
		return nil, err
	}
	return &t, nil
}

// UpdateStatus compare-and-swaps the ticket's status. A CAS miss returns
// kot.ErrStaleTicket.
func (r *TicketRepository) UpdateStatus(ctx context.Context, t *kot.Ticket, expected kot.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE kot_tickets SET
			status = $1,
			acknowledged_at = $2, preparing_at = $3, ready_at = $4, served_at = $5
		WHERE id = $6 AND status = $7`,
		string(t.Status),
		t.AcknowledgedAt, t.PreparingAt, t.ReadyAt, t.ServedAt,
		t.ID, string(expected),
	)
	if err != nil {
		return errors.Wrapf(err, "update ticket %s", t.ID)
	}
	if tag.RowsAffected() == 0 {
		return kot.ErrStaleTicket
	}
	return nil
}

// IncrementPrintCount bumps the reprint counter and returns the new value.
func (r *TicketRepository) IncrementPrintCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`UPDATE kot_tickets SET print_count = print_count + 1 WHERE id = $1 RETURNING print_count`,
		id,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "increment print count for ticket %s", id)
	}
	return count, nil
}

func scanTicket(row pgx.Row, t *kot.Ticket) error {
	err := row.Scan(
		&t.ID, &t.OrderID, &t.Department, &t.Status, &t.ItemCount, &t.PrintCount,
		&t.EstimatedMinutes, &t.CreatedAt, &t.AcknowledgedAt, &t.PreparingAt, &t.ReadyAt, &t.ServedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return errors.Wrap(err, "scan ticket row")
	}
	return nil
}
