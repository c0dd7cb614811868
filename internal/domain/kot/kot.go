// Package kot manages Kitchen Order Tickets: the per-department slips that
// direct preparation of an order's items. Each order gets at most one ticket
// per department, and each ticket moves through a strict linear lifecycle
// independent of the order-level state machine.
package kot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// DefaultDepartment is assigned to items that do not name a department.
const DefaultDepartment = "kitchen"

// Status is a ticket's position in its lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusPreparing    Status = "preparing"
	StatusReady        Status = "ready"
	StatusServed       Status = "served"
)

// Ticket is one department's slip for an order. PrintCount tracks reprints;
// a reprint never creates a second ticket for the same department.
type Ticket struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	Department       string
	Status           Status
	ItemCount        int
	PrintCount       int
	EstimatedMinutes int
	CreatedAt        time.Time
	AcknowledgedAt   *time.Time
	PreparingAt      *time.Time
	ReadyAt          *time.Time
	ServedAt         *time.Time
}

// Item is the slice of an order line a ticket cares about.
type Item struct {
	Department  string
	PrepMinutes int
}

// IllegalTransitionError reports a ticket transition that is not the next
// step in the linear lifecycle.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal ticket transition %s -> %s", e.From, e.To)
}

// ErrStaleTicket is returned when a compare-and-swap update finds the ticket
// already moved past the expected status.
var ErrStaleTicket = errors.New("ticket status changed concurrently")

// NotFoundError reports a missing ticket for an (order, department) pair.
type NotFoundError struct {
	OrderID    uuid.UUID
	Department string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s ticket for order %s", e.Department, e.OrderID)
}

// Repository persists tickets. UpdateStatus must compare-and-swap on the
// expected status and return ErrStaleTicket when the row no longer matches,
// so concurrent staff updates to the same ticket cannot clobber each other.
type Repository interface {
	ForOrder(ctx context.Context, orderID uuid.UUID) ([]Ticket, error)
	Get(ctx context.Context, orderID uuid.UUID, department string) (*Ticket, error)
	UpdateStatus(ctx context.Context, t *Ticket, expected Status) error
	IncrementPrintCount(ctx context.Context, id uuid.UUID) (int, error)
}
