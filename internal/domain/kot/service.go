package kot

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service coordinates ticket updates from kitchen and bar staff. Different
// departments progress independently; updates to the same ticket are guarded
// by the repository's compare-and-swap.
type Service struct {
	tickets Repository
	lg      *zap.Logger
	now     func() time.Time
}

// NewService creates a ticket Service.
func NewService(tickets Repository, lg *zap.Logger) *Service {
	return &Service{tickets: tickets, lg: lg, now: time.Now}
}

// Transition advances one department's ticket to the target status.
func (s *Service) Transition(ctx context.Context, orderID uuid.UUID, department string, target Status) (*Ticket, error) {
	t, err := s.tickets.Get(ctx, orderID, department)
	if err != nil {
		return nil, err
	}

	expected := t.Status
	if err := Transition(t, target, s.now()); err != nil {
		return nil, err
	}

	if err := s.tickets.UpdateStatus(ctx, t, expected); err != nil {
		return nil, errors.Wrap(err, "update ticket status")
	}

	s.lg.Info("kot transitioned",
		zap.String("order_id", orderID.String()),
		zap.String("department", department),
		zap.String("status", string(target)),
	)
	return t, nil
}

// Print records a (re)print of a department's ticket. The first print and
// every reprint hit the same row; a duplicate ticket is never created.
func (s *Service) Print(ctx context.Context, orderID uuid.UUID, department string) (*Ticket, error) {
	t, err := s.tickets.Get(ctx, orderID, department)
	if err != nil {
		return nil, err
	}

	count, err := s.tickets.IncrementPrintCount(ctx, t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "increment print count")
	}
	t.PrintCount = count
	return t, nil
}

// Tickets returns all of an order's tickets.
func (s *Service) Tickets(ctx context.Context, orderID uuid.UUID) ([]Ticket, error) {
	tickets, err := s.tickets.ForOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load tickets")
	}
	return tickets, nil
}

// OrderReady reports whether every ticket on the order has reached ready or
// served. Callers use this to decide when to promote the order itself.
func (s *Service) OrderReady(ctx context.Context, orderID uuid.UUID) (bool, error) {
	tickets, err := s.tickets.ForOrder(ctx, orderID)
	if err != nil {
		return false, errors.Wrap(err, "load tickets")
	}
	return AllTicketsReady(tickets), nil
}
