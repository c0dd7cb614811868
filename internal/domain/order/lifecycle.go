package order

import (
	"time"

	"github.com/google/uuid"
)

// transitions lists the legal edges of the fulfillment state machine.
// Completed and cancelled are terminal; cancellation is reachable from every
// non-terminal state.
var transitions = map[Status][]Status{
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether target is reachable from current.
func CanTransition(current, target Status) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition advances the order to target, stamps the matching timestamp, and
// returns the history row to append. Illegal edges are rejected, never
// clamped, and leave the order untouched.
func Transition(o *Order, target Status, now time.Time, note, actor string) (*StatusHistory, error) {
	if !CanTransition(o.Status, target) {
		return nil, &IllegalTransitionError{From: o.Status, To: target}
	}

	o.Status = target
	switch target {
	case StatusPreparing:
		o.PreparingAt = &now
	case StatusReady:
		o.ReadyAt = &now
	case StatusCompleted:
		o.CompletedAt = &now
		o.PaymentStatus = PaymentPaid
	case StatusCancelled:
		o.CancelledAt = &now
		if o.PaymentStatus == PaymentPaid {
			o.PaymentStatus = PaymentRefunded
		}
	}

	return &StatusHistory{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    target,
		Note:      note,
		Actor:     actor,
		CreatedAt: now,
	}, nil
}
