package kot

import "time"

// next maps each status to its sole legal successor. The ticket lifecycle is
// strictly linear: no skipping, no cancellation path. A ticket is abandoned
// only by cancelling its parent order.
var next = map[Status]Status{
	StatusPending:      StatusAcknowledged,
	StatusAcknowledged: StatusPreparing,
	StatusPreparing:    StatusReady,
	StatusReady:        StatusServed,
}

// CanTransition reports whether target is the next step from current.
func CanTransition(current, target Status) bool {
	return next[current] == target
}

// Transition advances the ticket to target, stamping the matching timestamp.
// The ticket is only mutated when the transition is legal.
func Transition(t *Ticket, target Status, now time.Time) error {
	if !CanTransition(t.Status, target) {
		return &IllegalTransitionError{From: t.Status, To: target}
	}

	t.Status = target
	switch target {
	case StatusAcknowledged:
		t.AcknowledgedAt = &now
	case StatusPreparing:
		t.PreparingAt = &now
	case StatusReady:
		t.ReadyAt = &now
	case StatusServed:
		t.ServedAt = &now
	}
	return nil
}
