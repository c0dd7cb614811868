// Package loyalty implements the points program: earning on completed orders,
// redemption against an order's value, lot expiry, and tier resolution. All
// point math is integer; rates are stored ×100 to keep two decimal places.
package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrRuleNotFound is returned when an operation requires an active
	// loyalty rule and none exists.
	ErrRuleNotFound = errors.New("no active loyalty rule")
	// ErrBelowMinimumRedemption is returned when a redemption request is
	// positive but under the rule's minimum.
	ErrBelowMinimumRedemption = errors.New("redemption below minimum points")
	// ErrInsufficientBalance is returned when a redemption request exceeds
	// the customer's available points.
	ErrInsufficientBalance = errors.New("insufficient loyalty balance")
	// ErrRedemptionExceedsCap is returned when the monetary value of a
	// redemption exceeds the rule's cap on the order value.
	ErrRedemptionExceedsCap = errors.New("redemption exceeds order value cap")
	// ErrDuplicateEarn is returned when points were already minted for an order.
	ErrDuplicateEarn = errors.New("points already earned for order")
	// ErrUnbalancedEntry is returned when a ledger entry's balances do not
	// reconcile with its delta.
	ErrUnbalancedEntry = errors.New("ledger entry does not balance")
)

// Rule configures the points program. EarnRateX100 and RedeemRateX100 are the
// respective rates ×100 (100 = 1.00). MaxRedeemPercent caps how much of an
// order's subtotal may be paid with points, as a whole percentage; zero means
// no cap. When several rules are active the highest Priority wins — note this
// is the opposite tie-break direction from tax rules, which evaluate lowest
// priority first.
type Rule struct {
	Name             string
	EarnRateX100     int64
	RedeemRateX100   int64
	MinRedeemPoints  int64
	MaxRedeemPercent int64
	ExpiryDays       *int
	Priority         int
	Active           bool
}

// Kind is the operation recorded by a ledger entry.
type Kind string

const (
	KindEarn   Kind = "earn"
	KindRedeem Kind = "redeem"
	KindAdjust Kind = "adjust"
	KindExpire Kind = "expire"
)

// Transaction is one immutable loyalty ledger entry. Entries are only ever
// appended; a customer's balance is the running sum of their entries.
type Transaction struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	Points        int64
	Kind          Kind
	BalanceBefore int64
	BalanceAfter  int64
	OrderID       *uuid.UUID
	ExpiresAt     *time.Time
	CreatedAt     time.Time
}

// Balanced reports whether the entry's balances reconcile with its delta.
func (t *Transaction) Balanced() bool {
	return t.BalanceAfter == t.BalanceBefore+t.Points
}

// Lot is an earn entry tracked independently for expiry. ExpiresAt nil means
// the lot never expires.
type Lot struct {
	ID        uuid.UUID
	Points    int64
	ExpiresAt *time.Time
}

// Tier is a spend threshold with its earn multiplier (×100, 150 = 1.5×).
type Tier struct {
	Name           string
	MinSpent       int64
	MultiplierX100 int64
	Benefits       []string
}

// RuleRepository provides the active loyalty rule catalog.
type RuleRepository interface {
	ActiveRules(ctx context.Context) ([]Rule, error)
}

// Repository persists the ledger. Append and ExpireLots must run fn under an
// exclusive per-customer lock so concurrent mutations never read the same
// balance-before, and must persist the returned entry in the same
// transaction. ExpireLots additionally reads the customer's unexpired lots
// under that lock and hands them to fn; the lot ids fn returns are flagged
// expired atomically with the entry. A nil entry from fn means there is
// nothing to record and no write happens.
type Repository interface {
	Balance(ctx context.Context, customerID uuid.UUID) (int64, error)
	HasEarned(ctx context.Context, orderID uuid.UUID) (bool, error)
	Append(ctx context.Context, customerID uuid.UUID, fn func(balance int64) (*Transaction, error)) (*Transaction, error)
	ExpireLots(ctx context.Context, customerID uuid.UUID, fn func(balance int64, lots []Lot) (*Transaction, []uuid.UUID, error)) (*Transaction, error)
}
