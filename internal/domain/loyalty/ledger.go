package loyalty

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const (
	earnFilterCapacity = 1_000_000
	earnFilterFPR      = 0.001
)

// Ledger appends immutable transactions to the loyalty ledger through a
// Repository that serializes mutations per customer. A bloom filter fronts
// the duplicate-earn check so the common no-duplicate case skips the
// authoritative repository lookup.
type Ledger struct {
	repo Repository
	now  func() time.Time

	mu     sync.Mutex
	earned *bloom.BloomFilter
}

// NewLedger creates a Ledger backed by the given repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{
		repo:   repo,
		now:    time.Now,
		earned: bloom.NewWithEstimates(earnFilterCapacity, earnFilterFPR),
	}
}

// Balance returns the customer's current point balance.
func (l *Ledger) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return l.repo.Balance(ctx, customerID)
}

// Earn mints points for a completed order. Exactly one earn entry may exist
// per order; a second attempt returns ErrDuplicateEarn. The entry carries an
// expiry when the rule sets ExpiryDays.
func (l *Ledger) Earn(ctx context.Context, customerID, orderID uuid.UUID, orderTotal int64, rule Rule, multiplierX100 int64) (*Transaction, error) {
	if l.maybeEarned(orderID) {
		dup, err := l.repo.HasEarned(ctx, orderID)
		if err != nil {
			return nil, errors.Wrap(err, "check earn idempotency")
		}
		if dup {
			return nil, ErrDuplicateEarn
		}
	}

	points := EarnPoints(orderTotal, rule, multiplierX100)
	now := l.now()

	var expiresAt *time.Time
	if rule.ExpiryDays != nil {
		t := now.AddDate(0, 0, *rule.ExpiryDays)
		expiresAt = &t
	}

	entry, err := l.repo.Append(ctx, customerID, func(balance int64) (*Transaction, error) {
		return &Transaction{
			ID:            uuid.New(),
			CustomerID:    customerID,
			Points:        points,
			Kind:          KindEarn,
			BalanceBefore: balance,
			BalanceAfter:  balance + points,
			OrderID:       &orderID,
			ExpiresAt:     expiresAt,
			CreatedAt:     now,
		}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "append earn entry")
	}

	l.markEarned(orderID)
	return entry, nil
}

// Redeem debits points against an order and returns the entry plus the
// monetary value of the redemption in minor units. The balance check runs
// under the repository's per-customer lock, so two concurrent redemptions
// cannot both spend the same points.
func (l *Ledger) Redeem(ctx context.Context, customerID, orderID uuid.UUID, points int64, rule Rule) (*Transaction, int64, error) {
	now := l.now()
	value := RedeemValue(points, FaceValue, rule.RedeemRateX100)

	entry, err := l.repo.Append(ctx, customerID, func(balance int64) (*Transaction, error) {
		if err := ValidateRedemption(balance, points, rule.MinRedeemPoints); err != nil {
			return nil, err
		}
		return &Transaction{
			ID:            uuid.New(),
			CustomerID:    customerID,
			Points:        -points,
			Kind:          KindRedeem,
			BalanceBefore: balance,
			BalanceAfter:  balance - points,
			OrderID:       &orderID,
			CreatedAt:     now,
		}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return entry, value, nil
}

// Adjust appends a manual correction entry, positive or negative, optionally
// linked to the order that prompted it. Checkout uses it to hand points back
// when a redeemed order fails to persist. A debit past zero returns
// ErrInsufficientBalance.
func (l *Ledger) Adjust(ctx context.Context, customerID uuid.UUID, points int64, orderID *uuid.UUID) (*Transaction, error) {
	now := l.now()

	entry, err := l.repo.Append(ctx, customerID, func(balance int64) (*Transaction, error) {
		if balance+points < 0 {
			return nil, ErrInsufficientBalance
		}
		return &Transaction{
			ID:            uuid.New(),
			CustomerID:    customerID,
			Points:        points,
			Kind:          KindAdjust,
			BalanceBefore: balance,
			BalanceAfter:  balance + points,
			OrderID:       orderID,
			CreatedAt:     now,
		}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "append adjust entry")
	}
	return entry, nil
}

// ExpirePoints retires all lots that have passed their expiry and records a
// single expire entry for the forfeited total. The lot read and the partition
// both run inside the repository's per-customer critical section, so two
// concurrent calls cannot forfeit the same lot twice. Returns nil when
// nothing has expired.
func (l *Ledger) ExpirePoints(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*Transaction, error) {
	entry, err := l.repo.ExpireLots(ctx, customerID, func(balance int64, lots []Lot) (*Transaction, []uuid.UUID, error) {
		_, expired := ApplyExpiry(lots, asOf)
		if len(expired) == 0 {
			return nil, nil, nil
		}

		var forfeited int64
		expiredSet := make(map[uuid.UUID]struct{}, len(expired))
		for _, id := range expired {
			expiredSet[id] = struct{}{}
		}
		for _, lot := range lots {
			if _, ok := expiredSet[lot.ID]; ok {
				forfeited += lot.Points
			}
		}

		return &Transaction{
			ID:            uuid.New(),
			CustomerID:    customerID,
			Points:        -forfeited,
			Kind:          KindExpire,
			BalanceBefore: balance,
			BalanceAfter:  balance - forfeited,
			CreatedAt:     l.now(),
		}, expired, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "append expire entry")
	}
	return entry, nil
}

func (l *Ledger) maybeEarned(orderID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.earned.Test(orderID[:])
}

func (l *Ledger) markEarned(orderID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.earned.Add(orderID[:])
}
