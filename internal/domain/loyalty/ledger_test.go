package loyalty

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLedgerRepo keeps the ledger in memory and mimics the storage contract:
// mutations run serialized, and ExpireLots serves only lots that were not
// already flagged in an earlier call.
type mockLedgerRepo struct {
	mu          sync.Mutex
	balance     int64
	entries     []*Transaction
	lots        []Lot
	earnedOrder map[uuid.UUID]bool
	markedLots  []uuid.UUID
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{earnedOrder: make(map[uuid.UUID]bool)}
}

func (m *mockLedgerRepo) Balance(_ context.Context, _ uuid.UUID) (int64, error) {
	return m.balance, nil
}

func (m *mockLedgerRepo) HasEarned(_ context.Context, orderID uuid.UUID) (bool, error) {
	return m.earnedOrder[orderID], nil
}

func (m *mockLedgerRepo) Append(_ context.Context, _ uuid.UUID, fn func(int64) (*Transaction, error)) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := fn(m.balance)
	if err != nil {
		return nil, err
	}
	if !entry.Balanced() {
		return nil, ErrUnbalancedEntry
	}
	if entry.Kind == KindEarn && entry.OrderID != nil {
		if m.earnedOrder[*entry.OrderID] {
			return nil, ErrDuplicateEarn
		}
		m.earnedOrder[*entry.OrderID] = true
	}
	m.balance = entry.BalanceAfter
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *mockLedgerRepo) ExpireLots(_ context.Context, _ uuid.UUID, fn func(int64, []Lot) (*Transaction, []uuid.UUID, error)) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	marked := make(map[uuid.UUID]struct{}, len(m.markedLots))
	for _, id := range m.markedLots {
		marked[id] = struct{}{}
	}
	var live []Lot
	for _, lot := range m.lots {
		if _, ok := marked[lot.ID]; !ok {
			live = append(live, lot)
		}
	}

	entry, expired, err := fn(m.balance, live)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	if !entry.Balanced() {
		return nil, ErrUnbalancedEntry
	}
	m.balance = entry.BalanceAfter
	m.entries = append(m.entries, entry)
	m.markedLots = append(m.markedLots, expired...)
	return entry, nil
}

func TestLedger_EarnAppendsBalancedEntry(t *testing.T) {
	repo := newMockLedgerRepo()
	repo.balance = 40

	l := NewLedger(repo)
	customer := uuid.New()
	orderID := uuid.New()

	entry, err := l.Earn(context.Background(), customer, orderID, 10_000, Rule{EarnRateX100: 100, Active: true}, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), entry.Points)
	assert.Equal(t, KindEarn, entry.Kind)
	assert.Equal(t, int64(40), entry.BalanceBefore)
	assert.Equal(t, int64(140), entry.BalanceAfter)
	assert.True(t, entry.Balanced())
	require.NotNil(t, entry.OrderID)
	assert.Equal(t, orderID, *entry.OrderID)
	assert.Equal(t, int64(140), repo.balance)
}

func TestLedger_EarnSetsExpiry(t *testing.T) {
	repo := newMockLedgerRepo()
	l := NewLedger(repo)
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixedNow }

	days := 90
	entry, err := l.Earn(context.Background(), uuid.New(), uuid.New(), 10_000, Rule{EarnRateX100: 100, ExpiryDays: &days, Active: true}, 100)
	require.NoError(t, err)

	require.NotNil(t, entry.ExpiresAt)
	assert.Equal(t, fixedNow.AddDate(0, 0, 90), *entry.ExpiresAt)
}

func TestLedger_DuplicateEarnRejected(t *testing.T) {
	repo := newMockLedgerRepo()
	l := NewLedger(repo)
	customer := uuid.New()
	orderID := uuid.New()
	rule := Rule{EarnRateX100: 100, Active: true}

	_, err := l.Earn(context.Background(), customer, orderID, 10_000, rule, 100)
	require.NoError(t, err)

	_, err = l.Earn(context.Background(), customer, orderID, 10_000, rule, 100)
	assert.ErrorIs(t, err, ErrDuplicateEarn)
	assert.Len(t, repo.entries, 1)
}

func TestLedger_RedeemDebitsUnderLock(t *testing.T) {
	repo := newMockLedgerRepo()
	repo.balance = 200

	l := NewLedger(repo)
	rule := Rule{RedeemRateX100: 100, MinRedeemPoints: 10, Active: true}

	entry, value, err := l.Redeem(context.Background(), uuid.New(), uuid.New(), 150, rule)
	require.NoError(t, err)

	assert.Equal(t, int64(-150), entry.Points)
	assert.Equal(t, KindRedeem, entry.Kind)
	assert.Equal(t, int64(200), entry.BalanceBefore)
	assert.Equal(t, int64(50), entry.BalanceAfter)
	assert.True(t, entry.Balanced())
	assert.Equal(t, int64(150), value)
	assert.Equal(t, int64(50), repo.balance)
}

func TestLedger_RedeemValidatesAgainstBalance(t *testing.T) {
	repo := newMockLedgerRepo()
	repo.balance = 50

	l := NewLedger(repo)
	rule := Rule{RedeemRateX100: 100, MinRedeemPoints: 10, Active: true}

	_, _, err := l.Redeem(context.Background(), uuid.New(), uuid.New(), 60, rule)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, _, err = l.Redeem(context.Background(), uuid.New(), uuid.New(), 5, rule)
	assert.ErrorIs(t, err, ErrBelowMinimumRedemption)

	assert.Empty(t, repo.entries)
}

func TestLedger_ExpirePoints(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	stale := Lot{ID: uuid.New(), Points: 30, ExpiresAt: &past}
	repo := newMockLedgerRepo()
	repo.balance = 80
	repo.lots = []Lot{
		{ID: uuid.New(), Points: 50, ExpiresAt: &future},
		stale,
	}

	l := NewLedger(repo)
	l.now = func() time.Time { return now }

	entry, err := l.ExpirePoints(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, int64(-30), entry.Points)
	assert.Equal(t, KindExpire, entry.Kind)
	assert.True(t, entry.Balanced())
	assert.Equal(t, int64(50), repo.balance)
	assert.Equal(t, []uuid.UUID{stale.ID}, repo.markedLots)
}

func TestLedger_AdjustCreditsBalance(t *testing.T) {
	repo := newMockLedgerRepo()
	repo.balance = 20

	l := NewLedger(repo)
	orderID := uuid.New()

	entry, err := l.Adjust(context.Background(), uuid.New(), 200, &orderID)
	require.NoError(t, err)

	assert.Equal(t, KindAdjust, entry.Kind)
	assert.Equal(t, int64(200), entry.Points)
	assert.Equal(t, int64(220), entry.BalanceAfter)
	assert.True(t, entry.Balanced())
	require.NotNil(t, entry.OrderID)
	assert.Equal(t, orderID, *entry.OrderID)
	assert.Equal(t, int64(220), repo.balance)

	// Debits cannot push the balance negative.
	_, err = l.Adjust(context.Background(), uuid.New(), -500, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestLedger_ConcurrentExpiryForfeitsLotOnce(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	repo := newMockLedgerRepo()
	repo.balance = 100
	repo.lots = []Lot{{ID: uuid.New(), Points: 100, ExpiresAt: &past}}

	l := NewLedger(repo)
	l.now = func() time.Time { return now }

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ExpirePoints(context.Background(), uuid.New(), now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// One call forfeits the lot, the other finds nothing left to expire.
	assert.Equal(t, int64(0), repo.balance)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, int64(-100), repo.entries[0].Points)
}

func TestLedger_ExpirePointsNoop(t *testing.T) {
	repo := newMockLedgerRepo()
	repo.lots = []Lot{{ID: uuid.New(), Points: 10}}

	l := NewLedger(repo)
	entry, err := l.ExpirePoints(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, repo.entries)
}

func TestLedger_RunningSumMatchesBalance(t *testing.T) {
	repo := newMockLedgerRepo()
	l := NewLedger(repo)
	customer := uuid.New()
	earnRule := Rule{EarnRateX100: 100, Active: true}
	redeemRule := Rule{RedeemRateX100: 100, MinRedeemPoints: 1, Active: true}

	_, err := l.Earn(context.Background(), customer, uuid.New(), 10_000, earnRule, 100)
	require.NoError(t, err)
	_, err = l.Earn(context.Background(), customer, uuid.New(), 5_000, earnRule, 150)
	require.NoError(t, err)
	_, _, err = l.Redeem(context.Background(), customer, uuid.New(), 120, redeemRule)
	require.NoError(t, err)

	var sum int64
	for _, e := range repo.entries {
		require.True(t, e.Balanced())
		sum += e.Points
	}
	assert.Equal(t, repo.balance, sum)
	assert.Equal(t, int64(55), sum) // 100 + 75 - 120
}
