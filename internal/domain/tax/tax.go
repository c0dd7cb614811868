package tax

import "context"

// Scope restricts which order types a tax rule applies to.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeDineIn   Scope = "dine_in"
	ScopeTakeaway Scope = "takeaway"
	ScopeDelivery Scope = "delivery"
)

// Rule defines a single tax line applied during settlement.
//
// RateBps is the percentage ×100 (1050 = 10.50%). Rules are evaluated in
// ascending Priority order; a Compounded rule taxes the subtotal plus tax
// accumulated by earlier compounded rules, a non-compounded rule always taxes
// the original subtotal.
type Rule struct {
	Name       string
	RateBps    int64
	AppliesTo  Scope
	MinAmount  *int64
	MaxAmount  *int64
	Compounded bool
	Priority   int
	Active     bool
}

// BreakdownLine records how one rule contributed to the total tax, for
// receipts and audit.
type BreakdownLine struct {
	Rule   string
	Base   int64
	Amount int64
}

// Repository provides the active tax rule catalog.
type Repository interface {
	ActiveRules(ctx context.Context) ([]Rule, error)
}
