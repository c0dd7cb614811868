package tax

import (
	"sort"

	"github.com/josephbruno/v11pos/internal/domain/money"
)

// Apply evaluates the rule set against a subtotal and returns the total tax
// plus a per-rule breakdown.
//
// Rules are sorted ascending by Priority (lower value first — the opposite
// tie-break direction from loyalty rule selection). Inactive rules, rules
// scoped to a different order type, and rules whose min/max subtotal bounds
// exclude the subtotal are skipped. With no matching rules the result is zero
// tax and an empty breakdown; callers treat that as a configuration concern,
// not an error.
func Apply(subtotal int64, rules []Rule, orderType Scope) (int64, []BreakdownLine) {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	var (
		total          int64
		breakdown      []BreakdownLine
		compoundedBase = subtotal
	)

	for _, r := range ordered {
		if !matches(r, subtotal, orderType) {
			continue
		}

		base := subtotal
		if r.Compounded {
			base = compoundedBase
		}

		amount := money.BasisPoints(base, r.RateBps)
		total += amount
		if r.Compounded {
			compoundedBase += amount
		}

		breakdown = append(breakdown, BreakdownLine{
			Rule:   r.Name,
			Base:   base,
			Amount: amount,
		})
	}

	return total, breakdown
}

func matches(r Rule, subtotal int64, orderType Scope) bool {
	if !r.Active {
		return false
	}
	if r.AppliesTo != ScopeAll && r.AppliesTo != orderType {
		return false
	}
	if r.MinAmount != nil && subtotal < *r.MinAmount {
		return false
	}
	if r.MaxAmount != nil && subtotal > *r.MaxAmount {
		return false
	}
	return true
}
