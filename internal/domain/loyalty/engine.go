package loyalty

// FaceValue is the redemption value of one point in minor units at rate 1.00.
// At the default rates a point is worth one cent.
const FaceValue = 100

// SelectRule picks the active rule with the highest priority. Ties keep the
// earlier rule in the input. Returns ErrRuleNotFound when no rule is active.
func SelectRule(rules []Rule) (Rule, error) {
	var (
		best  Rule
		found bool
	)
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if !found || r.Priority > best.Priority {
			best = r
			found = true
		}
	}
	if !found {
		return Rule{}, ErrRuleNotFound
	}
	return best, nil
}

// EarnPoints computes the points minted for a completed order:
// (orderTotal in major units) × earn rate × tier multiplier, truncated.
// multiplierX100 of 100 is the base tier; 150 earns 1.5×.
func EarnPoints(orderTotal int64, rule Rule, multiplierX100 int64) int64 {
	major := orderTotal / 100
	return major * rule.EarnRateX100 * multiplierX100 / 10_000
}

// RedeemValue converts redeemed points to minor currency units:
// points × valuePerPoint × redeemRateX100 / 10_000, truncated. valuePerPoint
// is the face value of one point in minor units at rate 1.00 (FaceValue for
// the standard program).
func RedeemValue(points, valuePerPoint, redeemRateX100 int64) int64 {
	return points * valuePerPoint * redeemRateX100 / 10_000
}

// ValidateRedemption checks a redemption request against the customer's
// available points. Requesting zero points is always valid — it simply means
// no redemption.
func ValidateRedemption(available, requested, minRedeemPoints int64) error {
	if requested == 0 {
		return nil
	}
	if requested < minRedeemPoints {
		return ErrBelowMinimumRedemption
	}
	if requested > available {
		return ErrInsufficientBalance
	}
	return nil
}

// ValidateRedemptionValue enforces the rule's cap on how much of an order may
// be paid with points. maxRedeemPercent is a whole percentage of the order
// subtotal; zero disables the cap.
func ValidateRedemptionValue(value, orderSubtotal, maxRedeemPercent int64) error {
	if maxRedeemPercent <= 0 {
		return nil
	}
	if value > orderSubtotal*maxRedeemPercent/100 {
		return ErrRedemptionExceedsCap
	}
	return nil
}
