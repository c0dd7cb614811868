package loyalty

import "sort"

// DefaultTiers is the standard program ladder. Thresholds are lifetime spend
// in minor units, the same scale as Order totals — tier thresholds are never
// re-divided by 100 at comparison time.
var DefaultTiers = []Tier{
	{Name: "bronze", MinSpent: 0, MultiplierX100: 100, Benefits: []string{"earn points on every order"}},
	{Name: "silver", MinSpent: 50_000, MultiplierX100: 125, Benefits: []string{"1.25x points"}},
	{Name: "gold", MinSpent: 200_000, MultiplierX100: 150, Benefits: []string{"1.5x points", "priority support"}},
	{Name: "platinum", MinSpent: 500_000, MultiplierX100: 200, Benefits: []string{"2x points", "priority support", "free delivery"}},
}

// ResolveTier returns the highest tier whose threshold does not exceed
// totalSpent (minor units). When no threshold is met the lowest tier is
// returned; an empty ladder yields the zero Tier.
func ResolveTier(tiers []Tier, totalSpent int64) Tier {
	if len(tiers) == 0 {
		return Tier{}
	}

	ordered := make([]Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinSpent < ordered[j].MinSpent
	})

	resolved := ordered[0]
	for _, t := range ordered[1:] {
		if totalSpent >= t.MinSpent {
			resolved = t
		}
	}
	return resolved
}
