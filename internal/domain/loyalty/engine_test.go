package loyalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRule_HighestPriorityWins(t *testing.T) {
	// Loyalty rules tie-break descending: the highest priority value is
	// selected. Tax rules evaluate ascending; the asymmetry is deliberate.
	rules := []Rule{
		{Name: "base", Priority: 1, Active: true},
		{Name: "promo", Priority: 10, Active: true},
		{Name: "legacy", Priority: 5, Active: true},
	}

	got, err := SelectRule(rules)
	require.NoError(t, err)
	assert.Equal(t, "promo", got.Name)
}

func TestSelectRule_SkipsInactive(t *testing.T) {
	rules := []Rule{
		{Name: "disabled", Priority: 100},
		{Name: "active", Priority: 1, Active: true},
	}

	got, err := SelectRule(rules)
	require.NoError(t, err)
	assert.Equal(t, "active", got.Name)
}

func TestSelectRule_NoneActive(t *testing.T) {
	_, err := SelectRule([]Rule{{Name: "disabled", Priority: 1}})
	assert.ErrorIs(t, err, ErrRuleNotFound)

	_, err = SelectRule(nil)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestEarnPoints(t *testing.T) {
	tests := []struct {
		name           string
		orderTotal     int64
		earnRateX100   int64
		multiplierX100 int64
		want           int64
	}{
		{"$100 at 1pt/$ base tier", 10_000, 100, 100, 100},
		{"$100 at 1pt/$ with 1.5x multiplier", 10_000, 100, 150, 150},
		{"$100 at 2pt/$", 10_000, 200, 100, 200},
		{"truncates sub-point remainders", 10_050, 100, 100, 100},
		{"cents-only order earns nothing", 99, 100, 100, 0},
		{"zero total", 0, 100, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := Rule{EarnRateX100: tt.earnRateX100, Active: true}
			assert.Equal(t, tt.want, EarnPoints(tt.orderTotal, rule, tt.multiplierX100))
		})
	}
}

func TestRedeemValue(t *testing.T) {
	tests := []struct {
		name           string
		points         int64
		valuePerPoint  int64
		redeemRateX100 int64
		want           int64
	}{
		{"100 points at face value", 100, FaceValue, 100, 100},
		{"half rate", 100, FaceValue, 50, 50},
		{"double rate", 100, FaceValue, 200, 200},
		{"truncates", 3, FaceValue, 150, 4},
		{"zero points", 0, FaceValue, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedeemValue(tt.points, tt.valuePerPoint, tt.redeemRateX100))
		})
	}
}

func TestValidateRedemption(t *testing.T) {
	tests := []struct {
		name      string
		available int64
		requested int64
		min       int64
		wantErr   error
	}{
		{"zero request always valid", 50, 0, 10, nil},
		{"below minimum", 50, 5, 10, ErrBelowMinimumRedemption},
		{"beyond balance", 50, 60, 10, ErrInsufficientBalance},
		{"at minimum", 50, 10, 10, nil},
		{"exact balance", 50, 50, 10, nil},
		{"zero request with empty balance", 0, 0, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRedemption(tt.available, tt.requested, tt.min)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateRedemptionValue(t *testing.T) {
	// 50% cap on a 10000-cent order allows at most 5000 cents of points.
	assert.NoError(t, ValidateRedemptionValue(5_000, 10_000, 50))
	assert.ErrorIs(t, ValidateRedemptionValue(5_001, 10_000, 50), ErrRedemptionExceedsCap)

	// Zero cap disables the check entirely.
	assert.NoError(t, ValidateRedemptionValue(10_000, 10_000, 0))
}
