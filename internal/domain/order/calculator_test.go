package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/josephbruno/v11pos/internal/domain/tax"
)

func item(qty, unitPrice int64) LineItem {
	return LineItem{ProductID: uuid.New(), Quantity: qty, UnitPrice: unitPrice}
}

func TestCalculateTotals_SubtotalIsExactSum(t *testing.T) {
	totals := CalculateTotals([]LineItem{
		item(2, 1_250),
		item(1, 7_500),
		item(3, 333),
	}, nil, TypeDineIn, CalcInput{})

	assert.Equal(t, int64(2*1_250+7_500+3*333), totals.Subtotal)
	assert.Equal(t, totals.Subtotal, totals.Total)
}

func TestCalculateTotals_ModifiersFoldIntoUnitPrice(t *testing.T) {
	items := []LineItem{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: 1_000, ModifierTotal: 150},
	}

	totals := CalculateTotals(items, nil, TypeDineIn, CalcInput{})
	assert.Equal(t, int64(2_300), totals.Subtotal)
}

func TestCalculateTotals_TaxAtTenPointFive(t *testing.T) {
	rules := []tax.Rule{
		{Name: "VAT", RateBps: 1050, AppliesTo: tax.ScopeAll, Priority: 1, Active: true},
	}

	totals := CalculateTotals([]LineItem{item(1, 10_000)}, rules, TypeDineIn, CalcInput{})

	assert.Equal(t, int64(1050), totals.Tax)
	assert.Equal(t, int64(11_050), totals.Total)
	assert.Len(t, totals.TaxLines, 1)
}

func TestCalculateTotals_ServiceCharge(t *testing.T) {
	totals := CalculateTotals([]LineItem{item(1, 10_000)}, nil, TypeDineIn, CalcInput{
		ServiceChargeBps: 1000, // 10%
	})

	assert.Equal(t, int64(1_000), totals.ServiceCharge)
	assert.Equal(t, int64(11_000), totals.Total)
}

func TestCalculateTotals_Discounts(t *testing.T) {
	tests := []struct {
		name         string
		in           CalcInput
		wantDiscount int64
		wantTotal    int64
	}{
		{
			name:         "percentage discount",
			in:           CalcInput{DiscountBps: 2000}, // 20%
			wantDiscount: 2_000,
			wantTotal:    8_000,
		},
		{
			name:         "fixed discount",
			in:           CalcInput{DiscountFixed: 1_500},
			wantDiscount: 1_500,
			wantTotal:    8_500,
		},
		{
			name:         "fixed discount clamped to subtotal",
			in:           CalcInput{DiscountFixed: 50_000},
			wantDiscount: 10_000,
			wantTotal:    0,
		},
		{
			name:         "percentage wins when both given",
			in:           CalcInput{DiscountBps: 1000, DiscountFixed: 9_999},
			wantDiscount: 1_000,
			wantTotal:    9_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := CalculateTotals([]LineItem{item(1, 10_000)}, nil, TypeDineIn, tt.in)
			assert.Equal(t, tt.wantDiscount, totals.Discount)
			assert.Equal(t, tt.wantTotal, totals.Total)
			assert.GreaterOrEqual(t, totals.Discount, int64(0))
			assert.LessOrEqual(t, totals.Discount, totals.Subtotal)
		})
	}
}

func TestCalculateTotals_LoyaltyRedemptionFoldsIntoDiscount(t *testing.T) {
	totals := CalculateTotals([]LineItem{item(1, 10_000)}, nil, TypeDineIn, CalcInput{
		DiscountFixed:  500,
		RedeemPoints:   200,
		RedeemRateX100: 100, // face value: 200 points = 200 cents
	})

	assert.Equal(t, int64(500), totals.Discount)
	assert.Equal(t, int64(200), totals.LoyaltyValue)
	assert.Equal(t, int64(700), totals.EffectiveDiscount)
	assert.Equal(t, int64(9_300), totals.Total)
}

func TestCalculateTotals_TipAddedLast(t *testing.T) {
	totals := CalculateTotals([]LineItem{item(1, 10_000)}, nil, TypeDineIn, CalcInput{Tip: 1_500})
	assert.Equal(t, int64(11_500), totals.Total)
}

func TestCalculateTotals_TotalClampedAtZero(t *testing.T) {
	// Discount and redemption together exceed everything owed.
	totals := CalculateTotals([]LineItem{item(1, 1_000)}, nil, TypeDineIn, CalcInput{
		DiscountFixed:  1_000,
		RedeemPoints:   500,
		RedeemRateX100: 100,
	})

	assert.Equal(t, int64(0), totals.Total)
	assert.Equal(t, int64(1_500), totals.EffectiveDiscount)
}

func TestCalculateTotals_FullPipeline(t *testing.T) {
	rules := []tax.Rule{
		{Name: "GST", RateBps: 1000, AppliesTo: tax.ScopeAll, Compounded: true, Priority: 1, Active: true},
		{Name: "PST", RateBps: 500, AppliesTo: tax.ScopeAll, Compounded: true, Priority: 2, Active: true},
	}

	totals := CalculateTotals([]LineItem{item(1, 10_000)}, rules, TypeDineIn, CalcInput{
		ServiceChargeBps: 500, // 5% -> 500
		DiscountBps:      1000,
		Tip:              300,
		RedeemPoints:     100,
		RedeemRateX100:   100,
	})

	// 10000 + 1550 tax + 500 service - (1000 + 100) + 300 tip
	assert.Equal(t, int64(1550), totals.Tax)
	assert.Equal(t, int64(500), totals.ServiceCharge)
	assert.Equal(t, int64(1_100), totals.EffectiveDiscount)
	assert.Equal(t, int64(11_250), totals.Total)
}
