package order

import (
	"github.com/josephbruno/v11pos/internal/domain/loyalty"
	"github.com/josephbruno/v11pos/internal/domain/money"
	"github.com/josephbruno/v11pos/internal/domain/tax"
)

// CalcInput carries the settlement parameters that are not part of the item
// list. Percentages are basis points ×100. DiscountBps and DiscountFixed are
// mutually exclusive per call; when both are set the percentage wins.
type CalcInput struct {
	ServiceChargeBps int64
	DiscountBps      int64
	DiscountFixed    int64
	Tip              int64
	RedeemPoints     int64
	RedeemRateX100   int64
}

// CalculateTotals runs the deterministic settlement pipeline:
//
//	subtotal -> tax -> service charge -> discount -> loyalty value -> total
//
// All intermediate rounding truncates toward zero. The function is pure;
// out-of-range inputs must be rejected by ValidateCheckout first.
func CalculateTotals(items []LineItem, rules []tax.Rule, orderType Type, in CalcInput) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Quantity * (item.UnitPrice + item.ModifierTotal)
	}

	taxTotal, taxLines := tax.Apply(subtotal, rules, orderType.TaxScope())

	serviceCharge := money.BasisPoints(subtotal, in.ServiceChargeBps)

	var discount int64
	switch {
	case in.DiscountBps > 0:
		discount = money.BasisPoints(subtotal, in.DiscountBps)
	case in.DiscountFixed > 0:
		discount = money.Min(in.DiscountFixed, subtotal)
	}

	loyaltyValue := loyalty.RedeemValue(in.RedeemPoints, loyalty.FaceValue, in.RedeemRateX100)
	effectiveDiscount := discount + loyaltyValue

	total := money.ClampZero(subtotal + taxTotal + serviceCharge - effectiveDiscount + in.Tip)

	return Totals{
		Subtotal:          subtotal,
		Tax:               taxTotal,
		TaxLines:          taxLines,
		ServiceCharge:     serviceCharge,
		Discount:          discount,
		LoyaltyValue:      loyaltyValue,
		EffectiveDiscount: effectiveDiscount,
		Tip:               in.Tip,
		Total:             total,
	}
}
