package order

import (
	"github.com/google/uuid"

	"github.com/josephbruno/v11pos/internal/domain/loyalty"
)

// CheckoutRequest is the validated input to Checkout.
type CheckoutRequest struct {
	CustomerID      uuid.UUID
	CustomerName    string
	Type            Type
	DeliveryAddress string
	Items           []LineItem
	Priority        int

	ServiceChargeBps int64
	DiscountBps      int64
	DiscountFixed    int64
	Tip              int64
	RedeemPoints     int64

	Note  string
	Actor string
}

// ValidateCheckout runs the precondition checks that gate the calculator and
// the lifecycle: item shape, customer identity, fulfillment requirements, and
// the loyalty redemption request against the available balance.
func ValidateCheckout(req CheckoutRequest, availablePoints, minRedeemPoints int64) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
		if item.UnitPrice < 0 {
			return &InvalidUnitPriceError{ProductID: item.ProductID}
		}
	}
	if req.CustomerName == "" {
		return ErrCustomerNameRequired
	}
	if req.Type == TypeDelivery && req.DeliveryAddress == "" {
		return ErrDeliveryAddressRequired
	}
	return loyalty.ValidateRedemption(availablePoints, req.RedeemPoints, minRedeemPoints)
}
