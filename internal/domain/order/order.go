// Package order owns the settlement pipeline and the fulfillment lifecycle:
// turning validated line items into a financial total and walking a confirmed
// order through preparation to completion (or cancellation), with an
// append-only status history.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/josephbruno/v11pos/internal/domain/kot"
	"github.com/josephbruno/v11pos/internal/domain/tax"
)

// Type is how the order is fulfilled.
type Type string

const (
	TypeDineIn   Type = "dine_in"
	TypeTakeaway Type = "takeaway"
	TypeDelivery Type = "delivery"
)

// TaxScope maps the order type onto the tax rule applicability scope.
func (t Type) TaxScope() tax.Scope { return tax.Scope(t) }

// Status is the order's fulfillment state.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks settlement of the order's total, independent of
// fulfillment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// LineItem is one order line, immutable once the order is confirmed. Money
// fields are minor units; ModifierTotal is the per-unit surcharge from
// selected modifiers.
type LineItem struct {
	ProductID     uuid.UUID
	Name          string
	Quantity      int64
	UnitPrice     int64
	ModifierTotal int64
	Department    string
	PrepMinutes   int
}

// Totals is the settlement result for an order. EffectiveDiscount folds the
// redeemed loyalty value into the discount; Total is clamped at zero.
type Totals struct {
	Subtotal          int64
	Tax               int64
	TaxLines          []tax.BreakdownLine
	ServiceCharge     int64
	Discount          int64
	LoyaltyValue      int64
	EffectiveDiscount int64
	Tip               int64
	Total             int64
}

// Order is the aggregate root. It is created at checkout and mutated only
// through lifecycle transitions; cancellation is a terminal status, never a
// deletion.
type Order struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	CustomerName    string
	Type            Type
	DeliveryAddress string
	Status          Status
	PaymentStatus   PaymentStatus
	Items           []LineItem
	Totals          Totals
	PointsRedeemed  int64
	PointsEarned    int64
	Priority        int
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	PreparingAt     *time.Time
	ReadyAt         *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}

// StatusHistory is one append-only audit row per transition.
type StatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    Status
	Note      string
	Actor     string
	CreatedAt time.Time
}

// Validation errors surfaced before the calculator or lifecycle accept input.
var (
	ErrEmptyItems              = errors.New("items required")
	ErrCustomerNameRequired    = errors.New("customer name required")
	ErrDeliveryAddressRequired = errors.New("delivery orders require an address")
	ErrNotFound                = errors.New("order not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	// ErrStaleStatus is returned when a transition loses the CAS race on the
	// order's current status.
	ErrStaleStatus = errors.New("order status changed concurrently")
)

// InvalidQuantityError reports a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID uuid.UUID
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidUnitPriceError reports a line item with a negative unit price.
type InvalidUnitPriceError struct {
	ProductID uuid.UUID
}

func (e *InvalidUnitPriceError) Error() string {
	return fmt.Sprintf("unit price must not be negative for product %s", e.ProductID)
}

// IllegalTransitionError reports a fulfillment transition with no legal edge.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition %s -> %s", e.From, e.To)
}

// Repository persists orders and their audit trail. Create stores the order,
// its first history row, and its tickets in one transaction. UpdateStatus
// must compare-and-swap on expected, returning ErrStaleStatus on a mismatch,
// and append the history row atomically with the update.
type Repository interface {
	Create(ctx context.Context, o *Order, h *StatusHistory, tickets []kot.Ticket) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, o *Order, expected Status, h *StatusHistory) error
	SetPointsEarned(ctx context.Context, orderID uuid.UUID, points int64) error
}

// StockRepository adjusts product stock levels atomically per product.
type StockRepository interface {
	// Decrement returns ErrInsufficientStock when the product cannot cover qty.
	Decrement(ctx context.Context, productID uuid.UUID, qty int64) error
	Restore(ctx context.Context, productID uuid.UUID, qty int64) error
}

// CustomerDirectory exposes the customer facts the engine consumes but does
// not own.
type CustomerDirectory interface {
	TotalSpent(ctx context.Context, customerID uuid.UUID) (int64, error)
	AddSpend(ctx context.Context, customerID uuid.UUID, amount int64) error
}
