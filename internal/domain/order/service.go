package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/josephbruno/v11pos/internal/domain/kot"
	"github.com/josephbruno/v11pos/internal/domain/loyalty"
	"github.com/josephbruno/v11pos/internal/domain/tax"
)

// Service wires the settlement engine to its collaborators: rule catalogs,
// the loyalty ledger, stock, and persistence. The engine itself stays pure;
// everything impure lives here.
type Service struct {
	orders       Repository
	stock        StockRepository
	customers    CustomerDirectory
	taxRules     tax.Repository
	loyaltyRules loyalty.RuleRepository
	ledger       *loyalty.Ledger
	tiers        []loyalty.Tier
	lg           *zap.Logger
	now          func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	orders Repository,
	stock StockRepository,
	customers CustomerDirectory,
	taxRules tax.Repository,
	loyaltyRules loyalty.RuleRepository,
	ledger *loyalty.Ledger,
	lg *zap.Logger,
) *Service {
	return &Service{
		orders:       orders,
		stock:        stock,
		customers:    customers,
		taxRules:     taxRules,
		loyaltyRules: loyaltyRules,
		ledger:       ledger,
		tiers:        loyalty.DefaultTiers,
		lg:           lg,
		now:          time.Now,
	}
}

// Checkout validates the request, settles the totals, reserves stock, debits
// redeemed points, and persists the confirmed order together with its first
// history row and its kitchen tickets.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	rule, err := s.activeLoyaltyRule(ctx)
	if err != nil {
		if req.RedeemPoints > 0 {
			return nil, err
		}
		rule = loyalty.Rule{}
	}

	var available int64
	if req.RedeemPoints > 0 {
		available, err = s.ledger.Balance(ctx, req.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "load loyalty balance")
		}
	}

	if err := ValidateCheckout(req, available, rule.MinRedeemPoints); err != nil {
		return nil, err
	}

	taxRules, err := s.taxRules.ActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load tax rules")
	}
	if len(taxRules) == 0 {
		// Missing tax configuration degrades to zero tax rather than
		// blocking the sale.
		s.lg.Warn("no active tax rules, settling with zero tax")
	}

	totals := CalculateTotals(req.Items, taxRules, req.Type, CalcInput{
		ServiceChargeBps: req.ServiceChargeBps,
		DiscountBps:      req.DiscountBps,
		DiscountFixed:    req.DiscountFixed,
		Tip:              req.Tip,
		RedeemPoints:     req.RedeemPoints,
		RedeemRateX100:   rule.RedeemRateX100,
	})

	if req.RedeemPoints > 0 {
		if err := loyalty.ValidateRedemptionValue(totals.LoyaltyValue, totals.Subtotal, rule.MaxRedeemPercent); err != nil {
			return nil, err
		}
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		Type:            req.Type,
		DeliveryAddress: req.DeliveryAddress,
		Status:          StatusConfirmed,
		PaymentStatus:   PaymentPending,
		Items:           req.Items,
		Totals:          totals,
		PointsRedeemed:  req.RedeemPoints,
		Priority:        req.Priority,
		CreatedAt:       now,
		ConfirmedAt:     &now,
	}

	history := &StatusHistory{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    StatusConfirmed,
		Note:      req.Note,
		Actor:     req.Actor,
		CreatedAt: now,
	}

	kotItems := make([]kot.Item, len(req.Items))
	for i, item := range req.Items {
		kotItems[i] = kot.Item{Department: item.Department, PrepMinutes: item.PrepMinutes}
	}
	tickets := kot.Group(o.ID, kotItems, now)

	if err := s.reserveStock(ctx, req.Items); err != nil {
		return nil, err
	}

	if req.RedeemPoints > 0 {
		if _, _, err := s.ledger.Redeem(ctx, req.CustomerID, o.ID, req.RedeemPoints, rule); err != nil {
			s.releaseStock(ctx, req.Items)
			return nil, err
		}
	}

	if err := s.orders.Create(ctx, o, history, tickets); err != nil {
		s.releaseStock(ctx, req.Items)
		if req.RedeemPoints > 0 {
			s.refundRedemption(ctx, req.CustomerID, o.ID, req.RedeemPoints)
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.lg.Info("order confirmed",
		zap.String("order_id", o.ID.String()),
		zap.Int64("total", totals.Total),
		zap.Int("tickets", len(tickets)),
	)
	return o, nil
}

// Get loads one order by id.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.orders.Get(ctx, orderID)
}

// Transition moves the order along the fulfillment lifecycle. The order's
// current status is the CAS guard; a concurrent transition surfaces as
// ErrStaleStatus. Completion mints loyalty points; cancellation restores the
// decremented stock.
func (s *Service) Transition(ctx context.Context, orderID uuid.UUID, target Status, note, actor string) (*Order, *StatusHistory, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	expected := o.Status
	history, err := Transition(o, target, s.now(), note, actor)
	if err != nil {
		return nil, nil, err
	}

	if err := s.orders.UpdateStatus(ctx, o, expected, history); err != nil {
		return nil, nil, err
	}

	switch target {
	case StatusCompleted:
		s.settleCompletion(ctx, o)
	case StatusCancelled:
		s.releaseStock(ctx, o.Items)
	}

	s.lg.Info("order transitioned",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(expected)),
		zap.String("to", string(target)),
		zap.String("actor", actor),
	)
	return o, history, nil
}

// settleCompletion records the spend and mints earned points. Failures here
// never roll back the completed order; they are logged for reconciliation.
func (s *Service) settleCompletion(ctx context.Context, o *Order) {
	if err := s.customers.AddSpend(ctx, o.CustomerID, o.Totals.Total); err != nil {
		s.lg.Error("record customer spend", zap.Error(err), zap.String("order_id", o.ID.String()))
	}

	rule, err := s.activeLoyaltyRule(ctx)
	if err != nil {
		s.lg.Warn("no active loyalty rule, skipping earn", zap.String("order_id", o.ID.String()))
		return
	}

	spent, err := s.customers.TotalSpent(ctx, o.CustomerID)
	if err != nil {
		s.lg.Error("resolve customer spend", zap.Error(err))
		spent = 0
	}
	tier := loyalty.ResolveTier(s.tiers, spent)

	entry, err := s.ledger.Earn(ctx, o.CustomerID, o.ID, o.Totals.Total, rule, tier.MultiplierX100)
	if err != nil {
		if errors.Is(err, loyalty.ErrDuplicateEarn) {
			s.lg.Warn("points already earned for order", zap.String("order_id", o.ID.String()))
			return
		}
		s.lg.Error("mint loyalty points", zap.Error(err), zap.String("order_id", o.ID.String()))
		return
	}

	o.PointsEarned = entry.Points
	if err := s.orders.SetPointsEarned(ctx, o.ID, entry.Points); err != nil {
		s.lg.Error("record points earned", zap.Error(err), zap.String("order_id", o.ID.String()))
	}
}

func (s *Service) activeLoyaltyRule(ctx context.Context) (loyalty.Rule, error) {
	rules, err := s.loyaltyRules.ActiveRules(ctx)
	if err != nil {
		return loyalty.Rule{}, errors.Wrap(err, "load loyalty rules")
	}
	return loyalty.SelectRule(rules)
}

func (s *Service) reserveStock(ctx context.Context, items []LineItem) error {
	for i, item := range items {
		if err := s.stock.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			s.releaseStock(ctx, items[:i])
			return err
		}
	}
	return nil
}

// refundRedemption credits back points that were debited for an order that
// never made it into storage. Like releaseStock, a failure here is logged for
// reconciliation rather than surfaced.
func (s *Service) refundRedemption(ctx context.Context, customerID, orderID uuid.UUID, points int64) {
	if _, err := s.ledger.Adjust(ctx, customerID, points, &orderID); err != nil {
		s.lg.Error("refund redeemed points",
			zap.Error(err),
			zap.String("order_id", orderID.String()),
			zap.Int64("points", points),
		)
	}
}

func (s *Service) releaseStock(ctx context.Context, items []LineItem) {
	for _, item := range items {
		if err := s.stock.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			s.lg.Error("restore stock",
				zap.Error(err),
				zap.String("product_id", item.ProductID.String()),
			)
		}
	}
}
