package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/josephbruno/v11pos/internal/domain/order"
)

type checkoutItem struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	Quantity      int64     `json:"quantity"`
	UnitPrice     int64     `json:"unit_price"`
	ModifierTotal int64     `json:"modifier_total"`
	Department    string    `json:"department"`
	PrepMinutes   int       `json:"prep_minutes"`
}

type checkoutRequest struct {
	CustomerID       uuid.UUID      `json:"customer_id"`
	CustomerName     string         `json:"customer_name"`
	OrderType        string         `json:"order_type"`
	DeliveryAddress  string         `json:"delivery_address"`
	Items            []checkoutItem `json:"items"`
	Priority         int            `json:"priority"`
	ServiceChargeBps int64          `json:"service_charge_bps"`
	DiscountBps      int64          `json:"discount_bps"`
	DiscountFixed    int64          `json:"discount_fixed"`
	Tip              int64          `json:"tip"`
	RedeemPoints     int64          `json:"redeem_points"`
	Note             string         `json:"note"`
	Actor            string         `json:"actor"`
}

type transitionRequest struct {
	Target string `json:"target"`
	Note   string `json:"note"`
	Actor  string `json:"actor"`
}

// Checkout settles a new order: validate, price, group tickets, reserve
// stock, debit redeemed points, persist.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.LineItem{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			ModifierTotal: item.ModifierTotal,
			Department:    item.Department,
			PrepMinutes:   item.PrepMinutes,
		}
	}

	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		CustomerID:       req.CustomerID,
		CustomerName:     req.CustomerName,
		Type:             order.Type(req.OrderType),
		DeliveryAddress:  req.DeliveryAddress,
		Items:            items,
		Priority:         req.Priority,
		ServiceChargeBps: req.ServiceChargeBps,
		DiscountBps:      req.DiscountBps,
		DiscountFixed:    req.DiscountFixed,
		Tip:              req.Tip,
		RedeemPoints:     req.RedeemPoints,
		Note:             req.Note,
		Actor:            req.Actor,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder returns one order with its settlement breakdown.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// TransitionOrder moves an order along its fulfillment lifecycle.
func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, hist, err := h.orders.Transition(r.Context(), id, order.Status(req.Target), req.Note, req.Actor)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, o) })
			e.Field("history", func(e *jx.Encoder) { encodeHistory(e, hist) })
		})
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID.String()) })
		e.Field("customer_id", func(e *jx.Encoder) { e.Str(o.CustomerID.String()) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(o.CustomerName) })
		e.Field("order_type", func(e *jx.Encoder) { e.Str(string(o.Type)) })
		if o.DeliveryAddress != "" {
			e.Field("delivery_address", func(e *jx.Encoder) { e.Str(o.DeliveryAddress) })
		}
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("payment_status", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
		e.Field("items", func(e *jx.Encoder) { encodeItems(e, o.Items) })
		e.Field("totals", func(e *jx.Encoder) { encodeTotals(e, &o.Totals) })
		e.Field("points_redeemed", func(e *jx.Encoder) { e.Int64(o.PointsRedeemed) })
		e.Field("points_earned", func(e *jx.Encoder) { e.Int64(o.PointsEarned) })
		e.Field("priority", func(e *jx.Encoder) { e.Int(o.Priority) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339)) })
		encodeOptTime(e, "confirmed_at", o.ConfirmedAt)
		encodeOptTime(e, "preparing_at", o.PreparingAt)
		encodeOptTime(e, "ready_at", o.ReadyAt)
		encodeOptTime(e, "completed_at", o.CompletedAt)
		encodeOptTime(e, "cancelled_at", o.CancelledAt)
	})
}

func encodeItems(e *jx.Encoder, items []order.LineItem) {
	e.Arr(func(e *jx.Encoder) {
		for _, item := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product_id", func(e *jx.Encoder) { e.Str(item.ProductID.String()) })
				e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int64(item.Quantity) })
				e.Field("unit_price", func(e *jx.Encoder) { e.Int64(item.UnitPrice) })
				e.Field("modifier_total", func(e *jx.Encoder) { e.Int64(item.ModifierTotal) })
				e.Field("department", func(e *jx.Encoder) { e.Str(item.Department) })
				e.Field("prep_minutes", func(e *jx.Encoder) { e.Int(item.PrepMinutes) })
			})
		}
	})
}

func encodeTotals(e *jx.Encoder, t *order.Totals) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { e.Int64(t.Subtotal) })
		e.Field("tax", func(e *jx.Encoder) { e.Int64(t.Tax) })
		e.Field("tax_lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, line := range t.TaxLines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("rule", func(e *jx.Encoder) { e.Str(line.Rule) })
						e.Field("base", func(e *jx.Encoder) { e.Int64(line.Base) })
						e.Field("amount", func(e *jx.Encoder) { e.Int64(line.Amount) })
					})
				}
			})
		})
		e.Field("service_charge", func(e *jx.Encoder) { e.Int64(t.ServiceCharge) })
		e.Field("discount", func(e *jx.Encoder) { e.Int64(t.Discount) })
		e.Field("loyalty_value", func(e *jx.Encoder) { e.Int64(t.LoyaltyValue) })
		e.Field("effective_discount", func(e *jx.Encoder) { e.Int64(t.EffectiveDiscount) })
		e.Field("tip", func(e *jx.Encoder) { e.Int64(t.Tip) })
		e.Field("total", func(e *jx.Encoder) { e.Int64(t.Total) })
	})
}

func encodeHistory(e *jx.Encoder, h *order.StatusHistory) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(h.ID.String()) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(h.Status)) })
		e.Field("note", func(e *jx.Encoder) { e.Str(h.Note) })
		e.Field("actor", func(e *jx.Encoder) { e.Str(h.Actor) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(h.CreatedAt.Format(time.RFC3339)) })
	})
}

func encodeOptTime(e *jx.Encoder, name string, t *time.Time) {
	if t == nil {
		return
	}
	e.Field(name, func(e *jx.Encoder) { e.Str(t.Format(time.RFC3339)) })
}
