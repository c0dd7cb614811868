package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/josephbruno/v11pos/internal/domain/loyalty"
)

type redeemRequest struct {
	OrderID uuid.UUID `json:"order_id"`
	Points  int64     `json:"points"`
}

// GetLoyalty returns the customer's current point balance.
func (h *Handler) GetLoyalty(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), customerID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("customer_id", func(e *jx.Encoder) { e.Str(customerID.String()) })
			e.Field("balance", func(e *jx.Encoder) { e.Int64(balance) })
		})
	})
}

// RedeemPoints debits points against an order outside of checkout, e.g. a
// counter adjustment. The active rule's minimum still applies.
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rules, err := h.loyaltyRules.ActiveRules(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	rule, err := loyalty.SelectRule(rules)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	entry, value, err := h.ledger.Redeem(r.Context(), customerID, req.OrderID, req.Points, rule)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("entry", func(e *jx.Encoder) { encodeTransaction(e, entry) })
			e.Field("value", func(e *jx.Encoder) { e.Int64(value) })
		})
	})
}

// ExpirePoints runs on-demand expiry over the customer's lots.
func (h *Handler) ExpirePoints(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	entry, err := h.ledger.ExpirePoints(r.Context(), customerID, time.Now())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if entry == nil {
		// Nothing to expire.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTransaction(e, entry) })
}

func encodeTransaction(e *jx.Encoder, t *loyalty.Transaction) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(t.ID.String()) })
		e.Field("customer_id", func(e *jx.Encoder) { e.Str(t.CustomerID.String()) })
		e.Field("points", func(e *jx.Encoder) { e.Int64(t.Points) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(t.Kind)) })
		e.Field("balance_before", func(e *jx.Encoder) { e.Int64(t.BalanceBefore) })
		e.Field("balance_after", func(e *jx.Encoder) { e.Int64(t.BalanceAfter) })
		if t.OrderID != nil {
			e.Field("order_id", func(e *jx.Encoder) { e.Str(t.OrderID.String()) })
		}
		encodeOptTime(e, "expires_at", t.ExpiresAt)
		e.Field("created_at", func(e *jx.Encoder) { e.Str(t.CreatedAt.Format(time.RFC3339)) })
	})
}
