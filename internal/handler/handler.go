// Package handler exposes the engine over HTTP. Request bodies are decoded
// with encoding/json; responses are streamed through jx encoders. Domain
// errors map to status codes in one place (respond.go).
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/josephbruno/v11pos/internal/domain/kot"
	"github.com/josephbruno/v11pos/internal/domain/loyalty"
	"github.com/josephbruno/v11pos/internal/domain/order"
)

// Handler delegates to the domain services and owns nothing but the mapping
// between HTTP and domain types.
type Handler struct {
	orders       *order.Service
	tickets      *kot.Service
	ledger       *loyalty.Ledger
	loyaltyRules loyalty.RuleRepository
	lg           *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	tickets *kot.Service,
	ledger *loyalty.Ledger,
	loyaltyRules loyalty.RuleRepository,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		orders:       orders,
		tickets:      tickets,
		ledger:       ledger,
		loyaltyRules: loyaltyRules,
		lg:           lg.Named("handler"),
	}
}

// Routes mounts all engine endpoints on a fresh chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Checkout)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Post("/transition", h.TransitionOrder)
			r.Get("/kots", h.ListTickets)
			r.Route("/kots/{department}", func(r chi.Router) {
				r.Post("/transition", h.TransitionTicket)
				r.Post("/print", h.PrintTicket)
			})
		})
	})

	r.Route("/customers/{customerID}/loyalty", func(r chi.Router) {
		r.Get("/", h.GetLoyalty)
		r.Post("/redeem", h.RedeemPoints)
		r.Post("/expire", h.ExpirePoints)
	})

	return r
}
