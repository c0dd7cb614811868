package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/josephbruno/v11pos/internal/domain/kot"
)

type ticketTransitionRequest struct {
	Target string `json:"target"`
}

// ListTickets returns the order's tickets plus whether the whole order is
// ready to hand off.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	tickets, err := h.tickets.Tickets(r.Context(), orderID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("tickets", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range tickets {
						encodeTicket(e, &tickets[i])
					}
				})
			})
			e.Field("all_ready", func(e *jx.Encoder) { e.Bool(kot.AllTicketsReady(tickets)) })
		})
	})
}

// TransitionTicket advances one department's ticket along its lifecycle.
func (h *Handler) TransitionTicket(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	department := chi.URLParam(r, "department")

	var req ticketTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tickets.Transition(r.Context(), orderID, department, kot.Status(req.Target))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTicket(e, t) })
}

// PrintTicket reprints a ticket. Reprints bump the counter on the existing
// ticket; there is never a second ticket for the same department.
func (h *Handler) PrintTicket(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	department := chi.URLParam(r, "department")

	t, err := h.tickets.Print(r.Context(), orderID, department)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTicket(e, t) })
}

func encodeTicket(e *jx.Encoder, t *kot.Ticket) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(t.ID.String()) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(t.OrderID.String()) })
		e.Field("department", func(e *jx.Encoder) { e.Str(t.Department) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(t.Status)) })
		e.Field("item_count", func(e *jx.Encoder) { e.Int(t.ItemCount) })
		e.Field("print_count", func(e *jx.Encoder) { e.Int(t.PrintCount) })
		e.Field("estimated_minutes", func(e *jx.Encoder) { e.Int(t.EstimatedMinutes) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(t.CreatedAt.Format(time.RFC3339)) })
		encodeOptTime(e, "acknowledged_at", t.AcknowledgedAt)
		encodeOptTime(e, "preparing_at", t.PreparingAt)
		encodeOptTime(e, "ready_at", t.ReadyAt)
		encodeOptTime(e, "served_at", t.ServedAt)
	})
}
