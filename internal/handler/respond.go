package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/josephbruno/v11pos/internal/domain/kot"
	"github.com/josephbruno/v11pos/internal/domain/loyalty"
	"github.com/josephbruno/v11pos/internal/domain/order"
)

// writeJSON streams an encoded body to the client. The encode callback fills
// the jx encoder; the helper owns headers and pooling.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError emits the uniform error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// respondDomainError maps a domain error onto a status code. Validation
// failures are 400, business rejections 422, lost races and illegal
// transitions 409, missing aggregates 404. Anything unmapped is a 500 and
// the caller's responsibility to log.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	var (
		quantityErr      *order.InvalidQuantityError
		unitPriceErr     *order.InvalidUnitPriceError
		orderEdgeErr     *order.IllegalTransitionError
		ticketEdgeErr    *kot.IllegalTransitionError
		ticketMissingErr *kot.NotFoundError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrCustomerNameRequired),
		errors.Is(err, order.ErrDeliveryAddressRequired),
		errors.As(err, &quantityErr),
		errors.As(err, &unitPriceErr):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, loyalty.ErrBelowMinimumRedemption),
		errors.Is(err, loyalty.ErrInsufficientBalance),
		errors.Is(err, loyalty.ErrRedemptionExceedsCap),
		errors.Is(err, loyalty.ErrRuleNotFound),
		errors.Is(err, loyalty.ErrDuplicateEarn),
		errors.Is(err, order.ErrInsufficientStock):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.As(err, &orderEdgeErr),
		errors.As(err, &ticketEdgeErr),
		errors.Is(err, order.ErrStaleStatus),
		errors.Is(err, kot.ErrStaleTicket):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrNotFound),
		errors.As(err, &ticketMissingErr):
		writeError(w, http.StatusNotFound, err.Error())

	default:
		h.lg.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
