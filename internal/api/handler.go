// Package api exposes the promo service over HTTP. It owns transport
// concerns only: routing, payload decoding and validation, status mapping.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/best-coupon/internal/domain/coupon"
	"github.com/xenking/best-coupon/internal/domain/promo"
)

// Handler routes coupon API requests to the promo service.
type Handler struct {
	svc *promo.Service
}

// NewHandler constructs a Handler over the given service.
func NewHandler(svc *promo.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the chi router for all coupon endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/coupons", h.createCoupon)
	r.Get("/coupons", h.listCoupons)
	r.Put("/coupons/{code}", h.replaceCoupon)
	r.Delete("/coupons/{code}", h.deleteCoupon)
	r.Post("/best-coupon", h.bestCoupon)
	return r
}

// writeJSON writes the encoder's buffer with the given status code.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard {code, message} error payload.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// mapCouponError converts service errors into HTTP responses. Validation
// failures and duplicate codes are client errors; anything else is logged
// and reported as a 500 without leaking internals.
func mapCouponError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *coupon.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, coupon.ErrDuplicateCode):
		writeError(w, http.StatusBadRequest, "coupon code already exists")
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, "coupon not found")
	default:
		zctx.From(r.Context()).Error("coupon request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
