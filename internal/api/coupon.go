package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// createCoupon handles POST /coupons: validates the definition and stores the
// coupon, rejecting malformed definitions and duplicate codes with 400.
func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	def, err := decodeCouponDefinition(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	c, err := h.svc.CreateCoupon(r.Context(), def)
	if err != nil {
		mapCouponError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, *c)
	writeJSON(w, http.StatusCreated, &e)
}

// listCoupons handles GET /coupons: administrative listing of the catalog.
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.ListCoupons(r.Context())
	if err != nil {
		mapCouponError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, c := range coupons {
		encodeCoupon(&e, c)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// replaceCoupon handles PUT /coupons/{code}: a correction is modeled as
// replace-by-code, never in-place mutation.
func (h *Handler) replaceCoupon(w http.ResponseWriter, r *http.Request) {
	def, err := decodeCouponDefinition(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	c, err := h.svc.ReplaceCoupon(r.Context(), chi.URLParam(r, "code"), def)
	if err != nil {
		mapCouponError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, *c)
	writeJSON(w, http.StatusOK, &e)
}

// deleteCoupon handles DELETE /coupons/{code}.
func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCoupon(r.Context(), chi.URLParam(r, "code")); err != nil {
		mapCouponError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
