package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/best-coupon/internal/domain/promo"
)

// bestCoupon handles POST /best-coupon: evaluates the catalog against the
// given user and cart, returning the winning coupon or a JSON null when no
// coupon applies. With ?explain=1 the response instead carries per-coupon
// verdicts alongside the winner.
func (h *Handler) bestCoupon(w http.ResponseWriter, r *http.Request) {
	user, cart, err := decodeEvaluateRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	explain := r.URL.Query().Get("explain") == "1" || r.URL.Query().Get("explain") == "true"

	res, err := h.svc.EvaluateCart(r.Context(), user, cart, explain)
	if err != nil {
		mapCouponError(w, r, err)
		return
	}

	var e jx.Encoder
	if explain {
		encodeExplained(&e, res)
	} else {
		encodeBest(&e, res)
	}
	writeJSON(w, http.StatusOK, &e)
}

// encodeBest writes the plain best-coupon response: the winning coupon with
// amounts, or null when nothing applies.
func encodeBest(e *jx.Encoder, res *promo.Result) {
	if res.Best == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("couponCode")
	e.Str(res.Best.Coupon.Code)
	e.FieldStart("description")
	e.Str(res.Best.Coupon.Description)
	e.FieldStart("discountAmount")
	encDecimal(e, res.Best.Amount)
	e.FieldStart("cartTotal")
	encDecimal(e, res.CartTotal)
	e.FieldStart("finalTotal")
	encDecimal(e, res.FinalTotal)
	e.ObjEnd()
}

// encodeExplained writes the diagnostics response: the winner (or null) plus
// one verdict per catalog coupon.
func encodeExplained(e *jx.Encoder, res *promo.Result) {
	e.ObjStart()
	e.FieldStart("best")
	encodeBest(e, res)
	e.FieldStart("coupons")
	e.ArrStart()
	for _, ev := range res.Evaluations {
		encodeEvaluation(e, ev)
	}
	e.ArrEnd()
	e.ObjEnd()
}
