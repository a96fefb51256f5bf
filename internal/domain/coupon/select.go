package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pick is the winning coupon together with its computed discount amount.
type Pick struct {
	Coupon Coupon
	Amount decimal.Decimal
}

// EvaluateAll evaluates every coupon against the same (user, cart, date)
// and returns one Evaluation per coupon, in input order.
func EvaluateAll(coupons []Coupon, u User, cart Cart, on time.Time) []Evaluation {
	evals := make([]Evaluation, len(coupons))
	for i, c := range coupons {
		evals[i] = Evaluate(c, u, cart, on)
	}
	return evals
}

// SelectBest picks the single applicable coupon with the largest discount.
// Eligible coupons with a zero amount are skipped: they are valid but not
// beneficial. Ties are broken by earlier EndDate (prefer coupons expiring
// soonest), then by lexicographically smaller code, so the result is fully
// deterministic. The second return value is false when nothing applies.
func SelectBest(coupons []Coupon, u User, cart Cart, on time.Time) (Pick, bool) {
	var (
		best  Pick
		found bool
	)
	for _, c := range coupons {
		ev := Evaluate(c, u, cart, on)
		if !ev.Eligible || !ev.Amount.IsPositive() {
			continue
		}
		cand := Pick{Coupon: c, Amount: ev.Amount}
		if !found || better(cand, best) {
			best = cand
			found = true
		}
	}
	return best, found
}

// better reports whether a should win over b under the tie-break policy.
func better(a, b Pick) bool {
	if !a.Amount.Equal(b.Amount) {
		return a.Amount.GreaterThan(b.Amount)
	}
	if !a.Coupon.EndDate.Equal(b.Coupon.EndDate) {
		return a.Coupon.EndDate.Before(b.Coupon.EndDate)
	}
	return a.Coupon.Code < b.Coupon.Code
}
