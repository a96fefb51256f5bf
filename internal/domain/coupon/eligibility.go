package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason explains why a coupon was ineligible for a (user, cart) pair.
// It is result data, not an error: ineligibility is a normal outcome.
type Reason string

const (
	ReasonExpiredOrNotYetActive Reason = "EXPIRED_OR_NOT_YET_ACTIVE"
	ReasonTierNotAllowed        Reason = "TIER_NOT_ALLOWED"
	ReasonLifetimeSpendTooLow   Reason = "LIFETIME_SPEND_TOO_LOW"
	ReasonTooFewOrders          Reason = "TOO_FEW_ORDERS"
	ReasonNotFirstOrder         Reason = "NOT_FIRST_ORDER"
	ReasonCountryNotAllowed     Reason = "COUNTRY_NOT_ALLOWED"
	ReasonCartValueTooLow       Reason = "CART_VALUE_TOO_LOW"
	ReasonTooFewItems           Reason = "TOO_FEW_ITEMS"
	ReasonNoMatchingCategory    Reason = "NO_MATCHING_CATEGORY"
	ReasonExcludedCategory      Reason = "EXCLUDED_CATEGORY_IN_CART"
)

// Evaluation is the per-coupon verdict. Amount is populated only when
// Eligible is true; Reason only when it is false.
type Evaluation struct {
	Code     string
	Eligible bool
	Reason   Reason
	Amount   decimal.Decimal
}

// Evaluate runs the eligibility checks for one coupon in a fixed order and,
// when all pass, computes the discount amount. The first failing check
// determines the reason. The evaluation date is injected for testability;
// callers pass "today" in production.
func Evaluate(c Coupon, u User, cart Cart, on time.Time) Evaluation {
	if r, ok := ineligible(c, u, cart, on); ok {
		return Evaluation{Code: c.Code, Reason: r}
	}
	return Evaluation{
		Code:     c.Code,
		Eligible: true,
		Amount:   Calculate(c, cart),
	}
}

func ineligible(c Coupon, u User, cart Cart, on time.Time) (Reason, bool) {
	day := Day(on)
	if day.Before(c.StartDate) || day.After(c.EndDate) {
		return ReasonExpiredOrNotYetActive, true
	}

	el := c.Eligibility

	if len(el.AllowedUserTiers) > 0 && !member(el.AllowedUserTiers, u.Tier) {
		return ReasonTierNotAllowed, true
	}
	if el.MinLifetimeSpend != nil && u.LifetimeSpend.LessThan(*el.MinLifetimeSpend) {
		return ReasonLifetimeSpendTooLow, true
	}
	if el.MinOrdersPlaced > 0 && u.OrdersPlaced < el.MinOrdersPlaced {
		return ReasonTooFewOrders, true
	}
	if el.FirstOrderOnly && u.OrdersPlaced > 0 {
		return ReasonNotFirstOrder, true
	}
	if len(el.AllowedCountries) > 0 && !member(el.AllowedCountries, u.Country) {
		return ReasonCountryNotAllowed, true
	}

	// The threshold applies to the whole-cart total, including items outside
	// any category restriction. The restriction scopes the discount base
	// (see Calculate), not this check.
	if el.MinCartValue != nil && cart.Total().LessThan(*el.MinCartValue) {
		return ReasonCartValueTooLow, true
	}
	if el.MinItemsCount > 0 && cart.TotalQuantity() < el.MinItemsCount {
		return ReasonTooFewItems, true
	}

	if len(el.ApplicableCategories) > 0 && !anyItemIn(cart, el.ApplicableCategories) {
		return ReasonNoMatchingCategory, true
	}
	if len(el.ExcludedCategories) > 0 && anyItemIn(cart, el.ExcludedCategories) {
		return ReasonExcludedCategory, true
	}

	return "", false
}

// member reports whether v belongs to a lowercase-normalized set,
// comparing case-insensitively.
func member(set []string, v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// anyItemIn reports whether at least one cart item's category is in the set.
func anyItemIn(cart Cart, categories []string) bool {
	for _, item := range cart.Items {
		if member(categories, item.Category) {
			return true
		}
	}
	return false
}
