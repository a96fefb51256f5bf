package coupon

import "github.com/shopspring/decimal"

// Calculate computes the discount amount for an already-eligible coupon.
// The base is the category-restricted subtotal when the coupon names
// applicable categories, otherwise the whole-cart total. The result is
// rounded half-up to 2 decimal places and never exceeds the base or
// MaxDiscountAmount. A zero base yields a zero amount.
func Calculate(c Coupon, cart Cart) decimal.Decimal {
	base := discountBase(c, cart)
	if !base.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercent:
		amount = base.Mul(c.DiscountValue).Div(hundred)
	case DiscountFlat:
		amount = decimal.Min(c.DiscountValue, base)
	default:
		// Unreachable for catalog coupons: New rejects unknown types.
		return decimal.Zero
	}

	if c.MaxDiscountAmount != nil {
		amount = decimal.Min(amount, *c.MaxDiscountAmount)
	}

	// Round half-up to the currency minor unit. decimal.Round is
	// half-away-from-zero, which coincides with half-up for the
	// non-negative amounts produced here.
	return amount.Round(2)
}

// discountBase returns the subtotal the discount applies to.
func discountBase(c Coupon, cart Cart) decimal.Decimal {
	cats := c.Eligibility.ApplicableCategories
	if len(cats) == 0 {
		return cart.Total()
	}
	sum := decimal.Zero
	for _, item := range cart.Items {
		if member(cats, item.Category) {
			sum = sum.Add(item.LineTotal())
		}
	}
	return sum
}
