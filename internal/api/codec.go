package api

import (
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/best-coupon/internal/domain/coupon"
)

// dateLayout is the wire format for calendar dates (ISO-8601 date).
const dateLayout = "2006-01-02"

// decodeBufSize bounds the jx read buffer for request bodies.
const decodeBufSize = 4096

func decDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "decimal")
	}
	return v, nil
}

func decDate(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "date %q", s)
	}
	return t, nil
}

func decStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	if err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// skipNull consumes a JSON null and reports whether it did. Optional fields
// sent as explicit null are treated as absent.
func skipNull(d *jx.Decoder) (bool, error) {
	if d.Next() != jx.Null {
		return false, nil
	}
	return true, d.Null()
}

func decodeEligibility(d *jx.Decoder, el *coupon.EligibilityRule) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if null, err := skipNull(d); err != nil || null {
			return err
		}
		switch key {
		case "allowedUserTiers":
			v, err := decStrings(d)
			el.AllowedUserTiers = v
			return err
		case "minLifetimeSpend":
			v, err := decDecimal(d)
			el.MinLifetimeSpend = &v
			return err
		case "minOrdersPlaced":
			v, err := d.Int()
			el.MinOrdersPlaced = v
			return err
		case "firstOrderOnly":
			v, err := d.Bool()
			el.FirstOrderOnly = v
			return err
		case "allowedCountries":
			v, err := decStrings(d)
			el.AllowedCountries = v
			return err
		case "minCartValue":
			v, err := decDecimal(d)
			el.MinCartValue = &v
			return err
		case "minItemsCount":
			v, err := d.Int()
			el.MinItemsCount = v
			return err
		case "applicableCategories":
			v, err := decStrings(d)
			el.ApplicableCategories = v
			return err
		case "excludedCategories":
			v, err := decStrings(d)
			el.ExcludedCategories = v
			return err
		default:
			return d.Skip()
		}
	})
}

// decodeCouponDefinition parses a coupon definition payload. Structural
// validation (value ranges, date ordering) happens later in coupon.New;
// this only enforces the wire shape.
func decodeCouponDefinition(r io.Reader) (coupon.Definition, error) {
	var def coupon.Definition
	d := jx.Decode(r, decodeBufSize)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if null, err := skipNull(d); err != nil || null {
			return err
		}
		switch key {
		case "code":
			v, err := d.Str()
			def.Code = v
			return err
		case "description":
			v, err := d.Str()
			def.Description = v
			return err
		case "discountType":
			v, err := d.Str()
			def.DiscountType = coupon.DiscountType(v)
			return err
		case "discountValue":
			v, err := decDecimal(d)
			def.DiscountValue = v
			return err
		case "maxDiscountAmount":
			v, err := decDecimal(d)
			def.MaxDiscountAmount = &v
			return err
		case "startDate":
			v, err := decDate(d)
			def.StartDate = v
			return err
		case "endDate":
			v, err := decDate(d)
			def.EndDate = v
			return err
		case "eligibility":
			return decodeEligibility(d, &def.Eligibility)
		default:
			return d.Skip()
		}
	})
	return def, err
}

func decodeUser(d *jx.Decoder, u *coupon.User) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if null, err := skipNull(d); err != nil || null {
			return err
		}
		switch key {
		case "userId":
			v, err := d.Str()
			u.ID = v
			return err
		case "userTier":
			v, err := d.Str()
			u.Tier = v
			return err
		case "country":
			v, err := d.Str()
			u.Country = v
			return err
		case "lifetimeSpend":
			v, err := decDecimal(d)
			u.LifetimeSpend = v
			return err
		case "ordersPlaced":
			v, err := d.Int()
			u.OrdersPlaced = v
			return err
		default:
			return d.Skip()
		}
	})
}

func decodeCartItem(d *jx.Decoder) (coupon.CartItem, error) {
	var item coupon.CartItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := d.Str()
			item.ProductID = v
			return err
		case "category":
			v, err := d.Str()
			item.Category = v
			return err
		case "unitPrice":
			v, err := decDecimal(d)
			item.UnitPrice = v
			return err
		case "quantity":
			v, err := d.Int()
			item.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}

// decodeEvaluateRequest parses the {user, cart} payload for best-coupon
// evaluation and enforces boundary validation: userId present, quantities
// positive, unit prices non-negative.
func decodeEvaluateRequest(r io.Reader) (coupon.User, coupon.Cart, error) {
	var (
		user coupon.User
		cart coupon.Cart
	)
	d := jx.Decode(r, decodeBufSize)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "user":
			return decodeUser(d, &user)
		case "cart":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "items" {
					return d.Skip()
				}
				return d.Arr(func(d *jx.Decoder) error {
					item, err := decodeCartItem(d)
					if err != nil {
						return err
					}
					cart.Items = append(cart.Items, item)
					return nil
				})
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return user, cart, err
	}

	if user.ID == "" {
		return user, cart, errors.New("user.userId is required")
	}
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			return user, cart, errors.Errorf("quantity must be greater than 0 for product %s", item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return user, cart, errors.Errorf("unitPrice must not be negative for product %s", item.ProductID)
		}
	}
	return user, cart, nil
}

func encDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encStrings(e *jx.Encoder, field string, vs []string) {
	if len(vs) == 0 {
		return
	}
	e.FieldStart(field)
	e.ArrStart()
	for _, v := range vs {
		e.Str(v)
	}
	e.ArrEnd()
}

func encodeEligibility(e *jx.Encoder, el coupon.EligibilityRule) {
	e.ObjStart()
	encStrings(e, "allowedUserTiers", el.AllowedUserTiers)
	if el.MinLifetimeSpend != nil {
		e.FieldStart("minLifetimeSpend")
		encDecimal(e, *el.MinLifetimeSpend)
	}
	if el.MinOrdersPlaced > 0 {
		e.FieldStart("minOrdersPlaced")
		e.Int(el.MinOrdersPlaced)
	}
	if el.FirstOrderOnly {
		e.FieldStart("firstOrderOnly")
		e.Bool(true)
	}
	encStrings(e, "allowedCountries", el.AllowedCountries)
	if el.MinCartValue != nil {
		e.FieldStart("minCartValue")
		encDecimal(e, *el.MinCartValue)
	}
	if el.MinItemsCount > 0 {
		e.FieldStart("minItemsCount")
		e.Int(el.MinItemsCount)
	}
	encStrings(e, "applicableCategories", el.ApplicableCategories)
	encStrings(e, "excludedCategories", el.ExcludedCategories)
	e.ObjEnd()
}

func encodeCoupon(e *jx.Encoder, c coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(c.Code)
	if c.Description != "" {
		e.FieldStart("description")
		e.Str(c.Description)
	}
	e.FieldStart("discountType")
	e.Str(string(c.DiscountType))
	e.FieldStart("discountValue")
	encDecimal(e, c.DiscountValue)
	if c.MaxDiscountAmount != nil {
		e.FieldStart("maxDiscountAmount")
		encDecimal(e, *c.MaxDiscountAmount)
	}
	e.FieldStart("startDate")
	e.Str(c.StartDate.Format(dateLayout))
	e.FieldStart("endDate")
	e.Str(c.EndDate.Format(dateLayout))
	e.FieldStart("eligibility")
	encodeEligibility(e, c.Eligibility)
	e.ObjEnd()
}

func encodeEvaluation(e *jx.Encoder, ev coupon.Evaluation) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(ev.Code)
	e.FieldStart("eligible")
	e.Bool(ev.Eligible)
	if ev.Eligible {
		e.FieldStart("discountAmount")
		encDecimal(e, ev.Amount)
	} else {
		e.FieldStart("reason")
		e.Str(string(ev.Reason))
	}
	e.ObjEnd()
}
