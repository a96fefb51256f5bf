// Package coupon implements the promotional coupon engine: coupon value
// objects with creation-time invariant checks, the eligibility evaluator,
// the discount calculator, and best-coupon selection. Everything in this
// package is a pure function of its inputs plus an evaluation date.
package coupon

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the discount base, optionally
	// clamped to MaxDiscountAmount.
	DiscountPercent DiscountType = "PERCENT"
	// DiscountFlat subtracts a fixed amount, never exceeding the discount base.
	DiscountFlat DiscountType = "FLAT"
)

var (
	// ErrNotFound is returned by catalog lookups when no coupon has the code.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when inserting a coupon whose code is taken.
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// ValidationError describes a structurally invalid coupon definition.
// It names the offending field so callers can surface it per-field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// EligibilityRule holds the conditions a (user, cart) pair must satisfy.
// Empty sets mean "no restriction"; nil decimals mean "no threshold".
// All set members are stored lowercase.
type EligibilityRule struct {
	AllowedUserTiers     []string
	MinLifetimeSpend     *decimal.Decimal
	MinOrdersPlaced      int
	FirstOrderOnly       bool
	AllowedCountries     []string
	MinCartValue         *decimal.Decimal
	MinItemsCount        int
	ApplicableCategories []string
	ExcludedCategories   []string
}

// Coupon is an immutable, time-boxed discount rule. Corrections are modeled
// as replace-by-code; instances are never mutated after New returns.
type Coupon struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	Eligibility       EligibilityRule
}

// Definition is the raw input for creating a Coupon. Fields mirror Coupon
// before normalization and validation.
type Definition struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	Eligibility       EligibilityRule
}

var hundred = decimal.NewFromInt(100)

// New validates a Definition and returns the normalized Coupon.
// Codes are uppercased; tier, country, and category sets are lowercased and
// deduplicated; dates are truncated to calendar days in UTC.
func New(def Definition) (*Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(def.Code))
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "must not be empty"}
	}

	switch def.DiscountType {
	case DiscountPercent:
		if !def.DiscountValue.IsPositive() || def.DiscountValue.GreaterThan(hundred) {
			return nil, &ValidationError{Field: "discountValue", Message: "percent value must be in (0, 100]"}
		}
	case DiscountFlat:
		if !def.DiscountValue.IsPositive() {
			return nil, &ValidationError{Field: "discountValue", Message: "flat value must be positive"}
		}
	default:
		return nil, &ValidationError{Field: "discountType", Message: "must be PERCENT or FLAT"}
	}

	if def.MaxDiscountAmount != nil && !def.MaxDiscountAmount.IsPositive() {
		return nil, &ValidationError{Field: "maxDiscountAmount", Message: "must be positive when set"}
	}

	start := Day(def.StartDate)
	end := Day(def.EndDate)
	if start.After(end) {
		return nil, &ValidationError{Field: "startDate", Message: "must not be after endDate"}
	}

	el := def.Eligibility
	if el.MinCartValue != nil && el.MinCartValue.IsNegative() {
		return nil, &ValidationError{Field: "eligibility.minCartValue", Message: "must not be negative"}
	}
	if el.MinLifetimeSpend != nil && el.MinLifetimeSpend.IsNegative() {
		return nil, &ValidationError{Field: "eligibility.minLifetimeSpend", Message: "must not be negative"}
	}
	if el.MinOrdersPlaced < 0 {
		return nil, &ValidationError{Field: "eligibility.minOrdersPlaced", Message: "must not be negative"}
	}
	if el.MinItemsCount < 0 {
		return nil, &ValidationError{Field: "eligibility.minItemsCount", Message: "must not be negative"}
	}

	return &Coupon{
		Code:              code,
		Description:       strings.TrimSpace(def.Description),
		DiscountType:      def.DiscountType,
		DiscountValue:     def.DiscountValue,
		MaxDiscountAmount: def.MaxDiscountAmount,
		StartDate:         start,
		EndDate:           end,
		Eligibility: EligibilityRule{
			AllowedUserTiers:     normalizeSet(el.AllowedUserTiers),
			MinLifetimeSpend:     el.MinLifetimeSpend,
			MinOrdersPlaced:      el.MinOrdersPlaced,
			FirstOrderOnly:       el.FirstOrderOnly,
			AllowedCountries:     normalizeSet(el.AllowedCountries),
			MinCartValue:         el.MinCartValue,
			MinItemsCount:        el.MinItemsCount,
			ApplicableCategories: normalizeSet(el.ApplicableCategories),
			ExcludedCategories:   normalizeSet(el.ExcludedCategories),
		},
	}, nil
}

// Day truncates t to its calendar day in UTC. The coupon window and the
// evaluation date are compared at day precision only.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeSet lowercases, trims, deduplicates, and sorts set members.
// Returns nil for an effectively empty input so "no restriction" stays nil.
func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// User is the shopper context evaluated against eligibility rules.
// It is a transient input; the engine never stores it.
type User struct {
	ID            string
	Tier          string
	Country       string
	LifetimeSpend decimal.Decimal
	OrdersPlaced  int
}

// CartItem is a single cart line. Quantity is validated at the API boundary
// to be positive and UnitPrice to be non-negative.
type CartItem struct {
	ProductID string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns UnitPrice * Quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered list of items. Order is irrelevant to every computation
// here and preserved only for display.
type Cart struct {
	Items []CartItem
}

// Total returns the whole-cart value, the sum of all line totals.
func (c Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// TotalQuantity returns the sum of item quantities.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Catalog is the only stateful collaborator of the engine. Implementations
// must serialize writes and give List callers a consistent snapshot.
type Catalog interface {
	Insert(ctx context.Context, c *Coupon) error
	Replace(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
}
