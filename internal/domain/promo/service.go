// Package promo exposes the coupon engine and catalog as a single service
// surface for transport layers: coupon lifecycle operations plus cart
// evaluation with best-coupon selection.
package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/best-coupon/internal/domain/coupon"
)

// Service orchestrates the catalog and the pure engine. It holds no business
// state of its own; the clock is injected so evaluation stays deterministic
// under test.
type Service struct {
	catalog coupon.Catalog
	now     func() time.Time
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the evaluation clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over the given catalog.
func NewService(catalog coupon.Catalog, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		now:     time.Now,
		tracer:  otel.Tracer("promo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCoupon validates the definition and inserts the resulting coupon.
// Returns *coupon.ValidationError for malformed definitions and
// coupon.ErrDuplicateCode when the code is already taken.
func (s *Service) CreateCoupon(ctx context.Context, def coupon.Definition) (*coupon.Coupon, error) {
	c, err := coupon.New(def)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Insert(ctx, c); err != nil {
		return nil, errors.Wrap(err, "insert coupon")
	}
	return c, nil
}

// ReplaceCoupon swaps the coupon stored under code for a freshly validated
// one built from def. The definition's own code is ignored; a correction
// keeps its identity. Returns coupon.ErrNotFound when code is absent.
func (s *Service) ReplaceCoupon(ctx context.Context, code string, def coupon.Definition) (*coupon.Coupon, error) {
	def.Code = code
	c, err := coupon.New(def)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Replace(ctx, c); err != nil {
		return nil, errors.Wrap(err, "replace coupon")
	}
	return c, nil
}

// DeleteCoupon removes the coupon stored under code.
// Returns coupon.ErrNotFound when code is absent.
func (s *Service) DeleteCoupon(ctx context.Context, code string) error {
	if err := s.catalog.Delete(ctx, code); err != nil {
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}

// ListCoupons returns a snapshot of the catalog for administrative display.
func (s *Service) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	list, err := s.catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return list, nil
}

// Result is the outcome of evaluating a cart against the whole catalog.
// Best is nil when no coupon applies; FinalTotal then equals CartTotal.
// Evaluations carries the per-coupon verdicts when diagnostics were asked for.
type Result struct {
	Best        *coupon.Pick
	CartTotal   decimal.Decimal
	FinalTotal  decimal.Decimal
	Evaluations []coupon.Evaluation
}

// EvaluateCart runs best-coupon selection over a catalog snapshot.
// When explain is true the result also carries one Evaluation per coupon.
func (s *Service) EvaluateCart(ctx context.Context, u coupon.User, cart coupon.Cart, explain bool) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "EvaluateCart")
	defer span.End()

	coupons, err := s.catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	on := s.now()
	cartTotal := cart.Total().Round(2)

	res := &Result{
		CartTotal:  cartTotal,
		FinalTotal: cartTotal,
	}
	if explain {
		res.Evaluations = coupon.EvaluateAll(coupons, u, cart, on)
	}

	if pick, ok := coupon.SelectBest(coupons, u, cart, on); ok {
		res.Best = &pick
		res.FinalTotal = cartTotal.Sub(pick.Amount)
		if res.FinalTotal.IsNegative() {
			res.FinalTotal = decimal.Zero
		}
	}

	span.SetAttributes(
		attribute.Int("coupons.evaluated", len(coupons)),
		attribute.Bool("coupons.applied", res.Best != nil),
	)
	return res, nil
}
