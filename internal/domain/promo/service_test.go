package promo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/best-coupon/internal/catalog"
	"github.com/xenking/best-coupon/internal/domain/coupon"
)

var evalDate = time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

func newTestService() *Service {
	return NewService(catalog.NewMemory(), WithClock(func() time.Time { return evalDate }))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func summerDefinition() coupon.Definition {
	return coupon.Definition{
		Code:              "SUMMER2025",
		Description:       "Summer electronics sale",
		DiscountType:      coupon.DiscountPercent,
		DiscountValue:     dec("10"),
		MaxDiscountAmount: decPtr("500"),
		StartDate:         time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Eligibility: coupon.EligibilityRule{
			AllowedUserTiers:     []string{"GOLD", "PLATINUM"},
			MinCartValue:         decPtr("100"),
			ApplicableCategories: []string{"electronics"},
		},
	}
}

func sampleUser() coupon.User {
	return coupon.User{ID: "u1", Tier: "GOLD", Country: "US", LifetimeSpend: dec("5000"), OrdersPlaced: 12}
}

func sampleCart() coupon.Cart {
	return coupon.Cart{Items: []coupon.CartItem{
		{ProductID: "tv-1", Category: "electronics", UnitPrice: dec("2000"), Quantity: 1},
		{ProductID: "book-1", Category: "books", UnitPrice: dec("500"), Quantity: 2},
	}}
}

func TestCreateCoupon(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService()

	c, err := svc.CreateCoupon(ctx, summerDefinition())
	require.NoError(t, err)
	assert.Equal(t, "SUMMER2025", c.Code)

	_, err = svc.CreateCoupon(ctx, summerDefinition())
	assert.ErrorIs(t, err, coupon.ErrDuplicateCode)

	def := summerDefinition()
	def.Code = "BAD"
	def.DiscountValue = dec("-1")
	_, err = svc.CreateCoupon(ctx, def)
	var ve *coupon.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReplaceCoupon(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.ReplaceCoupon(ctx, "SUMMER2025", summerDefinition())
	assert.ErrorIs(t, err, coupon.ErrNotFound)

	_, err = svc.CreateCoupon(ctx, summerDefinition())
	require.NoError(t, err)

	// The path code wins over the payload code.
	def := summerDefinition()
	def.Code = "SOMETHING-ELSE"
	def.Description = "corrected"
	c, err := svc.ReplaceCoupon(ctx, "summer2025", def)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER2025", c.Code)
	assert.Equal(t, "corrected", c.Description)

	list, err := svc.ListCoupons(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "corrected", list[0].Description)
}

func TestDeleteCoupon(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateCoupon(ctx, summerDefinition())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCoupon(ctx, "SUMMER2025"))
	assert.ErrorIs(t, svc.DeleteCoupon(ctx, "SUMMER2025"), coupon.ErrNotFound)
}

func TestEvaluateCart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("applies the best coupon", func(t *testing.T) {
		t.Parallel()
		svc := newTestService()

		_, err := svc.CreateCoupon(ctx, summerDefinition())
		require.NoError(t, err)

		res, err := svc.EvaluateCart(ctx, sampleUser(), sampleCart(), false)
		require.NoError(t, err)

		require.NotNil(t, res.Best)
		assert.Equal(t, "SUMMER2025", res.Best.Coupon.Code)
		assert.True(t, res.Best.Amount.Equal(dec("200")))
		assert.True(t, res.CartTotal.Equal(dec("3000")))
		assert.True(t, res.FinalTotal.Equal(dec("2800")))
		assert.Nil(t, res.Evaluations)
	})

	t.Run("no winner leaves totals equal", func(t *testing.T) {
		t.Parallel()
		svc := newTestService()

		res, err := svc.EvaluateCart(ctx, sampleUser(), sampleCart(), false)
		require.NoError(t, err)

		assert.Nil(t, res.Best)
		assert.True(t, res.FinalTotal.Equal(res.CartTotal))
	})

	t.Run("explain carries one verdict per coupon", func(t *testing.T) {
		t.Parallel()
		svc := newTestService()

		_, err := svc.CreateCoupon(ctx, summerDefinition())
		require.NoError(t, err)

		expired := summerDefinition()
		expired.Code = "WINTER2024"
		expired.EndDate = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		_, err = svc.CreateCoupon(ctx, expired)
		require.NoError(t, err)

		res, err := svc.EvaluateCart(ctx, sampleUser(), sampleCart(), true)
		require.NoError(t, err)

		require.Len(t, res.Evaluations, 2)
		byCode := map[string]coupon.Evaluation{}
		for _, ev := range res.Evaluations {
			byCode[ev.Code] = ev
		}
		assert.True(t, byCode["SUMMER2025"].Eligible)
		assert.Equal(t, coupon.ReasonExpiredOrNotYetActive, byCode["WINTER2024"].Reason)
	})

	t.Run("final total never negative", func(t *testing.T) {
		t.Parallel()
		svc := newTestService()

		def := summerDefinition()
		def.Code = "FREEBIE"
		def.DiscountType = coupon.DiscountFlat
		def.DiscountValue = dec("10000")
		def.MaxDiscountAmount = nil
		def.Eligibility = coupon.EligibilityRule{}
		_, err := svc.CreateCoupon(ctx, def)
		require.NoError(t, err)

		res, err := svc.EvaluateCart(ctx, sampleUser(), sampleCart(), false)
		require.NoError(t, err)

		require.NotNil(t, res.Best)
		assert.False(t, res.FinalTotal.IsNegative())
		assert.True(t, res.FinalTotal.IsZero())
	})

	t.Run("clock drives the evaluation date", func(t *testing.T) {
		t.Parallel()

		svc := NewService(catalog.NewMemory(), WithClock(func() time.Time {
			return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		}))
		_, err := svc.CreateCoupon(ctx, summerDefinition())
		require.NoError(t, err)

		res, err := svc.EvaluateCart(ctx, sampleUser(), sampleCart(), true)
		require.NoError(t, err)

		assert.Nil(t, res.Best)
		require.Len(t, res.Evaluations, 1)
		assert.Equal(t, coupon.ReasonExpiredOrNotYetActive, res.Evaluations[0].Reason)
	})
}
