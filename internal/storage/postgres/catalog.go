package postgres

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/best-coupon/internal/domain/coupon"
)

const (
	insertCouponSQL = `INSERT INTO coupons (
		code, description, discount_type, discount_value, max_discount,
		start_date, end_date,
		allowed_user_tiers, min_lifetime_spend, min_orders_placed, first_order_only,
		allowed_countries, min_cart_value, min_items_count,
		applicable_categories, excluded_categories
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (code) DO NOTHING`

	replaceCouponSQL = `UPDATE coupons SET
		description = $2, discount_type = $3, discount_value = $4, max_discount = $5,
		start_date = $6, end_date = $7,
		allowed_user_tiers = $8, min_lifetime_spend = $9, min_orders_placed = $10,
		first_order_only = $11, allowed_countries = $12, min_cart_value = $13,
		min_items_count = $14, applicable_categories = $15, excluded_categories = $16
	WHERE code = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`

	selectCouponColumns = `code, description, discount_type, discount_value, max_discount,
		start_date, end_date,
		allowed_user_tiers, min_lifetime_spend, min_orders_placed, first_order_only,
		allowed_countries, min_cart_value, min_items_count,
		applicable_categories, excluded_categories`

	findCouponSQL = `SELECT ` + selectCouponColumns + ` FROM coupons WHERE code = UPPER($1)`
	listCouponSQL = `SELECT ` + selectCouponColumns + ` FROM coupons ORDER BY code`
)

var _ coupon.Catalog = (*CouponCatalog)(nil)

// CouponCatalog implements coupon.Catalog backed by PostgreSQL. Row-level
// locking gives the same single-writer discipline the in-memory catalog
// provides; each List call is one statement and therefore one consistent
// snapshot.
type CouponCatalog struct {
	pool *pgxpool.Pool
}

// NewCouponCatalog returns a CouponCatalog that uses the given pool.
func NewCouponCatalog(pool *pgxpool.Pool) *CouponCatalog {
	return &CouponCatalog{pool: pool}
}

// Insert stores a new coupon. Returns coupon.ErrDuplicateCode when a coupon
// with the same code already exists.
func (r *CouponCatalog) Insert(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, insertCouponSQL, couponArgs(c)...)
	if err != nil {
		return errors.Wrapf(err, "insert coupon %q", c.Code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrDuplicateCode
	}
	return nil
}

// Replace updates the coupon stored under c.Code.
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponCatalog) Replace(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, replaceCouponSQL, couponArgs(c)...)
	if err != nil {
		return errors.Wrapf(err, "replace coupon %q", c.Code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes the coupon with the given code (case-insensitive).
func (r *CouponCatalog) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return errors.Wrapf(err, "delete coupon %q", code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// FindByCode looks up one coupon by code (case-insensitive).
func (r *CouponCatalog) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &c, nil
}

// List returns all coupons ordered by code.
func (r *CouponCatalog) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	list, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return list, nil
}

func couponArgs(c *coupon.Coupon) []any {
	el := c.Eligibility
	return []any{
		c.Code, c.Description, string(c.DiscountType), c.DiscountValue, c.MaxDiscountAmount,
		c.StartDate, c.EndDate,
		textArray(el.AllowedUserTiers), el.MinLifetimeSpend, el.MinOrdersPlaced, el.FirstOrderOnly,
		textArray(el.AllowedCountries), el.MinCartValue, el.MinItemsCount,
		textArray(el.ApplicableCategories), textArray(el.ExcludedCategories),
	}
}

// textArray maps nil ("no restriction") to an empty TEXT[] rather than NULL.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		maxDiscount  *decimal.Decimal
		minSpend     *decimal.Decimal
		minCart      *decimal.Decimal
		tiers        []string
		countries    []string
		applicable   []string
		excluded     []string
	)
	err := row.Scan(
		&c.Code, &c.Description, &discountType, &c.DiscountValue, &maxDiscount,
		&c.StartDate, &c.EndDate,
		&tiers, &minSpend, &c.Eligibility.MinOrdersPlaced, &c.Eligibility.FirstOrderOnly,
		&countries, &minCart, &c.Eligibility.MinItemsCount,
		&applicable, &excluded,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}

	c.DiscountType = coupon.DiscountType(discountType)
	c.MaxDiscountAmount = maxDiscount
	c.StartDate = coupon.Day(c.StartDate)
	c.EndDate = coupon.Day(c.EndDate)
	c.Eligibility.AllowedUserTiers = emptyToNil(tiers)
	c.Eligibility.MinLifetimeSpend = minSpend
	c.Eligibility.AllowedCountries = emptyToNil(countries)
	c.Eligibility.MinCartValue = minCart
	c.Eligibility.ApplicableCategories = emptyToNil(applicable)
	c.Eligibility.ExcludedCategories = emptyToNil(excluded)
	return c, nil
}

func emptyToNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation. Kept for callers that race concurrent inserts past the
// ON CONFLICT guard, e.g. bulk ingest.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
