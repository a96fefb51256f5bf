package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/best-coupon/internal/catalog"
	"github.com/xenking/best-coupon/internal/domain/promo"
)

const summerCouponJSON = `{
	"code": "SUMMER2025",
	"description": "Summer electronics sale",
	"discountType": "PERCENT",
	"discountValue": 10,
	"maxDiscountAmount": 500,
	"startDate": "2023-01-01",
	"endDate": "2025-12-31",
	"eligibility": {
		"allowedUserTiers": ["GOLD", "PLATINUM"],
		"minCartValue": 100,
		"applicableCategories": ["electronics"]
	}
}`

const sampleEvaluateJSON = `{
	"user": {
		"userId": "u1",
		"userTier": "GOLD",
		"country": "US",
		"lifetimeSpend": 5000,
		"ordersPlaced": 12
	},
	"cart": {
		"items": [
			{"productId": "tv-1", "category": "electronics", "unitPrice": 2000, "quantity": 1},
			{"productId": "book-1", "category": "books", "unitPrice": 500, "quantity": 2}
		]
	}
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := promo.NewService(catalog.NewMemory(), promo.WithClock(func() time.Time {
		return time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	}))
	srv := httptest.NewServer(NewHandler(svc).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	if resp.StatusCode != http.StatusNoContent {
		dec := json.NewDecoder(resp.Body)
		// best-coupon may answer a bare null; tolerate non-object bodies.
		_ = dec.Decode(&payload)
	}
	return resp, payload
}

func TestCreateCouponEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "SUMMER2025", body["code"])
	assert.Equal(t, "PERCENT", body["discountType"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "already exists")
}

func TestCreateCouponValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing code",
			body: `{"discountType":"PERCENT","discountValue":10,"startDate":"2023-01-01","endDate":"2025-12-31"}`,
			want: "code",
		},
		{
			name: "percent out of range",
			body: `{"code":"X","discountType":"PERCENT","discountValue":150,"startDate":"2023-01-01","endDate":"2025-12-31"}`,
			want: "discountValue",
		},
		{
			name: "unknown discount type",
			body: `{"code":"X","discountType":"BOGOF","discountValue":10,"startDate":"2023-01-01","endDate":"2025-12-31"}`,
			want: "discountType",
		},
		{
			name: "start after end",
			body: `{"code":"X","discountType":"FLAT","discountValue":10,"startDate":"2026-01-01","endDate":"2025-01-01"}`,
			want: "startDate",
		},
		{
			name: "malformed json",
			body: `{"code":`,
			want: "invalid request body",
		},
		{
			name: "bad date format",
			body: `{"code":"X","discountType":"FLAT","discountValue":10,"startDate":"01/01/2023","endDate":"2025-01-01"}`,
			want: "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := doJSON(t, http.MethodPost, srv.URL+"/coupons", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["message"], tt.want)
		})
	}
}

func TestListCouponsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/coupons")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)

	createResp, _ := doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)

	resp, err = http.Get(srv.URL + "/coupons")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "SUMMER2025", list[0]["code"])
}

func TestReplaceCouponEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/coupons/SUMMER2025", summerCouponJSON)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	corrected := strings.Replace(summerCouponJSON, `"discountValue": 10`, `"discountValue": 15`, 1)
	resp, body := doJSON(t, http.MethodPut, srv.URL+"/coupons/SUMMER2025", corrected)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(15), body["discountValue"])
}

func TestDeleteCouponEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/coupons/SUMMER2025", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/coupons/summer2025", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/coupons/SUMMER2025", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBestCouponEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	// Empty catalog: nothing applies, the body is a JSON null.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/best-coupon", sampleEvaluateJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/best-coupon", sampleEvaluateJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body)
	assert.Equal(t, "SUMMER2025", body["couponCode"])
	assert.Equal(t, float64(200), body["discountAmount"])
	assert.Equal(t, float64(3000), body["cartTotal"])
	assert.Equal(t, float64(2800), body["finalTotal"])
}

func TestBestCouponExplain(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/coupons", summerCouponJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	silverUser := strings.Replace(sampleEvaluateJSON, `"GOLD"`, `"SILVER"`, 1)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/best-coupon?explain=1", silverUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Nil(t, body["best"])
	coupons, ok := body["coupons"].([]any)
	require.True(t, ok)
	require.Len(t, coupons, 1)

	verdict := coupons[0].(map[string]any)
	assert.Equal(t, "SUMMER2025", verdict["code"])
	assert.Equal(t, false, verdict["eligible"])
	assert.Equal(t, "TIER_NOT_ALLOWED", verdict["reason"])
}

func TestBestCouponRequestValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing user id",
			body: `{"user":{},"cart":{"items":[]}}`,
			want: "userId",
		},
		{
			name: "zero quantity",
			body: `{"user":{"userId":"u1"},"cart":{"items":[{"productId":"p1","category":"books","unitPrice":10,"quantity":0}]}}`,
			want: "quantity",
		},
		{
			name: "negative unit price",
			body: `{"user":{"userId":"u1"},"cart":{"items":[{"productId":"p1","category":"books","unitPrice":-1,"quantity":1}]}}`,
			want: "unitPrice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := doJSON(t, http.MethodPost, srv.URL+"/best-coupon", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["message"], tt.want)
		})
	}
}
