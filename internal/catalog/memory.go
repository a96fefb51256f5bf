// Package catalog provides the default in-memory coupon catalog.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xenking/best-coupon/internal/domain/coupon"
)

var _ coupon.Catalog = (*Memory)(nil)

// Memory is a map-backed catalog guarded by an RWMutex: reads run
// concurrently, writes are serialized. List copies the contents under the
// read lock, so an evaluation pass always sees one consistent view no
// matter how many writers race with it.
type Memory struct {
	mu      sync.RWMutex
	coupons map[string]coupon.Coupon
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{coupons: make(map[string]coupon.Coupon)}
}

// Insert adds a coupon. Returns coupon.ErrDuplicateCode when the code is taken.
func (m *Memory) Insert(_ context.Context, c *coupon.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[c.Code]; ok {
		return coupon.ErrDuplicateCode
	}
	m.coupons[c.Code] = *c
	return nil
}

// Replace swaps the coupon stored under c.Code.
// Returns coupon.ErrNotFound when no coupon has that code.
func (m *Memory) Replace(_ context.Context, c *coupon.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[c.Code]; !ok {
		return coupon.ErrNotFound
	}
	m.coupons[c.Code] = *c
	return nil
}

// Delete removes the coupon with the given code (case-insensitive).
// Returns coupon.ErrNotFound when absent.
func (m *Memory) Delete(_ context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[code]; !ok {
		return coupon.ErrNotFound
	}
	delete(m.coupons, code)
	return nil
}

// FindByCode looks up one coupon by code (case-insensitive).
func (m *Memory) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

// List returns a snapshot of all coupons, sorted by code for deterministic
// listings. The returned slice is owned by the caller.
func (m *Memory) List(_ context.Context) ([]coupon.Coupon, error) {
	m.mu.RLock()
	out := make([]coupon.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, c)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
