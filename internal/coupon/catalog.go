package coupon

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// NewsletterCode is the code advertised to newsletter subscribers
const NewsletterCode = "news"

var one = decimal.NewFromInt(1)

// Coupon is a discount code and the fraction of the price it takes off
type Coupon struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Multiplier returns the factor applied to a total, e.g. 0.91 for 9%
func (c Coupon) Multiplier() decimal.Decimal {
	return one.Sub(c.DiscountPercent.Div(decimal.NewFromInt(100)))
}

// Catalog holds the recognized coupon codes.
// Codes are matched case-insensitively and without trimming.
type Catalog struct {
	coupons map[string]Coupon
	mu      sync.RWMutex
}

// NewCatalog creates a catalog with the given coupons
func NewCatalog(coupons ...Coupon) *Catalog {
	c := &Catalog{
		coupons: make(map[string]Coupon, len(coupons)),
	}
	for _, cp := range coupons {
		c.Add(cp)
	}
	return c
}

var defaultCatalog = NewCatalog(Coupon{
	Code:            NewsletterCode,
	DiscountPercent: decimal.NewFromInt(9),
})

// Default returns the catalog used for checkout pricing
func Default() *Catalog {
	return defaultCatalog
}

// Add registers or replaces a coupon
func (c *Catalog) Add(cp Coupon) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.coupons[strings.ToLower(cp.Code)] = cp
}

// Lookup finds the coupon for code. Empty codes never match.
func (c *Catalog) Lookup(code string) (Coupon, bool) {
	if code == "" {
		return Coupon{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cp, ok := c.coupons[strings.ToLower(code)]
	return cp, ok
}

// Multiplier returns the price factor for code; unknown codes give 1
func (c *Catalog) Multiplier(code string) decimal.Decimal {
	cp, ok := c.Lookup(code)
	if !ok {
		return one
	}
	return cp.Multiplier()
}

// GetStats returns statistics about the catalog
func (c *Catalog) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	codes := make([]string, 0, len(c.coupons))
	for code := range c.coupons {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	return map[string]interface{}{
		"total_coupons": len(c.coupons),
		"codes":         codes,
	}
}
