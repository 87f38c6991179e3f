// Package pricing computes checkout totals.
package pricing

import (
	"github.com/Lixing-Zhang/account-storefront/internal/coupon"
	"github.com/shopspring/decimal"
)

// MinPurchase is the smallest total an order may be submitted with
var MinPurchase = decimal.NewFromInt(12)

// ComputeTotal returns unitPrice x quantity, discounted when couponCode is
// a recognized coupon. It is recomputed from its inputs on every call.
func ComputeTotal(unitPrice decimal.Decimal, quantity int, couponCode string) decimal.Decimal {
	return ComputeTotalWith(coupon.Default(), unitPrice, quantity, couponCode)
}

// ComputeTotalWith is ComputeTotal against a specific coupon catalog
func ComputeTotalWith(catalog *coupon.Catalog, unitPrice decimal.Decimal, quantity int, couponCode string) decimal.Decimal {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return base.Mul(catalog.Multiplier(couponCode))
}

// DiscountApplied reports whether couponCode changes the price
func DiscountApplied(couponCode string) bool {
	_, ok := coupon.Default().Lookup(couponCode)
	return ok
}

// MeetsMinimum reports whether total clears MinPurchase
func MeetsMinimum(total decimal.Decimal) bool {
	return total.GreaterThanOrEqual(MinPurchase)
}

// Format renders an amount the way the storefront shows prices
func Format(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(3)
}
