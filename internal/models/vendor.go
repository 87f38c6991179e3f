package models

import "github.com/shopspring/decimal"

// VendorOffer is one seller's terms for a product during a checkout.
// Offers are generated when the checkout opens and never stored.
type VendorOffer struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Rating float64         `json:"rating"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
}
