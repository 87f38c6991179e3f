package models

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers, matching the storefront wire format.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents an account listing available for purchase
type Product struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"category_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	BasePrice     decimal.Decimal `json:"base_price"`
	StockQuantity int             `json:"stock_quantity"`
	Rating        float64         `json:"rating"`
	ReturnRate    float64         `json:"return_rate"`
	DeliveryTime  string          `json:"delivery_time"`
	Category      *CategoryRef    `json:"category,omitempty"`
}

// InStock reports whether the listing can be bought at all
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// CategoryRef is the short category reference embedded in a product
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Category groups products; top-level categories carry their children
type Category struct {
	ID          int64      `json:"id"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Children    []Category `json:"children,omitempty"`
}
