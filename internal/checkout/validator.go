package checkout

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// Form fields that can carry a validation message
const (
	FieldEmail       = "email"
	FieldQuantity    = "quantity"
	FieldVendor      = "vendor"
	FieldMinPurchase = "minPurchase"
	FieldAgreeTerms  = "agreeTerms"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationErrors maps a field name to its message. Empty means valid.
type ValidationErrors map[string]string

// Clone returns an independent copy
func (v ValidationErrors) Clone() ValidationErrors {
	cp := make(ValidationErrors, len(v))
	for k, msg := range v {
		cp[k] = msg
	}
	return cp
}

// Fields returns the failing field names, sorted
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for k := range v {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// IsValidEmail reports whether email has a local@domain.tld shape
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks the form against the selected vendor and the current
// total. Every rule runs; all failures are reported together.
func Validate(form models.CheckoutForm, selected *models.VendorOffer, total decimal.Decimal) ValidationErrors {
	errs := ValidationErrors{}

	if form.Email == "" {
		errs[FieldEmail] = "Email is required"
	} else if !IsValidEmail(form.Email) {
		errs[FieldEmail] = "Invalid email format"
	}

	if form.Quantity < 1 {
		errs[FieldQuantity] = "Quantity must be at least 1"
	} else if selected != nil && form.Quantity > selected.Stock {
		errs[FieldQuantity] = fmt.Sprintf("Quantity exceeds available stock (max %d)", selected.Stock)
	}

	if selected == nil {
		errs[FieldVendor] = "Please select a vendor"
	}

	if !pricing.MeetsMinimum(total) {
		errs[FieldMinPurchase] = fmt.Sprintf("Minimum order amount is $%s", pricing.MinPurchase.String())
	}

	if !form.AgreeTerms {
		errs[FieldAgreeTerms] = "You must agree to the terms of use"
	}

	return errs
}

// ValidationError is returned by Submit when the form is rejected
type ValidationError struct {
	Fields ValidationErrors
}

func (e *ValidationError) Error() string {
	return "checkout form is invalid: " + strings.Join(e.Fields.Fields(), ", ")
}
