package models

// DefaultPaymentMethod is preselected when a checkout opens
const DefaultPaymentMethod = "USDT TRC20 (min.$12)"

// PaymentMethods lists the accepted payment methods in display order
var PaymentMethods = []string{
	"USDT TRC20 (min.$12)",
	"Zcash (ZEC)",
	"Bitcoin cash (BCH)",
	"Tron (TRX)",
	"Litecoin (LTC)",
	"Etherium (ETH network) +1.33$",
	"BNB (BEP 20, BSC network)",
	"BUSD (BEP20, BSC network)",
	"BUSD (ERC20, ETH network)",
	"USDT ERC20 +2.09$ (min.$1.5)",
	"USDC ERC20 +1.69$ (min.$1.5)",
	"Other crypto-currencies",
	"Bitcoin (BTC) +1$ (min.$34)",
	"Capitalist",
	"AdvCash USD",
}

// IsPaymentMethod reports whether method is one of PaymentMethods
func IsPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// CheckoutForm is the buyer-editable state of a checkout
type CheckoutForm struct {
	Email               string `json:"email"`
	Quantity            int    `json:"quantity"`
	PaymentMethod       string `json:"payment_method"`
	CouponCode          string `json:"coupon_code"`
	AgreeTerms          bool   `json:"agree_terms"`
	SubscribeNewsletter bool   `json:"subscribe_newsletter"`
}

// DefaultCheckoutForm returns the form as it looks when a checkout opens
func DefaultCheckoutForm() CheckoutForm {
	return CheckoutForm{
		Quantity:      1,
		PaymentMethod: DefaultPaymentMethod,
	}
}

// FormPatch carries a partial form edit; nil fields are left untouched
type FormPatch struct {
	Email               *string `json:"email,omitempty"`
	Quantity            *int    `json:"quantity,omitempty"`
	PaymentMethod       *string `json:"payment_method,omitempty"`
	CouponCode          *string `json:"coupon_code,omitempty"`
	AgreeTerms          *bool   `json:"agree_terms,omitempty"`
	SubscribeNewsletter *bool   `json:"subscribe_newsletter,omitempty"`
	VendorID            *int64  `json:"vendor_id,omitempty"`
}
