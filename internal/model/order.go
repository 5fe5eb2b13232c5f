package model

import "github.com/shopspring/decimal"

// Order is issued by the payment backend and is the only source of the charged amount.
type Order struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"` // minor units
	Currency    string `json:"currency"`
	ModuleCount int    `json:"module_count"`
}

// MajorAmount converts the minor-unit amount back to major units (paise -> rupees).
func (o Order) MajorAmount() decimal.Decimal {
	return decimal.New(o.Amount, -2)
}

type VerificationResult struct {
	Verified bool `json:"verified"`
}
