package models

import "github.com/shopspring/decimal"

// Property is the rental unit an approved application refers to.
type Property struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	MonthlyRent decimal.Decimal `json:"monthlyRent"`
}

// Code returns the human-assigned code the payment-collection service keys
// properties by.
func (p Property) Code() string {
	return "PROP-" + p.ID
}
