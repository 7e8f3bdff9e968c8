package paycollect

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Outcome is the uniform result of one payment-collection call. Transport
// failures and non-2xx responses both land here with Success=false; the
// orchestrator decides what is fatal.
type Outcome struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Errors  interface{}            `json:"errors,omitempty"`
}

// DataString returns the first non-empty value among keys, stringified.
// JSON numbers arrive as float64; identifiers echoed that way are rendered
// without a decimal part.
func (o *Outcome) DataString(keys ...string) string {
	if o == nil || o.Data == nil {
		return ""
	}
	for _, key := range keys {
		switch v := o.Data[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

// StudentRegistration is the register-student request body.
type StudentRegistration struct {
	StudentID     string `json:"student_id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	IDNumber      string `json:"id_number"`
	IDType        string `json:"id_type"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	BankID        string `json:"bank_id"`
}

// PropertyRegistration is the register-property request body.
type PropertyRegistration struct {
	PropertyCode string          `json:"property_code"`
	PropertyName string          `json:"property_name"`
	Address      string          `json:"address"`
	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
}

// MandateRegistration is the register-mandate request body.
type MandateRegistration struct {
	StudentID        string          `json:"student_id"`
	PropertyID       string          `json:"property_id"`
	MonthlyRent      decimal.Decimal `json:"monthly_rent"`
	StartDate        string          `json:"start_date"` // YYYYMMDD
	FrequencyCode    string          `json:"frequency_code"`
	NoOfInstallments int             `json:"no_of_installments"`
	TrackingDays     int             `json:"tracking_days"`
	MagID            string          `json:"mag_id"`
}
