package saga

import (
	"github.com/shopspring/decimal"

	"rentpay-workers/internal/paycollect"
)

// StepResult captures one remote step's outcome, including the raw response
// data and error payload kept for the audit snapshot.
type StepResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Errors  interface{}            `json:"errors,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Result is the aggregate returned to the saga's caller. Success mirrors the
// mandate step: student and property registration alone do not complete the
// setup.
type Result struct {
	Success            bool            `json:"success"`
	ContractReference  string          `json:"contractReference,omitempty"`
	StudentExternalID  string          `json:"studentExternalId,omitempty"`
	PropertyExternalID string          `json:"propertyExternalId,omitempty"`
	StudentVerified    bool            `json:"studentVerified"`
	TestMode           bool            `json:"testMode"`
	AmountApplied      decimal.Decimal `json:"amountApplied"`
	MandateStatus      string          `json:"mandateStatus,omitempty"`
	Student            StepResult      `json:"student"`
	Property           StepResult      `json:"property"`
	Mandate            StepResult      `json:"mandate"`
}

// FailureMessage returns the most specific error captured across steps.
func (r *Result) FailureMessage() string {
	switch {
	case r.Mandate.Error != "":
		return r.Mandate.Error
	case r.Property.Error != "":
		return r.Property.Error
	case r.Student.Error != "":
		return r.Student.Error
	default:
		return "payment-collection setup failed"
	}
}

func stepFromOutcome(out *paycollect.Outcome) StepResult {
	return StepResult{
		Success: out.Success,
		Message: out.Message,
		Data:    out.Data,
		Errors:  out.Errors,
	}
}
