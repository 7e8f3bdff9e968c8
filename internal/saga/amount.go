package saga

import (
	"context"

	"github.com/shopspring/decimal"

	"rentpay-workers/internal/common/logger"
)

// TestModeCap is the maximum mandate amount the payment-processor sandbox
// accepts.
var TestModeCap = decimal.NewFromInt(100)

// SettingsReader reads the global settings record's system status flag.
type SettingsReader interface {
	SystemStatus(ctx context.Context) (string, error)
}

// AmountPolicy decides whether mandate amounts must be capped for a
// non-production environment.
type AmountPolicy struct {
	settings SettingsReader
	logger   logger.Logger
}

func NewAmountPolicy(settings SettingsReader, log logger.Logger) *AmountPolicy {
	return &AmountPolicy{settings: settings, logger: log}
}

// IsTestMode reports whether the system is pointed at the payment-processor
// sandbox. A failed settings read degrades to test mode: capping a live
// amount is recoverable, sending an uncapped amount to the sandbox is a
// guaranteed rejection.
func (p *AmountPolicy) IsTestMode(ctx context.Context) bool {
	status, err := p.settings.SystemStatus(ctx)
	if err != nil {
		p.logger.Warn("settings read failed, defaulting to test mode", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}
	return status == "0"
}

// ApplyCap caps the amount at TestModeCap when in test mode; live amounts
// pass through unchanged.
func ApplyCap(amount decimal.Decimal, testMode bool) decimal.Decimal {
	if testMode && amount.GreaterThan(TestModeCap) {
		return TestModeCap
	}
	return amount
}
