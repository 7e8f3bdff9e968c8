package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"rentpay-workers/internal/common/logger"
)

type stubSettings struct {
	status string
	err    error
}

func (s *stubSettings) SystemStatus(context.Context) (string, error) {
	return s.status, s.err
}

func TestAmountPolicy_IsTestMode(t *testing.T) {
	tests := []struct {
		name     string
		settings stubSettings
		want     bool
	}{
		{name: "status zero means test mode", settings: stubSettings{status: "0"}, want: true},
		{name: "status one means live", settings: stubSettings{status: "1"}, want: false},
		{name: "read failure degrades to test mode", settings: stubSettings{err: errors.New("conn refused")}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewAmountPolicy(&tt.settings, logger.NewTestLogger(t))
			assert.Equal(t, tt.want, policy.IsTestMode(context.Background()))
		})
	}
}

func TestApplyCap(t *testing.T) {
	rent := decimal.RequireFromString("8500.00")

	t.Run("test mode caps above limit", func(t *testing.T) {
		assert.True(t, ApplyCap(rent, true).Equal(TestModeCap))
	})

	t.Run("test mode keeps small amounts", func(t *testing.T) {
		small := decimal.RequireFromString("99.99")
		assert.True(t, ApplyCap(small, true).Equal(small))
	})

	t.Run("test mode keeps exact cap", func(t *testing.T) {
		assert.True(t, ApplyCap(TestModeCap, true).Equal(TestModeCap))
	})

	t.Run("live mode passes through", func(t *testing.T) {
		assert.True(t, ApplyCap(rent, false).Equal(rent))
	})
}
