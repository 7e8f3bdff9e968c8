package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_StopsEarlyWhenDone(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		return attempt == 2, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	notVisible := errors.New("not visible yet")
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		assert.Equal(t, calls, attempt)
		return false, notVisible
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, notVisible, err)
}

func TestDo_ReturnsFinalAttemptError(t *testing.T) {
	err := Do(context.Background(), 2, time.Millisecond, func(attempt int) (bool, error) {
		if attempt == 1 {
			return false, errors.New("first")
		}
		return false, nil
	})

	assert.NoError(t, err)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, 3, time.Second, func(attempt int) (bool, error) {
		calls++
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
