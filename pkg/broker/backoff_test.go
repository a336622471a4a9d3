package broker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("nope")
		}
		return nil
	})
	require.Nil(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("fail %d", calls)
	})
	require.NotNil(t, err)
	assert.Equal(t, "fail 3", err.Error())
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, 10, time.Minute, time.Minute, func() error {
		calls++
		return fmt.Errorf("nope")
	})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, calls)
}
