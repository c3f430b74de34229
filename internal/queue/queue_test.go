package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errItem = errors.New("item failed")

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"sequential", Policy{Delay: time.Second, Concurrency: 1}, false},
		{"no delay", Policy{Concurrency: 1}, false},
		{"parallel", Policy{Delay: time.Second, Concurrency: 2}, true},
		{"zero workers", Policy{}, true},
		{"negative delay", Policy{Delay: -time.Second, Concurrency: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() = %v", err)
		})
	}
}

func TestRun_DelayBetweenItemsOnly(t *testing.T) {
	q, err := New[string](Policy{Delay: 2 * time.Second, Concurrency: 1})
	require.NoError(t, err)

	var (
		sleeps []time.Duration
		order  []string
	)

	q.WithSleep(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		order = append(order, "sleep")
		return nil
	})

	summary, err := q.Run(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, item string) error {
		order = append(order, item)
		if item == "b" {
			return errItem
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "sleep", "b", "sleep", "c"}, order)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps)
	assert.Equal(t, Summary{Succeeded: 2, Failed: 1}, summary)
	assert.Equal(t, 3, summary.Total())
}

func TestRun_CancelledDuringDelay(t *testing.T) {
	q, err := New[int](Policy{Delay: time.Hour, Concurrency: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	var handled []int

	summary, err := q.Run(ctx, []int{1, 2, 3}, func(_ context.Context, item int) error {
		handled = append(handled, item)
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []int{1}, handled)
	assert.Equal(t, Summary{Succeeded: 1, Skipped: 2}, summary)
}

func TestRun_Empty(t *testing.T) {
	q, err := New[int](Policy{Concurrency: 1})
	require.NoError(t, err)

	summary, err := q.Run(context.Background(), nil, func(context.Context, int) error {
		t.Fatal("handler must not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Total())
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
