// Package queue processes items one at a time with a fixed pause between
// them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedConcurrency is returned for policies asking for parallel
// workers.
var ErrUnsupportedConcurrency = errors.New("only a concurrency of 1 is supported")

// Policy is the rate limit applied between items.
type Policy struct {
	Delay       time.Duration
	Concurrency int
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.Delay < 0 {
		return fmt.Errorf("invalid delay %s", p.Delay)
	}

	if p.Concurrency != 1 {
		return fmt.Errorf("%w: got %d", ErrUnsupportedConcurrency, p.Concurrency)
	}

	return nil
}

// Summary counts the outcome of one Run.
type Summary struct {
	Succeeded int
	Failed    int
	// Skipped items were never started because the context ended.
	Skipped int
}

// Total is the number of items handed to Run.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Queue runs a handler over items sequentially.
type Queue[T any] struct {
	policy Policy
	sleep  SleepFunc
}

// New creates a queue for the policy.
func New[T any](policy Policy) (*Queue[T], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Queue[T]{policy: policy, sleep: Sleep}, nil
}

// WithSleep replaces the wait between items (for testing).
func (q *Queue[T]) WithSleep(sleep SleepFunc) *Queue[T] {
	q.sleep = sleep
	return q
}

// Run calls handle for each item in order, waiting the policy delay between
// two items but not after the last. A failing item does not stop the run; a
// cancelled context does, and the remaining items count as skipped.
func (q *Queue[T]) Run(ctx context.Context, items []T, handle func(ctx context.Context, item T) error) (Summary, error) {
	var summary Summary

	for i, item := range items {
		if i > 0 && q.policy.Delay > 0 {
			if err := q.sleep(ctx, q.policy.Delay); err != nil {
				summary.Skipped = len(items) - i
				return summary, err
			}
		}

		if err := ctx.Err(); err != nil {
			summary.Skipped = len(items) - i
			return summary, err
		}

		if err := handle(ctx, item); err != nil {
			summary.Failed++
			continue
		}

		summary.Succeeded++
	}

	return summary, nil
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
