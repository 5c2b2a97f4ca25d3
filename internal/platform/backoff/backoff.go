// Package backoff provides the shared exponential retry schedule used by
// reconnecting loops across the worker runtime.
package backoff

import (
	"context"
	"time"
)

// DefaultBase is the starting delay when a schedule does not set one.
const DefaultBase = time.Second

// Schedule computes exponential retry delays: Base, 2*Base, 4*Base, and so
// on. A positive Max caps the delay; a zero Max leaves it unbounded.
type Schedule struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry number attempt, counted from 1.
// Attempts below 1 are treated as the first retry.
func (s Schedule) Delay(attempt int) time.Duration {
	base := s.Base
	if base <= 0 {
		base = DefaultBase
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		next := delay * 2
		if next <= delay {
			break
		}
		delay = next
		if s.Max > 0 && delay >= s.Max {
			return s.Max
		}
	}
	if s.Max > 0 && delay > s.Max {
		return s.Max
	}
	return delay
}

// Wait blocks for delay or until ctx ends, reporting whether the full delay
// elapsed.
func Wait(ctx context.Context, delay time.Duration) bool {
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	if ctx == nil {
		<-timer.C
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
