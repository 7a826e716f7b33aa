// Package ratelimit throttles API traffic with a sliding window per client.
// Public routes are keyed by client IP, authenticated routes by caller
// address. Counters live in Redis when configured so every replica shares
// them, and degrade to process memory while Redis is unavailable.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Class groups endpoints that share a budget.
type Class string

const (
	// ClassRead covers public queries.
	ClassRead Class = "read"
	// ClassWrite covers authenticated ledger mutations.
	ClassWrite Class = "write"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits returns the budgets used when nothing is configured.
func DefaultLimits() map[Class]Limit {
	return map[Class]Limit{
		ClassRead:  {Requests: 300, Window: time.Minute},
		ClassWrite: {Requests: 60, Window: time.Minute},
	}
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set in whole seconds when the request was denied.
	RetryAfter int
}

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

func ipKey(class Class, ip string) string {
	return fmt.Sprintf("ip:%s:%s", class, ip)
}

func callerKey(class Class, caller string) string {
	return fmt.Sprintf("caller:%s:%s", class, caller)
}

func retryAfter(resetAt, now time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if resetAt.Sub(now) > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
