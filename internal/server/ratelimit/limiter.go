// Package ratelimit bounds how often a client may perform an operation.
package ratelimit

import "context"

// Limiter reports whether key may perform one more operation now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
