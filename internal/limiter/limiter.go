// Package limiter throttles login attempts per account and source address.
package limiter

import (
	"context"
	"time"
)

// Limiter gates login attempts. Allow is consulted before checking
// credentials; Success and Failure report the outcome back so the
// failure window can advance or reset.
type Limiter interface {
	Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
	Success(ctx context.Context, username string, ipHash []byte) error
	Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
}
