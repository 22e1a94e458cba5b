// Package poll runs a function on a fixed interval until its context ends.
package poll

import (
	"context"
	"time"
)

// Run calls fn immediately and then once per interval until ctx is done.
// It returns ctx.Err().
func Run(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		// Check if we've been cancelled.
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
