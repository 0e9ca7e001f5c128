package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter adds random jitter to a duration to prevent thundering herd.
// The jitter is applied as a percentage of the base duration.
//
// Example: Jitter(time.Minute, 0.1) returns 54s-66s (±10%)
func Jitter(base time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return base
	}
	if fraction > 1 {
		fraction = 1
	}
	jitterRange := float64(base) * fraction
	jitter := (rand.Float64()*2 - 1) * jitterRange
	return base + time.Duration(jitter)
}

// JitteredTicker sends on the returned channel at independently jittered
// intervals until ctx is done, then closes it. Ticks are dropped when the
// receiver is still busy with the previous one.
func JitteredTicker(ctx context.Context, base time.Duration, fraction float64) <-chan time.Time {
	ch := make(chan time.Time, 1)

	go func() {
		defer close(ch)
		for {
			timer := time.NewTimer(Jitter(base, fraction))
			select {
			case t := <-timer.C:
				select {
				case ch <- t:
				default:
				}
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()

	return ch
}
