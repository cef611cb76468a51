package pipelinesvc

import (
	"time"
)

// NextDelay returns the backoff before the next attempt: the base delay
// doubled for every attempt already made, capped at max. attempt is the
// 1-based number of the attempt that just failed.
func NextDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	shift := uint(attempt - 1)
	if shift > 32 {
		return max
	}

	delay := base << shift
	if delay > max || delay < base {
		return max
	}

	return delay
}
