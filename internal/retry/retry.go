package retry

import "time"

const (
	// MaxRetries is the shared retry ceiling for every vendor. The fifth
	// consecutive failure escalates to a terminal error.
	MaxRetries = 5

	// HeartbeatInterval is how long a connection sits idle before a
	// liveness probe is sent.
	HeartbeatInterval = 30 * time.Second

	baseDelay = 1000 * time.Millisecond
	maxDelay  = 8000 * time.Millisecond
)

// Delay returns the backoff delay before re-entering connecting:
// min(1000 * 2^retryCount, 8000) milliseconds.
func Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := baseDelay
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}
