package live

import "time"

// RetryPolicy decides how long to wait before reopening a dropped socket.
// The attempt counter starts at 1 for the first retry and resets after a
// successful connection.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay retries at a constant interval. This matches the documented
// behavior of the dashboard; a backoff-with-jitter policy can be swapped in
// here without touching the connection code.
type FixedDelay time.Duration

// NextDelay returns the same delay for every attempt.
func (d FixedDelay) NextDelay(int) time.Duration {
	return time.Duration(d)
}
