package supervisor

import "time"

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

// backoff tracks the supervisor's reconnect delay: doubling on each
// consecutive subscription failure, capped at maxBackoff, reset to
// initialBackoff only when a subscribe call returns cleanly.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: initialBackoff}
}

// next returns the delay to sleep before the next attempt and advances the
// internal counter, doubling clamped at maxBackoff.
func (b *backoff) next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > maxBackoff {
		b.current = maxBackoff
	}
	return d
}

// reset restores the backoff to its initial value, called after a clean
// subscribe.
func (b *backoff) reset() {
	b.current = initialBackoff
}
