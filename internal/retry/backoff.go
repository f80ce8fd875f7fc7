package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Jitter defaults. Load workers upload in parallel against the same bucket,
// so transfer retries spread wider than the journal's single connection.
const (
	TransferJitter = 0.2
	JournalJitter  = 0.1
)

// ExponentialBackoff spaces out retries of a failed job transfer or journal
// call. The wait before retry n is initialDelay * multiplier^n, capped at
// maxDelay and then spread by +/- jitter.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int // -1 unlimited, 0 no retries
	jitter       float64
	random       func() float64 // [0, 1); rand.Float64 when nil
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the relative spread of each delay, between 0 and 1.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithJitterFunc replaces the random source. Tests pass a constant.
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.random = f }
}

// NewExponentialBackoff returns a backoff allowing maxAttempts retries,
// starting at fsload.DefaultRetryInitialDelay and doubling up to
// fsload.DefaultRetryMaxDelay.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: fsload.DefaultRetryInitialDelay,
		maxDelay:     fsload.DefaultRetryMaxDelay,
		multiplier:   2,
		maxAttempts:  maxAttempts,
		jitter:       JournalJitter,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// TransferBackoff is the backoff between fresh jobs for one job file. A
// zero delay disables waiting, which tests rely on.
func TransferBackoff(maxRetries int, initialDelay, maxDelay time.Duration) *ExponentialBackoff {
	return NewExponentialBackoff(maxRetries,
		WithInitialDelay(initialDelay),
		WithMaxDelay(maxDelay),
		WithJitter(TransferJitter),
	)
}

// NextDelay returns the wait before retry attempt (0 for the first retry).
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))
	delay = math.Min(delay, float64(b.maxDelay))

	if b.jitter > 0 {
		random := b.random
		if random == nil {
			random = rand.Float64
		}
		delay *= 1 + b.jitter*(2*random()-1)
	}
	return time.Duration(math.Round(delay))
}

// Schedule lists the un-jittered waits of every retry. It is empty for an
// unlimited or retry-free backoff.
func (b *ExponentialBackoff) Schedule() []time.Duration {
	if b.maxAttempts <= 0 {
		return nil
	}
	plain := *b
	plain.jitter = 0
	out := make([]time.Duration, b.maxAttempts)
	for i := range out {
		out[i] = plain.NextDelay(i)
	}
	return out
}

func (b *ExponentialBackoff) MaxAttempts() int            { return b.maxAttempts }
func (b *ExponentialBackoff) InitialDelay() time.Duration { return b.initialDelay }
func (b *ExponentialBackoff) MaxDelay() time.Duration     { return b.maxDelay }
func (b *ExponentialBackoff) Jitter() float64             { return b.jitter }
