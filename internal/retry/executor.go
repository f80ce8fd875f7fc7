package retry

import (
	"context"
	"time"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Operation is one attempt of a retried action. attempt is 0 for the
// initial call and counts up with every retry.
type Operation func(ctx context.Context, attempt int) error

// Executor runs operations with backoff between transient failures.
// WithOnRetry returns a copy, so a shared Executor is never mutated.
type Executor struct {
	classifier fsload.ErrorClassifier
	strategy   fsload.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor with the given configuration.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier fsload.ErrorClassifier, strategy fsload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a new Executor that calls callback before each wait.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// IsTransient reports whether err would be retried.
func (e *Executor) IsTransient(err error) bool {
	return e.classifier.IsTransient(err)
}

// Execute runs op until it succeeds, fails fatally, the context ends or
// the strategy's attempts are used up. It returns the last error.
func (e *Executor) Execute(ctx context.Context, op Operation) error {
	err := op(ctx, 0)
	maxRetries := e.strategy.MaxAttempts()

	for retry := 0; err != nil && e.classifier.IsTransient(err); retry++ {
		if maxRetries >= 0 && retry >= maxRetries {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(retry)
		if e.onRetry != nil {
			e.onRetry(retry, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = op(ctx, retry+1)
	}
	return err
}
