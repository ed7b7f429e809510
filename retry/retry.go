// Package retry decides what happens after a call attempt fails: whether
// the contact re-enters the queue with a backoff delay or is finalized.
package retry

import (
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/backoff"
)

// Decision is the coordinator's verdict for one failed attempt.
type Decision struct {
	// Retry is true when the contact should re-enter the queue.
	Retry bool

	// Delay is how long to wait before the next attempt. Meaningful only
	// when Retry is true.
	Delay time.Duration

	// NextAttempt is the attempt number the retry will carry. Meaningful
	// only when Retry is true.
	NextAttempt int
}

// Coordinator applies the retry policy: transient failures retry with
// backoff until the attempt budget is exhausted, permanent failures never
// retry. A contact receives at most maxRetries+1 total attempts.
type Coordinator struct {
	maxRetries int
	strategy   backoff.Strategy
}

// NewCoordinator creates a Coordinator. maxRetries is the number of
// retries after the initial attempt; negative values are treated as zero.
func NewCoordinator(maxRetries int, strategy backoff.Strategy) *Coordinator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if strategy == nil {
		strategy = backoff.DefaultStrategy()
	}
	return &Coordinator{maxRetries: maxRetries, strategy: strategy}
}

// MaxAttempts returns the total attempt budget per contact.
func (c *Coordinator) MaxAttempts() int {
	return c.maxRetries + 1
}

// Decide returns the verdict for an attempt that ended with the given
// outcome. attemptNumber is 1-based. Terminal-success and permanent
// outcomes never retry; transient outcomes retry while attempts remain,
// with the delay computed from the retry ordinal (retry n waits
// base*2^(n-1) under the default exponential strategy).
func (c *Coordinator) Decide(outcome attempt.Outcome, attemptNumber int) Decision {
	if !outcome.Retryable() {
		return Decision{}
	}
	if attemptNumber >= c.MaxAttempts() {
		return Decision{}
	}
	return Decision{
		Retry:       true,
		Delay:       c.strategy.Delay(attemptNumber),
		NextAttempt: attemptNumber + 1,
	}
}
