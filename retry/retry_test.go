package retry

import (
	"testing"
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/backoff"
)

func TestCoordinator_TransientRetriesUntilExhausted(t *testing.T) {
	c := NewCoordinator(3, backoff.NewExponential(30*time.Second, 10*time.Minute))

	if c.MaxAttempts() != 4 {
		t.Fatalf("MaxAttempts = %d, want 4", c.MaxAttempts())
	}

	wantDelays := []time.Duration{
		30 * time.Second,  // after attempt 1
		60 * time.Second,  // after attempt 2
		120 * time.Second, // after attempt 3
	}
	for i, want := range wantDelays {
		n := i + 1
		d := c.Decide(attempt.OutcomeFailedTransient, n)
		if !d.Retry {
			t.Fatalf("attempt %d: expected retry", n)
		}
		if d.Delay != want {
			t.Errorf("attempt %d: Delay = %v, want %v", n, d.Delay, want)
		}
		if d.NextAttempt != n+1 {
			t.Errorf("attempt %d: NextAttempt = %d, want %d", n, d.NextAttempt, n+1)
		}
	}

	// Fourth attempt is the last of the budget.
	if d := c.Decide(attempt.OutcomeFailedTransient, 4); d.Retry {
		t.Fatal("attempt 4 of 4: expected no retry")
	}
}

func TestCoordinator_PermanentNeverRetries(t *testing.T) {
	c := NewCoordinator(3, nil)
	if d := c.Decide(attempt.OutcomeFailedPermanent, 1); d.Retry {
		t.Fatal("permanent failure must not retry")
	}
}

func TestCoordinator_SuccessNeverRetries(t *testing.T) {
	c := NewCoordinator(3, nil)
	if d := c.Decide(attempt.OutcomeSucceeded, 1); d.Retry {
		t.Fatal("success must not retry")
	}
}

func TestCoordinator_ZeroRetries(t *testing.T) {
	c := NewCoordinator(0, nil)
	if c.MaxAttempts() != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", c.MaxAttempts())
	}
	if d := c.Decide(attempt.OutcomeFailedTransient, 1); d.Retry {
		t.Fatal("no retries configured: expected no retry")
	}
}

func TestCoordinator_NegativeRetriesClamped(t *testing.T) {
	c := NewCoordinator(-5, nil)
	if c.MaxAttempts() != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", c.MaxAttempts())
	}
}
