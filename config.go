package outdial

import "time"

// Config holds the engine-wide dispatch configuration. Per-campaign
// overrides for concurrency are applied through the governor at runtime.
type Config struct {
	// MaxConcurrentPerCampaign bounds simultaneous in-flight calls for a
	// single campaign run.
	MaxConcurrentPerCampaign int

	// MaxConcurrentGlobal bounds simultaneous in-flight calls across all
	// campaigns in the process. Zero means no global ceiling.
	MaxConcurrentGlobal int

	// DispatchRate is the maximum sustained call placements per second
	// released to the provider (token-bucket pacing). Zero disables pacing.
	DispatchRate float64

	// DispatchBurst is the burst size for the pacing token bucket.
	// Defaults to 1 if DispatchRate is set but DispatchBurst is zero.
	DispatchBurst int

	// MaxRetries is how many times a transient placement failure is
	// retried per contact. A contact is attempted at most MaxRetries+1 times.
	MaxRetries int

	// RetryBaseDelay is the first retry delay; subsequent retries double it.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the exponential retry delay.
	RetryMaxDelay time.Duration

	// FailureRateThreshold is the failed/total ratio above which a drained
	// campaign transitions to failed instead of completed.
	FailureRateThreshold float64

	// PlaceCallTimeout bounds a single provider placement request. A
	// placement that exceeds it is treated as a transient failure.
	PlaceCallTimeout time.Duration

	// PollInterval is how often a run loop re-checks the queue when no
	// work is ready or the governor denies a slot.
	PollInterval time.Duration

	// DegradedThreshold is the number of consecutive systemic failures
	// (store or provider fully unavailable) after which the run surfaces
	// a degraded status. Zero disables degraded detection.
	DegradedThreshold int

	// CheckpointEvery is the number of completed calls between execution
	// state checkpoints. Zero disables periodic checkpointing.
	CheckpointEvery int

	// ReconcileInterval is how often placed calls missing an end time are
	// reconciled against the provider. Zero disables reconciliation.
	ReconcileInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight calls
	// during graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerCampaign: 5,
		MaxConcurrentGlobal:      50,
		DispatchRate:             5,
		DispatchBurst:            1,
		MaxRetries:               3,
		RetryBaseDelay:           30 * time.Second,
		RetryMaxDelay:            10 * time.Minute,
		FailureRateThreshold:     0.5,
		PlaceCallTimeout:         30 * time.Second,
		PollInterval:             200 * time.Millisecond,
		DegradedThreshold:        5,
		CheckpointEvery:          10,
		ReconcileInterval:        30 * time.Second,
		ShutdownTimeout:          30 * time.Second,
	}
}
