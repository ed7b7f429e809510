// Package reconcile backfills call results the dispatcher could not know
// at placement time. A successfully placed call runs at the provider
// asynchronously; its end time and duration only exist provider-side
// until the reconciler polls them back into the attempt rows.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/provider"
)

const (
	defaultInterval  = 30 * time.Second
	defaultBatchSize = 50
)

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithInterval sets how often the reconciler polls the provider.
func WithInterval(interval time.Duration) Option {
	return func(r *Reconciler) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithBatchSize caps how many attempts one sweep examines.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// Reconciler periodically sweeps succeeded attempts that have a provider
// call ID but no end time, asks the provider for their status, and
// persists end time and duration once the call has ended.
type Reconciler struct {
	attempts attempt.Store
	contacts campaign.Store
	provider provider.Provider
	logger   *slog.Logger

	interval  time.Duration
	batchSize int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates a Reconciler.
func New(attempts attempt.Store, contacts campaign.Store, p provider.Provider, logger *slog.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		attempts:  attempts,
		contacts:  contacts,
		provider:  p,
		logger:    logger,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		stopCh:    make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start launches the sweep loop.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	r.wg.Add(1)
	go r.loop()
	r.logger.Info("reconciler started",
		slog.Duration("interval", r.interval),
		slog.Int("batch_size", r.batchSize),
	)
}

// Stop halts the sweep loop and waits for an in-progress sweep.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("reconciler stopped")
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if _, err := r.Sweep(context.Background()); err != nil {
				r.logger.Error("reconcile sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep runs one reconciliation pass and returns the number of attempts
// it finalized. Attempts whose calls are still running are left for the
// next sweep; per-attempt provider errors are logged and skipped so one
// bad call cannot stall the batch.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	pending, err := r.attempts.ListUnreconciled(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, a := range pending {
		select {
		case <-r.stopCh:
			return reconciled, nil
		default:
		}

		status, err := r.provider.GetCall(ctx, a.ProviderCallID)
		if err != nil {
			r.logger.Warn("call status lookup failed",
				slog.String("attempt_id", a.ID.String()),
				slog.String("provider_call_id", a.ProviderCallID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !status.Ended {
			continue
		}

		endedAt := status.EndedAt
		if endedAt == nil {
			now := time.Now().UTC()
			endedAt = &now
		}
		a.EndedAt = endedAt
		a.DurationSeconds = status.DurationSeconds
		a.Touch()
		if err := r.attempts.UpdateAttempt(ctx, a); err != nil {
			r.logger.Warn("attempt reconciliation write failed",
				slog.String("attempt_id", a.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if status.EndReason != "" {
			// Best effort; the attempt row is already reconciled.
			if err := r.contacts.UpdateContactResult(ctx, a.ContactID, status.EndReason); err != nil {
				r.logger.Warn("contact result update failed",
					slog.String("contact_id", a.ContactID.String()),
					slog.String("error", err.Error()),
				)
			}
		}
		reconciled++
	}

	if reconciled > 0 {
		r.logger.Info("reconciled call attempts",
			slog.Int("count", reconciled),
			slog.Int("examined", len(pending)),
		)
	}
	return reconciled, nil
}
