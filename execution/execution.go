// Package execution runs one campaign from start to drain. An Execution
// owns the campaign's contact queue and dispatch loop: it dequeues
// contacts, places calls through the dialer under governor admission, and
// reacts to outcomes — retrying transient failures with backoff, counting
// terminal results, and finishing the campaign when the queue drains.
//
// Counters hold two invariants for the life of a run:
//
//	Completed + Queued + Inflight == Total
//	Completed == Succeeded + Failed
package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/hook"
	"github.com/xraph/outdial/id"
	"github.com/xraph/outdial/queue"
	"github.com/xraph/outdial/retry"
)

// Status is the runtime state of an execution.
type Status string

const (
	// StatusRunning means the dispatch loop is releasing new calls.
	StatusRunning Status = "running"
	// StatusPaused means the loop is idling; in-flight calls finish.
	StatusPaused Status = "paused"
	// StatusDegraded means consecutive systemic failures stopped new
	// dispatch; an operator resume or a successful in-flight completion
	// clears it.
	StatusDegraded Status = "degraded"
	// StatusCompleted means the run drained within the failure-rate
	// threshold.
	StatusCompleted Status = "completed"
	// StatusFailed means the run drained but exceeded the threshold.
	StatusFailed Status = "failed"
	// StatusCancelled means the run was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Counters tracks a run's contact accounting.
type Counters struct {
	// Total is the number of contacts this run set out to call.
	Total int64 `json:"total"`
	// Queued is the number of contacts awaiting dispatch, including
	// delayed retry re-entries.
	Queued int64 `json:"queued"`
	// Inflight is the number of calls currently being placed.
	Inflight int64 `json:"inflight"`
	// Completed is the number of contacts with a final disposition.
	Completed int64 `json:"completed"`
	// Succeeded is the number of completed contacts whose call was placed.
	Succeeded int64 `json:"succeeded"`
	// Failed is the number of completed contacts that failed permanently
	// or exhausted their retry budget.
	Failed int64 `json:"failed"`
}

// Snapshot is a point-in-time view of an execution, used for status
// reads and checkpoints.
type Snapshot struct {
	ExecutionID id.ExecutionID `json:"execution_id"`
	CampaignID  id.CampaignID  `json:"campaign_id"`
	Status      Status         `json:"status"`
	Counters    Counters       `json:"counters"`

	// ConsecutiveSystemicFailures counts back-to-back infrastructure
	// errors (store writes, never call outcomes) toward degradation.
	ConsecutiveSystemicFailures int `json:"consecutive_systemic_failures"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressPercent returns completed contacts as a percentage of total.
func (s Snapshot) ProgressPercent() float64 {
	if s.Counters.Total == 0 {
		return 0
	}
	return float64(s.Counters.Completed) / float64(s.Counters.Total) * 100
}

// Checkpointer persists execution snapshots so a restarted process can
// report progress before the store-derived rebuild completes.
type Checkpointer interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, campaignID id.CampaignID) (*Snapshot, error)
	Delete(ctx context.Context, campaignID id.CampaignID) error
}

// NopCheckpointer discards snapshots. Load always reports not found.
type NopCheckpointer struct{}

func (NopCheckpointer) Save(context.Context, *Snapshot) error { return nil }
func (NopCheckpointer) Load(context.Context, id.CampaignID) (*Snapshot, error) {
	return nil, outdial.ErrExecutionNotFound
}
func (NopCheckpointer) Delete(context.Context, id.CampaignID) error { return nil }

// Dialer places one call and records it as an attempt row. A non-nil
// error means a systemic failure, not a call outcome.
type Dialer interface {
	Dial(ctx context.Context, c *campaign.Campaign, agent *campaign.Agent, contact *campaign.Contact, attemptNumber int) (*attempt.CallAttempt, error)
}

// Governor admits call placements against concurrency ceilings and pacing.
// The execution calls Acquire before placing and Release when the call
// slot frees.
type Governor interface {
	Acquire(campaignID id.CampaignID) bool
	Release(campaignID id.CampaignID)
}

// Params carries the dependencies and seed state for one execution.
type Params struct {
	Campaign *campaign.Campaign
	Agent    *campaign.Agent

	// ExecutionID, when set, continues a persisted run's identity so its
	// attempt rows stay in scope. Zero mints a fresh run.
	ExecutionID id.ExecutionID

	// Contacts are the run's eligible contacts in dial order.
	Contacts []*campaign.Contact

	// Queue, when non-nil, replaces the queue built from Contacts. Crash
	// recovery seeds it with per-contact attempt numbers.
	Queue *queue.ContactQueue

	// Counters, when non-zero, seed the run's accounting. Crash recovery
	// rebuilds them from attempt rows.
	Counters Counters

	// StartPaused begins the run idle. Recovery uses it for campaigns
	// persisted as paused.
	StartPaused bool

	Dialer       Dialer
	Governor     Governor
	Retry        *retry.Coordinator
	Hooks        *hook.Registry
	Checkpointer Checkpointer
	Campaigns    campaign.Store
	Logger       *slog.Logger

	PollInterval         time.Duration
	FailureRateThreshold float64
	DegradedThreshold    int
	CheckpointEvery      int
}

// Execution is one live campaign run.
type Execution struct {
	id       id.ExecutionID
	campaign *campaign.Campaign
	agent    *campaign.Agent
	contacts map[id.ContactID]*campaign.Contact

	queue        *queue.ContactQueue
	dialer       Dialer
	governor     Governor
	retry        *retry.Coordinator
	hooks        *hook.Registry
	checkpointer Checkpointer
	campaigns    campaign.Store
	logger       *slog.Logger

	pollInterval         time.Duration
	failureRateThreshold float64
	degradedThreshold    int
	checkpointEvery      int

	startedAt time.Time

	mu                  sync.Mutex
	status              Status
	counters            Counters
	consecutiveSystemic int
	sinceCheckpoint     int
	finished            bool

	// cpMu orders checkpoint saves against finish's delete, so a call
	// landing after finish cannot re-save a deleted snapshot.
	cpMu sync.Mutex

	stopCh chan struct{}
	doneCh chan struct{}
	loopWG sync.WaitGroup
	callWG sync.WaitGroup

	// onDone is called once when the run reaches a terminal status,
	// after persistence. The registry uses it to evict the execution.
	onDone func(campaignID id.CampaignID)
}

// New creates an Execution. It does not start dispatching; call Start.
func New(p Params) *Execution {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	checkpointer := p.Checkpointer
	if checkpointer == nil {
		checkpointer = NopCheckpointer{}
	}

	contacts := make(map[id.ContactID]*campaign.Contact, len(p.Contacts))
	for _, c := range p.Contacts {
		contacts[c.ID] = c
	}

	q := p.Queue
	counters := p.Counters
	if q == nil {
		ids := make([]id.ContactID, 0, len(p.Contacts))
		for _, c := range p.Contacts {
			ids = append(ids, c.ID)
		}
		q = queue.New(ids...)
	}
	if counters == (Counters{}) {
		n := int64(len(p.Contacts))
		counters = Counters{Total: n, Queued: n}
	}

	pollInterval := p.PollInterval
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}

	status := StatusRunning
	if p.StartPaused {
		status = StatusPaused
	}

	execID := p.ExecutionID
	if execID.IsNil() {
		execID = id.NewExecutionID()
	}

	return &Execution{
		id:                   execID,
		campaign:             p.Campaign,
		agent:                p.Agent,
		contacts:             contacts,
		queue:                q,
		dialer:               p.Dialer,
		governor:             p.Governor,
		retry:                p.Retry,
		hooks:                p.Hooks,
		checkpointer:         checkpointer,
		campaigns:            p.Campaigns,
		logger:               logger,
		pollInterval:         pollInterval,
		failureRateThreshold: p.FailureRateThreshold,
		degradedThreshold:    p.DegradedThreshold,
		checkpointEvery:      p.CheckpointEvery,
		startedAt:            time.Now().UTC(),
		status:               status,
		counters:             counters,
		stopCh:               make(chan struct{}),
		doneCh:               make(chan struct{}),
	}
}

// ID returns the execution's unique identifier.
func (e *Execution) ID() id.ExecutionID { return e.id }

// CampaignID returns the campaign this execution runs.
func (e *Execution) CampaignID() id.CampaignID { return e.campaign.ID }

// Start launches the dispatch loop. It returns immediately.
func (e *Execution) Start() {
	e.loopWG.Add(1)
	go e.dispatchLoop()
	e.logger.Info("execution started",
		slog.String("execution_id", e.id.String()),
		slog.String("campaign_id", e.campaign.ID.String()),
		slog.Int64("contacts", e.Snapshot().Counters.Queued),
	)
}

// SetOnDone registers the callback invoked once the run reaches a
// terminal status. Must be called before Start.
func (e *Execution) SetOnDone(fn func(campaignID id.CampaignID)) { e.onDone = fn }

// Done returns a channel closed when the run reaches a terminal status.
func (e *Execution) Done() <-chan struct{} { return e.doneCh }

// Status returns the current runtime status.
func (e *Execution) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot returns a point-in-time view of the run.
func (e *Execution) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Execution) snapshotLocked() Snapshot {
	return Snapshot{
		ExecutionID:                 e.id,
		CampaignID:                  e.campaign.ID,
		Status:                      e.status,
		Counters:                    e.counters,
		ConsecutiveSystemicFailures: e.consecutiveSystemic,
		StartedAt:                   e.startedAt,
		UpdatedAt:                   time.Now().UTC(),
	}
}

// Pause stops releasing new calls. In-flight calls run to completion.
func (e *Execution) Pause(ctx context.Context) error {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return outdial.ErrNotRunning
	}
	e.status = StatusPaused
	e.mu.Unlock()

	if err := e.persistCampaignStatus(ctx, campaign.StatusPaused); err != nil {
		return err
	}
	snap := e.Snapshot()
	e.saveCheckpoint(ctx, &snap)
	e.hooks.EmitCampaignPaused(ctx, e.campaign.ID)
	e.logger.Info("execution paused", slog.String("campaign_id", e.campaign.ID.String()))
	return nil
}

// Resume restarts dispatch after a pause or degradation. The systemic
// failure streak resets.
func (e *Execution) Resume(ctx context.Context) error {
	e.mu.Lock()
	if e.status != StatusPaused && e.status != StatusDegraded {
		e.mu.Unlock()
		return outdial.ErrNotPaused
	}
	e.status = StatusRunning
	e.consecutiveSystemic = 0
	e.mu.Unlock()

	if err := e.persistCampaignStatus(ctx, campaign.StatusRunning); err != nil {
		return err
	}
	e.hooks.EmitCampaignResumed(ctx, e.campaign.ID)
	e.logger.Info("execution resumed", slog.String("campaign_id", e.campaign.ID.String()))
	return nil
}

// Cancel terminates the run. No new calls dispatch; in-flight calls run
// to completion but the run's terminal status is already cancelled.
func (e *Execution) Cancel(ctx context.Context) error {
	e.mu.Lock()
	if e.status.Terminal() {
		e.mu.Unlock()
		return outdial.ErrInvalidTransition
	}
	e.mu.Unlock()

	e.finish(ctx, StatusCancelled)
	return nil
}

// Stop halts the dispatch loop without finishing the run: the campaign
// stays running in the store so a later ResumeActive can rebuild it.
// In-flight calls are waited for until ctx expires.
func (e *Execution) Stop(ctx context.Context) {
	select {
	case <-e.stopCh:
		return
	default:
		close(e.stopCh)
	}

	done := make(chan struct{})
	go func() {
		e.loopWG.Wait()
		e.callWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("execution shutdown timed out with calls in flight",
			slog.String("campaign_id", e.campaign.ID.String()),
		)
	}
}

// ──────────────────────────────────────────────────
// Dispatch loop
// ──────────────────────────────────────────────────

func (e *Execution) dispatchLoop() {
	defer e.loopWG.Done()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		switch e.Status() {
		case StatusPaused, StatusDegraded:
			e.sleep()
			continue
		case StatusCompleted, StatusFailed, StatusCancelled:
			return
		}

		entry, ok := e.queue.Dequeue()
		if !ok {
			if e.drained() {
				e.finish(context.Background(), e.finalStatus())
				return
			}
			e.sleep()
			continue
		}

		if !e.governor.Acquire(e.campaign.ID) {
			// No slot or no pacer token; return the contact to the head
			// so a denial does not reorder the run.
			e.queue.PushFront(entry)
			e.sleep()
			continue
		}

		e.mu.Lock()
		e.counters.Queued--
		e.counters.Inflight++
		e.mu.Unlock()

		e.callWG.Add(1)
		go e.place(entry)
	}
}

// place runs one call attempt and applies its outcome to the run.
func (e *Execution) place(entry queue.Entry) {
	defer e.callWG.Done()
	defer e.governor.Release(e.campaign.ID)

	ctx := context.Background()
	contact := e.contacts[entry.ContactID]

	a, err := e.dialer.Dial(ctx, e.campaign, e.agent, contact, entry.AttemptNumber)
	if err != nil {
		e.recordSystemicFailure(ctx, entry)
		return
	}

	// A completed placement clears the systemic streak; an in-flight call
	// landing during degradation recovers the run without operator action.
	e.mu.Lock()
	e.consecutiveSystemic = 0
	recovered := e.status == StatusDegraded
	if recovered {
		e.status = StatusRunning
	}
	e.mu.Unlock()
	if recovered {
		e.logger.Info("execution recovered from degraded state",
			slog.String("campaign_id", e.campaign.ID.String()),
		)
	}

	decision := e.retry.Decide(a.Outcome, a.AttemptNumber)
	if decision.Retry {
		readyAt := time.Now().UTC().Add(decision.Delay)
		e.queue.Requeue(entry.ContactID, decision.NextAttempt, decision.Delay)
		e.hooks.EmitCallRetrying(ctx, a, decision.NextAttempt, readyAt)

		e.mu.Lock()
		e.counters.Inflight--
		e.counters.Queued++
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	e.counters.Inflight--
	e.counters.Completed++
	if a.Outcome == attempt.OutcomeSucceeded {
		e.counters.Succeeded++
	} else {
		e.counters.Failed++
	}
	e.sinceCheckpoint++
	// A late-completing call must not re-save a snapshot that finish
	// already deleted.
	checkpoint := e.checkpointEvery > 0 && e.sinceCheckpoint >= e.checkpointEvery && !e.finished
	if checkpoint {
		e.sinceCheckpoint = 0
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if checkpoint {
		e.saveCheckpoint(ctx, &snap)
	}
}

// saveCheckpoint persists a snapshot unless the run already finished.
// Holding cpMu keeps the save ordered before finish's delete.
func (e *Execution) saveCheckpoint(ctx context.Context, snap *Snapshot) {
	e.cpMu.Lock()
	defer e.cpMu.Unlock()

	e.mu.Lock()
	finished := e.finished
	e.mu.Unlock()
	if finished {
		return
	}

	if err := e.checkpointer.Save(ctx, snap); err != nil {
		e.logger.Warn("checkpoint save failed",
			slog.String("campaign_id", e.campaign.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// recordSystemicFailure handles an infrastructure error during placement.
// The contact keeps its attempt number and re-enters the queue; the
// failure streak counts toward degradation.
func (e *Execution) recordSystemicFailure(ctx context.Context, entry queue.Entry) {
	e.queue.Requeue(entry.ContactID, entry.AttemptNumber, e.pollInterval)

	e.mu.Lock()
	e.counters.Inflight--
	e.counters.Queued++
	e.consecutiveSystemic++
	streak := e.consecutiveSystemic
	degrade := e.degradedThreshold > 0 && streak >= e.degradedThreshold && e.status == StatusRunning
	if degrade {
		e.status = StatusDegraded
	}
	e.mu.Unlock()

	if degrade {
		e.hooks.EmitCampaignDegraded(ctx, e.campaign.ID, streak)
		e.logger.Error("execution degraded after consecutive systemic failures",
			slog.String("campaign_id", e.campaign.ID.String()),
			slog.Int("consecutive_failures", streak),
		)
	}
}

// drained reports whether no work remains: the queue is empty (including
// delayed retries) and no calls are in flight.
func (e *Execution) drained() bool {
	e.mu.Lock()
	inflight := e.counters.Inflight
	e.mu.Unlock()
	return inflight == 0 && e.queue.Len() == 0
}

// finalStatus applies the completion policy: the run fails when the
// failed share of completed contacts exceeds the threshold.
func (e *Execution) finalStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.counters.Completed == 0 {
		return StatusCompleted
	}
	rate := float64(e.counters.Failed) / float64(e.counters.Completed)
	if e.failureRateThreshold > 0 && rate > e.failureRateThreshold {
		return StatusFailed
	}
	return StatusCompleted
}

// finish moves the run to a terminal status exactly once, persists the
// campaign, and notifies hooks and the registry.
func (e *Execution) finish(ctx context.Context, status Status) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.finished = true
	e.status = status
	e.mu.Unlock()

	campaignStatus := map[Status]campaign.Status{
		StatusCompleted: campaign.StatusCompleted,
		StatusFailed:    campaign.StatusFailed,
		StatusCancelled: campaign.StatusCancelled,
	}[status]

	now := time.Now().UTC()
	e.campaign.Status = campaignStatus
	e.campaign.CompletedAt = &now
	e.campaign.Touch()
	if err := e.campaigns.UpdateCampaign(ctx, e.campaign); err != nil {
		e.logger.Error("failed to persist terminal campaign status",
			slog.String("campaign_id", e.campaign.ID.String()),
			slog.String("status", string(campaignStatus)),
			slog.String("error", err.Error()),
		)
	}

	e.cpMu.Lock()
	if err := e.checkpointer.Delete(ctx, e.campaign.ID); err != nil {
		e.logger.Warn("checkpoint delete failed",
			slog.String("campaign_id", e.campaign.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	e.cpMu.Unlock()

	e.hooks.EmitCampaignFinished(ctx, e.campaign.ID, campaignStatus, now.Sub(e.startedAt))
	e.logger.Info("execution finished",
		slog.String("campaign_id", e.campaign.ID.String()),
		slog.String("status", string(status)),
		slog.Duration("elapsed", now.Sub(e.startedAt)),
	)

	if e.onDone != nil {
		e.onDone(e.campaign.ID)
	}
	close(e.doneCh)
}

func (e *Execution) persistCampaignStatus(ctx context.Context, status campaign.Status) error {
	e.campaign.Status = status
	e.campaign.Touch()
	return e.campaigns.UpdateCampaign(ctx, e.campaign)
}

func (e *Execution) sleep() {
	select {
	case <-time.After(e.pollInterval):
	case <-e.stopCh:
	}
}
