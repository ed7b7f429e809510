// Package engine wires the outdial subsystems together: it builds the
// dialer with its middleware chain, the governor, the retry coordinator,
// the execution registry, the campaign scheduler, and the reconciler,
// and exposes the campaign control surface.
//
// This package exists to break the import cycle: the root outdial package
// defines Entity and Config (imported by campaign, attempt, etc.) and so
// cannot import those packages back. The engine package sits above all
// subsystem packages and below the application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/backoff"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/dialer"
	"github.com/xraph/outdial/execution"
	"github.com/xraph/outdial/governor"
	"github.com/xraph/outdial/hook"
	"github.com/xraph/outdial/id"
	mw "github.com/xraph/outdial/middleware"
	"github.com/xraph/outdial/observability"
	"github.com/xraph/outdial/provider"
	"github.com/xraph/outdial/queue"
	"github.com/xraph/outdial/reconcile"
	"github.com/xraph/outdial/retry"
	"github.com/xraph/outdial/schedule"
	"github.com/xraph/outdial/store"
)

// StartResult is the synchronous answer to a campaign start.
type StartResult struct {
	ExecutionID id.ExecutionID   `json:"execution_id"`
	Status      execution.Status `json:"status"`
}

// ExecutionStatus is the progress view of one campaign run.
type ExecutionStatus struct {
	CampaignID  id.CampaignID      `json:"campaign_id"`
	ExecutionID id.ExecutionID     `json:"execution_id,omitempty"`
	Status      execution.Status   `json:"status"`
	Counters    execution.Counters `json:"counters"`

	// ProgressPercentage is completed contacts over total, rounded to the
	// nearest whole percent. Zero when the run has no contacts.
	ProgressPercentage float64 `json:"progress_percentage"`

	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Stats aggregates the process-wide dispatch state.
type Stats struct {
	ActiveExecutions int               `json:"active_executions"`
	ActiveCalls      int               `json:"active_calls"`
	Executions       []ExecutionStatus `json:"executions"`
}

// Engine is the campaign dispatch engine.
type Engine struct {
	store    store.Store
	provider provider.Provider
	cfg      outdial.Config
	logger   *slog.Logger

	hooks        *hook.Registry
	governor     *governor.Governor
	dialer       *dialer.Dialer
	retry        *retry.Coordinator
	registry     *execution.Registry
	checkpointer execution.Checkpointer
	scheduler    *schedule.Scheduler
	reconciler   *reconcile.Reconciler

	bo   backoff.Strategy
	mws  []mw.Middleware
	hks  []hook.Hook
	reg  prometheus.Registerer
	useM bool

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the dispatch configuration. Defaults to
// outdial.DefaultConfig().
func WithConfig(cfg outdial.Config) Option {
	return func(eng *Engine) { eng.cfg = cfg }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = logger }
}

// WithBackoff sets the retry backoff strategy. If not set, the config's
// exponential schedule is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(eng *Engine) { eng.hks = append(eng.hks, h) }
}

// WithMiddleware appends middleware to the call placement chain, after
// the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithCheckpointer sets the execution snapshot store. Defaults to the
// nop checkpointer.
func WithCheckpointer(c execution.Checkpointer) Option {
	return func(eng *Engine) { eng.checkpointer = c }
}

// WithPrometheus registers the dispatch counters on the given registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(eng *Engine) {
		eng.reg = reg
		eng.useM = true
	}
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, the
// metrics middleware uses this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New creates an Engine on the given store and provider.
func New(st store.Store, p provider.Provider, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, outdial.ErrNoStore
	}

	eng := &Engine{
		store:    st,
		provider: p,
		cfg:      outdial.DefaultConfig(),
		logger:   slog.Default(),
		registry: execution.NewRegistry(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	eng.hooks = hook.NewRegistry(eng.logger)
	for _, h := range eng.hks {
		eng.hooks.Register(h)
	}
	if eng.useM {
		eng.hooks.Register(observability.NewMetricsHook(eng.reg))
	}

	if eng.bo == nil {
		if eng.cfg.RetryBaseDelay > 0 {
			eng.bo = backoff.NewExponential(eng.cfg.RetryBaseDelay, eng.cfg.RetryMaxDelay)
		} else {
			eng.bo = backoff.DefaultStrategy()
		}
	}
	eng.retry = retry.NewCoordinator(eng.cfg.MaxRetries, eng.bo)

	eng.governor = governor.New(governor.Config{
		MaxConcurrentPerCampaign: eng.cfg.MaxConcurrentPerCampaign,
		MaxConcurrentGlobal:      eng.cfg.MaxConcurrentGlobal,
		DispatchRate:             eng.cfg.DispatchRate,
		DispatchBurst:            eng.cfg.DispatchBurst,
	})

	if eng.checkpointer == nil {
		eng.checkpointer = execution.NopCheckpointer{}
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer("github.com/xraph/outdial"))
	} else {
		tracingMw = mw.Tracing()
	}
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter("github.com/xraph/outdial"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default placement stack: recover → tracing → metrics → logging → timeout.
	allMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.cfg.PlaceCallTimeout),
	}
	allMws = append(allMws, eng.mws...)

	eng.dialer = dialer.New(p, st, st, eng.hooks, eng.logger, allMws...)

	eng.scheduler = schedule.NewScheduler(st, schedule.StarterFunc(eng.scheduledStart), eng.logger)
	if eng.cfg.ReconcileInterval > 0 {
		eng.reconciler = reconcile.New(st, st, p, eng.logger,
			reconcile.WithInterval(eng.cfg.ReconcileInterval),
		)
	}

	return eng, nil
}

// Hooks returns the engine's hook registry for late registration.
func (eng *Engine) Hooks() *hook.Registry { return eng.hooks }

// Store returns the engine's persistence backend.
func (eng *Engine) Store() store.Store { return eng.store }

// Governor returns the concurrency governor, for per-campaign overrides.
func (eng *Engine) Governor() *governor.Governor { return eng.governor }

// ──────────────────────────────────────────────────
// Control surface
// ──────────────────────────────────────────────────

// StartCampaign begins a new run for the campaign. The campaign must be
// startable (draft or terminal), its agent active, and its contact list
// non-empty. The run executes asynchronously; the returned result only
// confirms admission.
func (eng *Engine) StartCampaign(ctx context.Context, campaignID id.CampaignID) (StartResult, error) {
	if _, err := eng.registry.Get(campaignID); err == nil {
		return StartResult{}, outdial.ErrExecutionExists
	}

	c, err := eng.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return StartResult{}, err
	}
	if !c.Status.Startable() {
		return StartResult{}, outdial.ErrCampaignNotStartable
	}

	agent, err := eng.store.GetAgent(ctx, c.AgentID)
	if err != nil {
		return StartResult{}, err
	}
	if !agent.Active {
		return StartResult{}, fmt.Errorf("agent %s is inactive: %w", agent.ID, outdial.ErrCampaignNotStartable)
	}

	contacts, err := eng.store.ListActiveContacts(ctx, c.ContactListID)
	if err != nil {
		return StartResult{}, err
	}
	if len(contacts) == 0 {
		return StartResult{}, outdial.ErrNoEligibleContacts
	}

	// A fresh run gets a fresh execution ID; attempt rows from earlier
	// runs of the same campaign stay out of its scope.
	c.ExecutionID = id.NewExecutionID()
	exec := execution.New(eng.executionParams(c, agent, contacts, nil, execution.Counters{}, false))
	if err := eng.registry.Add(exec); err != nil {
		return StartResult{}, err
	}

	now := time.Now().UTC()
	c.Status = campaign.StatusRunning
	c.StartedAt = &now
	c.CompletedAt = nil
	c.Touch()
	if err := eng.store.UpdateCampaign(ctx, c); err != nil {
		eng.registry.Remove(campaignID)
		return StartResult{}, fmt.Errorf("persist campaign start: %w", err)
	}

	eng.hooks.EmitCampaignStarted(ctx, c, len(contacts))
	eng.wireAndStart(exec)

	return StartResult{ExecutionID: exec.ID(), Status: execution.StatusRunning}, nil
}

// PauseCampaign stops a running campaign's dispatch. In-flight calls
// run to completion.
func (eng *Engine) PauseCampaign(ctx context.Context, campaignID id.CampaignID) error {
	exec, err := eng.registry.Get(campaignID)
	if err != nil {
		return err
	}
	return exec.Pause(ctx)
}

// ResumeCampaign restarts a paused or degraded campaign.
func (eng *Engine) ResumeCampaign(ctx context.Context, campaignID id.CampaignID) error {
	exec, err := eng.registry.Get(campaignID)
	if err != nil {
		return err
	}
	return exec.Resume(ctx)
}

// CancelCampaign terminates a campaign's run. No new calls dispatch;
// in-flight calls finish but the run is already cancelled.
func (eng *Engine) CancelCampaign(ctx context.Context, campaignID id.CampaignID) error {
	exec, err := eng.registry.Get(campaignID)
	if err != nil {
		return err
	}
	return exec.Cancel(ctx)
}

// GetExecutionStatus returns the progress of a campaign run. Live runs
// answer from memory; campaigns without a resident execution are
// answered from the store.
func (eng *Engine) GetExecutionStatus(ctx context.Context, campaignID id.CampaignID) (ExecutionStatus, error) {
	if exec, err := eng.registry.Get(campaignID); err == nil {
		return statusFromSnapshot(exec.Snapshot()), nil
	}
	return eng.storedStatus(ctx, campaignID)
}

// Stats returns the process-wide dispatch state.
func (eng *Engine) Stats(_ context.Context) Stats {
	execs := eng.registry.List()
	out := Stats{
		ActiveExecutions: len(execs),
		ActiveCalls:      eng.governor.ActiveCount(),
		Executions:       make([]ExecutionStatus, 0, len(execs)),
	}
	for _, exec := range execs {
		out.Executions = append(out.Executions, statusFromSnapshot(exec.Snapshot()))
	}
	return out
}

// ScheduleStart registers a recurring start for the campaign. expr is a
// standard 5-field cron expression or a descriptor like "@every 24h".
func (eng *Engine) ScheduleStart(ctx context.Context, name, expr string, campaignID id.CampaignID) (*schedule.Entry, error) {
	sched, err := schedule.ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if _, err := eng.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	next := sched.Next(time.Now().UTC())
	entry := &schedule.Entry{
		Entity:     outdial.NewEntity(),
		ID:         id.NewScheduleID(),
		Name:       name,
		CampaignID: campaignID,
		Schedule:   expr,
		NextRunAt:  &next,
		Enabled:    true,
	}
	if err := eng.store.RegisterSchedule(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ResumeActive rebuilds and restarts executions for campaigns persisted
// as running or paused, after a process restart. Contacts with a
// terminal attempt stay finished; the rest re-enter the queue with their
// next attempt number. Campaigns rebuild in parallel.
func (eng *Engine) ResumeActive(ctx context.Context) error {
	var campaigns []*campaign.Campaign
	for _, status := range []campaign.Status{campaign.StatusRunning, campaign.StatusPaused} {
		cs, err := eng.store.ListCampaignsByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("list %s campaigns: %w", status, err)
		}
		campaigns = append(campaigns, cs...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range campaigns {
		g.Go(func() error {
			if err := eng.recoverCampaign(gctx, c); err != nil {
				return fmt.Errorf("recover campaign %s: %w", c.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Start launches the engine's background loops: the campaign scheduler
// and, when configured, the reconciler. It does not resume interrupted
// campaigns; call ResumeActive for that.
func (eng *Engine) Start(ctx context.Context) error {
	if err := eng.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if eng.reconciler != nil {
		eng.reconciler.Start()
	}
	eng.logger.Info("dispatch engine started")
	return nil
}

// Stop shuts the engine down: background loops halt, run loops stop
// dispatching, and in-flight calls get ShutdownTimeout to land. Stopped
// campaigns stay running or paused in the store; a later ResumeActive
// continues them.
func (eng *Engine) Stop(ctx context.Context) error {
	if err := eng.scheduler.Stop(ctx); err != nil {
		eng.logger.Warn("scheduler stop error", slog.String("error", err.Error()))
	}
	if eng.reconciler != nil {
		eng.reconciler.Stop()
	}

	deadline := eng.cfg.ShutdownTimeout
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	for _, exec := range eng.registry.List() {
		exec.Stop(stopCtx)
	}

	eng.hooks.EmitShutdown(ctx)
	eng.logger.Info("dispatch engine stopped")
	return nil
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// scheduledStart adapts StartCampaign for the scheduler.
func (eng *Engine) scheduledStart(ctx context.Context, campaignID id.CampaignID) error {
	if _, err := eng.registry.Get(campaignID); err == nil {
		// A live run means the previous scheduled start is still going.
		return outdial.ErrCampaignNotStartable
	}
	_, err := eng.StartCampaign(ctx, campaignID)
	return err
}

func (eng *Engine) executionParams(
	c *campaign.Campaign,
	agent *campaign.Agent,
	contacts []*campaign.Contact,
	q *queue.ContactQueue,
	counters execution.Counters,
	startPaused bool,
) execution.Params {
	p := execution.Params{
		Campaign:             c,
		Agent:                agent,
		ExecutionID:          c.ExecutionID,
		Contacts:             contacts,
		Counters:             counters,
		StartPaused:          startPaused,
		Dialer:               eng.dialer,
		Governor:             eng.governor,
		Retry:                eng.retry,
		Hooks:                eng.hooks,
		Checkpointer:         eng.checkpointer,
		Campaigns:            eng.store,
		Logger:               eng.logger,
		PollInterval:         eng.cfg.PollInterval,
		FailureRateThreshold: eng.cfg.FailureRateThreshold,
		DegradedThreshold:    eng.cfg.DegradedThreshold,
		CheckpointEvery:      eng.cfg.CheckpointEvery,
	}
	if q != nil {
		p.Queue = q
	}
	return p
}

// wireAndStart hooks registry eviction into the execution and launches it.
func (eng *Engine) wireAndStart(exec *execution.Execution) {
	exec.SetOnDone(func(campaignID id.CampaignID) {
		eng.registry.Remove(campaignID)
		eng.governor.Forget(campaignID)
	})
	exec.Start()
}

func statusFromSnapshot(snap execution.Snapshot) ExecutionStatus {
	return ExecutionStatus{
		CampaignID:         snap.CampaignID,
		ExecutionID:        snap.ExecutionID,
		Status:             snap.Status,
		Counters:           snap.Counters,
		ProgressPercentage: math.Round(snap.ProgressPercent()),
		StartedAt:          snap.StartedAt,
		UpdatedAt:          snap.UpdatedAt,
	}
}

// storedStatus answers a status read for a campaign with no resident
// execution, from attempt rows. Draft campaigns have never run and
// report no execution.
func (eng *Engine) storedStatus(ctx context.Context, campaignID id.CampaignID) (ExecutionStatus, error) {
	c, err := eng.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return ExecutionStatus{}, err
	}
	if c.Status == campaign.StatusDraft {
		return ExecutionStatus{}, outdial.ErrExecutionNotFound
	}

	counts, err := eng.store.CountsByOutcome(ctx, c.ExecutionID)
	if err != nil {
		return ExecutionStatus{}, err
	}
	terminal, err := eng.store.ListTerminalContactIDs(ctx, c.ExecutionID)
	if err != nil {
		return ExecutionStatus{}, err
	}
	contacts, err := eng.store.ListActiveContacts(ctx, c.ContactListID)
	if err != nil {
		return ExecutionStatus{}, err
	}

	done := make(map[string]struct{}, len(terminal))
	for _, contactID := range terminal {
		done[contactID.String()] = struct{}{}
	}

	// Contacts that spent their retry budget leave only transient rows
	// behind; they are finished failed, not still queued.
	completed := int64(len(terminal))
	maxAttempts := eng.retry.MaxAttempts()
	for _, contact := range contacts {
		if _, ok := done[contact.ID.String()]; ok {
			continue
		}
		n, countErr := eng.store.CountContactAttempts(ctx, c.ExecutionID, contact.ID)
		if countErr != nil {
			return ExecutionStatus{}, countErr
		}
		if n >= maxAttempts {
			completed++
		}
	}

	counters := execution.Counters{
		Total:     int64(len(contacts)),
		Completed: completed,
		Succeeded: counts.Succeeded,
		Failed:    completed - counts.Succeeded,
	}
	if counters.Total < completed {
		// The contact list shrank since the run; keep the invariant.
		counters.Total = completed
	}
	counters.Queued = counters.Total - completed

	status := ExecutionStatus{
		CampaignID:  campaignID,
		ExecutionID: c.ExecutionID,
		Status:      execution.Status(c.Status),
		Counters:    counters,
	}
	if counters.Total > 0 {
		status.ProgressPercentage = math.Round(float64(completed) / float64(counters.Total) * 100)
	}
	if c.StartedAt != nil {
		status.StartedAt = *c.StartedAt
	}
	return status, nil
}

// recoverCampaign rebuilds one interrupted run from attempt rows.
func (eng *Engine) recoverCampaign(ctx context.Context, c *campaign.Campaign) error {
	agent, err := eng.store.GetAgent(ctx, c.AgentID)
	if err != nil {
		return err
	}
	contacts, err := eng.store.ListActiveContacts(ctx, c.ContactListID)
	if err != nil {
		return err
	}

	if c.ExecutionID.IsNil() {
		// A running row without a run identity predates execution scoping;
		// assign one so its attempt rows land somewhere.
		c.ExecutionID = id.NewExecutionID()
		c.Touch()
		if err := eng.store.UpdateCampaign(ctx, c); err != nil {
			return err
		}
	}

	counts, err := eng.store.CountsByOutcome(ctx, c.ExecutionID)
	if err != nil {
		return err
	}
	terminalIDs, err := eng.store.ListTerminalContactIDs(ctx, c.ExecutionID)
	if err != nil {
		return err
	}
	terminal := make(map[string]struct{}, len(terminalIDs))
	for _, contactID := range terminalIDs {
		terminal[contactID.String()] = struct{}{}
	}

	q := queue.New()
	maxAttempts := eng.retry.MaxAttempts()
	var completed, exhausted, queued int64
	for _, contact := range contacts {
		if _, done := terminal[contact.ID.String()]; done {
			completed++
			continue
		}
		n, countErr := eng.store.CountContactAttempts(ctx, c.ExecutionID, contact.ID)
		if countErr != nil {
			return countErr
		}
		if n >= maxAttempts {
			// Retry budget already spent; the contact is finished failed.
			completed++
			exhausted++
			continue
		}
		q.Push(queue.Entry{ContactID: contact.ID, AttemptNumber: n + 1})
		queued++
	}

	counters := execution.Counters{
		Total:     int64(len(contacts)),
		Queued:    queued,
		Completed: completed,
		Succeeded: counts.Succeeded,
		Failed:    completed - counts.Succeeded,
	}

	startPaused := c.Status == campaign.StatusPaused
	exec := execution.New(eng.executionParams(c, agent, contacts, q, counters, startPaused))
	if err := eng.registry.Add(exec); err != nil {
		return err
	}
	eng.wireAndStart(exec)

	eng.logger.Info("campaign recovered",
		slog.String("campaign_id", c.ID.String()),
		slog.Int64("queued", queued),
		slog.Int64("completed", completed),
		slog.Int64("exhausted", exhausted),
		slog.Bool("paused", startPaused),
	)
	return nil
}
