package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/backoff"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/hook"
	"github.com/xraph/outdial/id"
	"github.com/xraph/outdial/retry"
	"github.com/xraph/outdial/store/memory"
)

// dialerFunc adapts a function to the Dialer interface.
type dialerFunc func(ctx context.Context, c *campaign.Campaign, agent *campaign.Agent, contact *campaign.Contact, attemptNumber int) (*attempt.CallAttempt, error)

func (f dialerFunc) Dial(ctx context.Context, c *campaign.Campaign, agent *campaign.Agent, contact *campaign.Contact, attemptNumber int) (*attempt.CallAttempt, error) {
	return f(ctx, c, agent, contact, attemptNumber)
}

// scriptedDialer returns the scripted outcome sequence per contact, one
// entry per attempt number. A nil *CallAttempt entry means a systemic
// error.
type scriptedDialer struct {
	mu       sync.Mutex
	outcomes map[string][]attempt.Outcome
	systemic map[string]int // number of leading systemic errors per contact
	calls    atomic.Int64
}

func (d *scriptedDialer) Dial(_ context.Context, c *campaign.Campaign, _ *campaign.Agent, contact *campaign.Contact, attemptNumber int) (*attempt.CallAttempt, error) {
	d.calls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()

	key := contact.ID.String()
	if d.systemic[key] > 0 {
		d.systemic[key]--
		return nil, errors.New("insert attempt: connection refused")
	}

	script := d.outcomes[key]
	outcome := attempt.OutcomeSucceeded
	if attemptNumber-1 < len(script) {
		outcome = script[attemptNumber-1]
	}
	return &attempt.CallAttempt{
		ID:            id.NewAttemptID(),
		CampaignID:    c.ID,
		ContactID:     contact.ID,
		AttemptNumber: attemptNumber,
		Outcome:       outcome,
		StartedAt:     time.Now().UTC(),
	}, nil
}

type allowGovernor struct{}

func (allowGovernor) Acquire(id.CampaignID) bool { return true }
func (allowGovernor) Release(id.CampaignID)      {}

// serialGovernor caps in-flight calls so tests can observe a run midway.
type serialGovernor struct {
	mu     sync.Mutex
	active int
	limit  int
}

func (g *serialGovernor) Acquire(id.CampaignID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active >= g.limit {
		return false
	}
	g.active++
	return true
}

func (g *serialGovernor) Release(id.CampaignID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active--
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureHook records lifecycle notifications for assertions.
type captureHook struct {
	mu        sync.Mutex
	degraded  []int
	retrying  []int
	finished  []campaign.Status
	pausedN   int
	resumedN  int
}

// The registry matches hooks by interface, so a method signature drifting
// from the hook contract silently drops the subscription. Pin them here.
var (
	_ hook.CampaignPaused   = (*captureHook)(nil)
	_ hook.CampaignResumed  = (*captureHook)(nil)
	_ hook.CampaignDegraded = (*captureHook)(nil)
	_ hook.CampaignFinished = (*captureHook)(nil)
	_ hook.CallRetrying     = (*captureHook)(nil)
)

func (h *captureHook) Name() string { return "capture" }

func (h *captureHook) OnCampaignPaused(_ context.Context, _ id.CampaignID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pausedN++
	return nil
}

func (h *captureHook) OnCampaignResumed(_ context.Context, _ id.CampaignID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resumedN++
	return nil
}

func (h *captureHook) OnCampaignDegraded(_ context.Context, _ id.CampaignID, consecutiveFailures int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.degraded = append(h.degraded, consecutiveFailures)
	return nil
}

func (h *captureHook) OnCampaignFinished(_ context.Context, _ id.CampaignID, status campaign.Status, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, status)
	return nil
}

func (h *captureHook) OnCallRetrying(_ context.Context, _ *attempt.CallAttempt, nextAttempt int, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retrying = append(h.retrying, nextAttempt)
	return nil
}

type fixture struct {
	store    *memory.Store
	campaign *campaign.Campaign
	agent    *campaign.Agent
	contacts []*campaign.Contact
	hooks    *hook.Registry
	capture  *captureHook
}

func newFixture(t *testing.T, contactCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	agent := &campaign.Agent{
		ID:                  id.NewAgentID(),
		Name:                "closer",
		Active:              true,
		ProviderAssistantID: "asst-1",
	}
	if err := store.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("create agent: %v", err)
	}

	c := &campaign.Campaign{
		ID:            id.NewCampaignID(),
		Name:          "q3-renewals",
		AgentID:       agent.ID,
		ContactListID: "list-1",
		Status:        campaign.StatusRunning,
	}
	if err := store.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	contacts := make([]*campaign.Contact, 0, contactCount)
	for i := 0; i < contactCount; i++ {
		contact := &campaign.Contact{
			ID:            id.NewContactID(),
			ContactListID: "list-1",
			PhoneNumber:   fmt.Sprintf("+1555%07d", i),
			Active:        true,
		}
		if err := store.CreateContact(ctx, contact); err != nil {
			t.Fatalf("create contact: %v", err)
		}
		contacts = append(contacts, contact)
	}

	capture := &captureHook{}
	hooks := hook.NewRegistry(testLogger())
	hooks.Register(capture)

	return &fixture{store: store, campaign: c, agent: agent, contacts: contacts, hooks: hooks, capture: capture}
}

func (f *fixture) params(d Dialer, maxRetries int) Params {
	return Params{
		Campaign:             f.campaign,
		Agent:                f.agent,
		Contacts:             f.contacts,
		Dialer:               d,
		Governor:             allowGovernor{},
		Retry:                retry.NewCoordinator(maxRetries, backoff.NewConstant(time.Millisecond)),
		Hooks:                f.hooks,
		Campaigns:            f.store,
		Logger:               testLogger(),
		PollInterval:         2 * time.Millisecond,
		FailureRateThreshold: 0.5,
		DegradedThreshold:    3,
	}
}

func waitDone(t *testing.T, e *Execution) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("execution did not finish; snapshot: %+v", e.Snapshot())
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestExecutionDrainsAndCompletes(t *testing.T) {
	f := newFixture(t, 3)
	e := New(f.params(&scriptedDialer{}, 2))
	e.Start()
	waitDone(t, e)

	snap := e.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", snap.Status, StatusCompleted)
	}
	want := Counters{Total: 3, Completed: 3, Succeeded: 3}
	if snap.Counters != want {
		t.Fatalf("counters = %+v, want %+v", snap.Counters, want)
	}

	stored, err := f.store.GetCampaign(context.Background(), f.campaign.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.Status != campaign.StatusCompleted {
		t.Errorf("persisted status = %s, want %s", stored.Status, campaign.StatusCompleted)
	}
	if stored.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	f.capture.mu.Lock()
	defer f.capture.mu.Unlock()
	if len(f.capture.finished) != 1 || f.capture.finished[0] != campaign.StatusCompleted {
		t.Errorf("finished notifications = %v, want [completed]", f.capture.finished)
	}
}

func TestExecutionRetriesTransientThenSucceeds(t *testing.T) {
	f := newFixture(t, 1)
	d := &scriptedDialer{outcomes: map[string][]attempt.Outcome{
		f.contacts[0].ID.String(): {attempt.OutcomeFailedTransient, attempt.OutcomeSucceeded},
	}}
	e := New(f.params(d, 2))
	e.Start()
	waitDone(t, e)

	snap := e.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", snap.Status, StatusCompleted)
	}
	if snap.Counters.Succeeded != 1 || snap.Counters.Failed != 0 {
		t.Errorf("counters = %+v, want 1 succeeded 0 failed", snap.Counters)
	}
	if got := d.calls.Load(); got != 2 {
		t.Errorf("dial calls = %d, want 2", got)
	}

	f.capture.mu.Lock()
	defer f.capture.mu.Unlock()
	if len(f.capture.retrying) != 1 || f.capture.retrying[0] != 2 {
		t.Errorf("retrying notifications = %v, want [2]", f.capture.retrying)
	}
}

func TestExecutionRetryExhaustionFailsContact(t *testing.T) {
	f := newFixture(t, 1)
	d := &scriptedDialer{outcomes: map[string][]attempt.Outcome{
		f.contacts[0].ID.String(): {
			attempt.OutcomeFailedTransient,
			attempt.OutcomeFailedTransient,
			attempt.OutcomeFailedTransient,
		},
	}}
	e := New(f.params(d, 2)) // budget: 3 attempts total
	e.Start()
	waitDone(t, e)

	snap := e.Snapshot()
	if got := d.calls.Load(); got != 3 {
		t.Errorf("dial calls = %d, want 3", got)
	}
	if snap.Counters.Failed != 1 {
		t.Errorf("failed = %d, want 1", snap.Counters.Failed)
	}
	// Every completed contact failed, which exceeds the 0.5 threshold.
	if snap.Status != StatusFailed {
		t.Errorf("status = %s, want %s", snap.Status, StatusFailed)
	}

	stored, _ := f.store.GetCampaign(context.Background(), f.campaign.ID)
	if stored.Status != campaign.StatusFailed {
		t.Errorf("persisted status = %s, want %s", stored.Status, campaign.StatusFailed)
	}
}

func TestExecutionFailureRateWithinThreshold(t *testing.T) {
	f := newFixture(t, 4)
	// One permanent failure out of four completions stays under 0.5.
	d := &scriptedDialer{outcomes: map[string][]attempt.Outcome{
		f.contacts[0].ID.String(): {attempt.OutcomeFailedPermanent},
	}}
	e := New(f.params(d, 2))
	e.Start()
	waitDone(t, e)

	snap := e.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", snap.Status, StatusCompleted)
	}
	if snap.Counters.Succeeded != 3 || snap.Counters.Failed != 1 {
		t.Errorf("counters = %+v, want 3 succeeded 1 failed", snap.Counters)
	}
}

func TestExecutionPauseStopsDispatch(t *testing.T) {
	f := newFixture(t, 20)
	var calls atomic.Int64
	slow := dialerFunc(func(_ context.Context, c *campaign.Campaign, _ *campaign.Agent, contact *campaign.Contact, n int) (*attempt.CallAttempt, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return &attempt.CallAttempt{
			ID: id.NewAttemptID(), CampaignID: c.ID, ContactID: contact.ID,
			AttemptNumber: n, Outcome: attempt.OutcomeSucceeded, StartedAt: time.Now().UTC(),
		}, nil
	})
	p := f.params(slow, 0)
	p.Governor = &serialGovernor{limit: 1}
	e := New(p)
	e.Start()

	waitFor(t, func() bool { return calls.Load() >= 2 }, "no calls dispatched before pause")
	if err := e.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := e.Pause(context.Background()); !errors.Is(err, outdial.ErrNotRunning) {
		t.Errorf("second pause error = %v, want ErrNotRunning", err)
	}

	// Let in-flight calls land, then verify dispatch stays quiet.
	time.Sleep(30 * time.Millisecond)
	before := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if after := calls.Load(); after != before {
		t.Fatalf("calls advanced from %d to %d while paused", before, after)
	}

	stored, _ := f.store.GetCampaign(context.Background(), f.campaign.ID)
	if stored.Status != campaign.StatusPaused {
		t.Errorf("persisted status = %s, want %s", stored.Status, campaign.StatusPaused)
	}

	if err := e.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitDone(t, e)

	snap := e.Snapshot()
	if snap.Status != StatusCompleted || snap.Counters.Completed != 20 {
		t.Errorf("after resume: status=%s counters=%+v", snap.Status, snap.Counters)
	}
}

func TestExecutionCancel(t *testing.T) {
	f := newFixture(t, 50)
	slow := dialerFunc(func(_ context.Context, c *campaign.Campaign, _ *campaign.Agent, contact *campaign.Contact, n int) (*attempt.CallAttempt, error) {
		time.Sleep(5 * time.Millisecond)
		return &attempt.CallAttempt{
			ID: id.NewAttemptID(), CampaignID: c.ID, ContactID: contact.ID,
			AttemptNumber: n, Outcome: attempt.OutcomeSucceeded, StartedAt: time.Now().UTC(),
		}, nil
	})
	p := f.params(slow, 0)
	p.Governor = &serialGovernor{limit: 1}
	e := New(p)
	e.Start()

	waitFor(t, func() bool { return e.Snapshot().Counters.Completed >= 1 }, "no completions before cancel")
	if err := e.Cancel(context.Background()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitDone(t, e)

	if got := e.Status(); got != StatusCancelled {
		t.Fatalf("status = %s, want %s", got, StatusCancelled)
	}
	if err := e.Cancel(context.Background()); !errors.Is(err, outdial.ErrInvalidTransition) {
		t.Errorf("second cancel error = %v, want ErrInvalidTransition", err)
	}

	stored, _ := f.store.GetCampaign(context.Background(), f.campaign.ID)
	if stored.Status != campaign.StatusCancelled {
		t.Errorf("persisted status = %s, want %s", stored.Status, campaign.StatusCancelled)
	}
	if snap := e.Snapshot(); snap.Counters.Completed >= snap.Counters.Total {
		t.Errorf("expected an unfinished run, got %+v", snap.Counters)
	}
}

func TestExecutionDegradesOnSystemicFailures(t *testing.T) {
	f := newFixture(t, 2)
	// Three leading systemic errors per contact guarantee the streak
	// reaches the threshold before the first successful placement.
	d := &scriptedDialer{systemic: map[string]int{
		f.contacts[0].ID.String(): 3,
		f.contacts[1].ID.String(): 3,
	}}
	e := New(f.params(d, 0))
	e.Start()

	waitFor(t, func() bool { return e.Status() == StatusDegraded }, "execution never degraded")

	f.capture.mu.Lock()
	if len(f.capture.degraded) == 0 || f.capture.degraded[0] < 3 {
		t.Errorf("degraded notifications = %v, want streak >= 3", f.capture.degraded)
	}
	f.capture.mu.Unlock()

	// Counter accounting survives the requeues.
	snap := e.Snapshot()
	if got := snap.Counters.Completed + snap.Counters.Queued + snap.Counters.Inflight; got != snap.Counters.Total {
		t.Fatalf("counter invariant broken: %+v", snap.Counters)
	}

	// The remaining systemic budget may trip the threshold again, so keep
	// resuming until the run drains.
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case <-e.Done():
		default:
			if time.Now().After(deadline) {
				t.Fatalf("execution did not finish; snapshot: %+v", e.Snapshot())
			}
			if e.Status() == StatusDegraded {
				if err := e.Resume(context.Background()); err != nil {
					t.Fatalf("resume: %v", err)
				}
			}
			time.Sleep(2 * time.Millisecond)
			continue
		}
		break
	}

	snap = e.Snapshot()
	if snap.Status != StatusCompleted || snap.Counters.Succeeded != 2 {
		t.Errorf("after recovery: status=%s counters=%+v", snap.Status, snap.Counters)
	}
}

func TestExecutionCounterInvariantsUnderLoad(t *testing.T) {
	f := newFixture(t, 30)
	d := &scriptedDialer{outcomes: map[string][]attempt.Outcome{
		f.contacts[3].ID.String(): {attempt.OutcomeFailedTransient, attempt.OutcomeSucceeded},
		f.contacts[7].ID.String(): {attempt.OutcomeFailedPermanent},
	}}
	e := New(f.params(d, 2))
	e.Start()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := e.Snapshot()
			c := snap.Counters
			if c.Completed+c.Queued+c.Inflight != c.Total {
				t.Errorf("population invariant broken: %+v", c)
				return
			}
			if c.Succeeded+c.Failed != c.Completed {
				t.Errorf("completion invariant broken: %+v", c)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	waitDone(t, e)
	close(stop)
	wg.Wait()

	c := e.Snapshot().Counters
	want := Counters{Total: 30, Completed: 30, Succeeded: 29, Failed: 1}
	if c != want {
		t.Fatalf("final counters = %+v, want %+v", c, want)
	}
}

func TestExecutionStopLeavesCampaignRunning(t *testing.T) {
	f := newFixture(t, 10)
	slow := dialerFunc(func(_ context.Context, c *campaign.Campaign, _ *campaign.Agent, contact *campaign.Contact, n int) (*attempt.CallAttempt, error) {
		time.Sleep(5 * time.Millisecond)
		return &attempt.CallAttempt{
			ID: id.NewAttemptID(), CampaignID: c.ID, ContactID: contact.ID,
			AttemptNumber: n, Outcome: attempt.OutcomeSucceeded, StartedAt: time.Now().UTC(),
		}, nil
	})
	p := f.params(slow, 0)
	p.Governor = &serialGovernor{limit: 1}
	e := New(p)
	e.Start()

	waitFor(t, func() bool { return e.Snapshot().Counters.Completed >= 1 }, "no completions before stop")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e.Stop(ctx)

	select {
	case <-e.Done():
		t.Fatal("Stop must not finish the run")
	default:
	}
	stored, _ := f.store.GetCampaign(context.Background(), f.campaign.ID)
	if stored.Status != campaign.StatusRunning {
		t.Errorf("persisted status = %s, want %s", stored.Status, campaign.StatusRunning)
	}
}

// blockingGovernor denies every acquire.
type blockingGovernor struct{ attempts atomic.Int64 }

func (g *blockingGovernor) Acquire(id.CampaignID) bool { g.attempts.Add(1); return false }
func (g *blockingGovernor) Release(id.CampaignID)      {}

func TestExecutionGovernorDenialRequeues(t *testing.T) {
	f := newFixture(t, 1)
	gov := &blockingGovernor{}
	p := f.params(&scriptedDialer{}, 0)
	p.Governor = gov
	e := New(p)
	e.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		e.Stop(ctx)
	}()

	waitFor(t, func() bool { return gov.attempts.Load() >= 3 }, "governor never consulted")

	snap := e.Snapshot()
	if snap.Counters.Queued != 1 || snap.Counters.Inflight != 0 {
		t.Fatalf("denied contact must stay queued, got %+v", snap.Counters)
	}
}

// recordingCheckpointer captures saves and deletes, with their relative
// order in events.
type recordingCheckpointer struct {
	mu      sync.Mutex
	saves   []Snapshot
	deletes []id.CampaignID
	events  []string
}

func (c *recordingCheckpointer) Save(_ context.Context, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, *snap)
	c.events = append(c.events, "save")
	return nil
}

func (c *recordingCheckpointer) Load(_ context.Context, _ id.CampaignID) (*Snapshot, error) {
	return nil, outdial.ErrExecutionNotFound
}

func (c *recordingCheckpointer) Delete(_ context.Context, campaignID id.CampaignID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, campaignID)
	c.events = append(c.events, "delete")
	return nil
}

func TestExecutionCheckpoints(t *testing.T) {
	f := newFixture(t, 6)
	cp := &recordingCheckpointer{}
	p := f.params(&scriptedDialer{}, 0)
	p.Checkpointer = cp
	p.CheckpointEvery = 2
	e := New(p)
	e.Start()
	waitDone(t, e)

	cp.mu.Lock()
	defer cp.mu.Unlock()
	// A save lands every second completion. The drain's final save may be
	// skipped when finish gets there first and removes the snapshot.
	if n := len(cp.saves); n < 2 || n > 3 {
		t.Errorf("checkpoint saves = %d, want 2 or 3", n)
	}
	for _, snap := range cp.saves {
		if snap.CampaignID != f.campaign.ID {
			t.Errorf("checkpoint for campaign %s, want %s", snap.CampaignID, f.campaign.ID)
		}
	}
	if len(cp.deletes) != 1 || cp.deletes[0] != f.campaign.ID {
		t.Errorf("checkpoint deletes = %v, want [%s]", cp.deletes, f.campaign.ID)
	}
}

func TestExecutionNoCheckpointAfterFinish(t *testing.T) {
	f := newFixture(t, 40)
	cp := &recordingCheckpointer{}
	slow := dialerFunc(func(_ context.Context, c *campaign.Campaign, _ *campaign.Agent, contact *campaign.Contact, n int) (*attempt.CallAttempt, error) {
		time.Sleep(5 * time.Millisecond)
		return &attempt.CallAttempt{
			ID: id.NewAttemptID(), CampaignID: c.ID, ContactID: contact.ID,
			AttemptNumber: n, Outcome: attempt.OutcomeSucceeded, StartedAt: time.Now().UTC(),
		}, nil
	})
	p := f.params(slow, 0)
	p.Checkpointer = cp
	p.CheckpointEvery = 1
	p.Governor = &serialGovernor{limit: 1}
	e := New(p)
	e.Start()

	// Cancel with a call still in flight; its completion lands after the
	// finish path already deleted the snapshot.
	waitFor(t, func() bool { return e.Snapshot().Counters.Inflight >= 1 }, "no call in flight")
	if err := e.Cancel(context.Background()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitDone(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e.Stop(ctx)

	cp.mu.Lock()
	defer cp.mu.Unlock()
	if len(cp.deletes) != 1 {
		t.Fatalf("checkpoint deletes = %d, want 1", len(cp.deletes))
	}
	if last := cp.events[len(cp.events)-1]; last != "delete" {
		t.Fatalf("checkpoint events = %v, want the delete last", cp.events)
	}
}

// denyFirstGovernor refuses the very first acquire, then serializes at
// one in-flight call.
type denyFirstGovernor struct {
	mu     sync.Mutex
	denied bool
	active int
}

func (g *denyFirstGovernor) Acquire(id.CampaignID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.denied {
		g.denied = true
		return false
	}
	if g.active >= 1 {
		return false
	}
	g.active++
	return true
}

func (g *denyFirstGovernor) Release(id.CampaignID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active--
}

func TestExecutionGovernorDenialKeepsDispatchOrder(t *testing.T) {
	f := newFixture(t, 3)

	var mu sync.Mutex
	var order []string
	rec := dialerFunc(func(_ context.Context, c *campaign.Campaign, _ *campaign.Agent, contact *campaign.Contact, n int) (*attempt.CallAttempt, error) {
		mu.Lock()
		order = append(order, contact.ID.String())
		mu.Unlock()
		return &attempt.CallAttempt{
			ID: id.NewAttemptID(), CampaignID: c.ID, ContactID: contact.ID,
			AttemptNumber: n, Outcome: attempt.OutcomeSucceeded, StartedAt: time.Now().UTC(),
		}, nil
	})

	p := f.params(rec, 0)
	p.Governor = &denyFirstGovernor{}
	e := New(p)
	e.Start()
	waitDone(t, e)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("dial count = %d, want 3", len(order))
	}
	// A denied contact goes back to the head of the queue, so one denial
	// must not let a later contact overtake it.
	for i, contact := range f.contacts {
		if order[i] != contact.ID.String() {
			t.Fatalf("dispatch order = %v, want the seeded contact order", order)
		}
	}
}

func TestSnapshotProgressPercent(t *testing.T) {
	snap := Snapshot{Counters: Counters{Total: 200, Completed: 50}}
	if got := snap.ProgressPercent(); got != 25 {
		t.Errorf("ProgressPercent() = %v, want 25", got)
	}
	if got := (Snapshot{}).ProgressPercent(); got != 0 {
		t.Errorf("empty ProgressPercent() = %v, want 0", got)
	}
}
