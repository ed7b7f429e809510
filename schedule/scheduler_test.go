package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/id"
)

// fakeStore is an in-package schedule store for scheduler tests.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*Entry)}
}

func (s *fakeStore) RegisterSchedule(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID.String()]; ok {
		return outdial.ErrScheduleAlreadyExists
	}
	cp := *entry
	s.entries[entry.ID.String()] = &cp
	return nil
}

func (s *fakeStore) GetSchedule(_ context.Context, scheduleID id.ScheduleID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[scheduleID.String()]
	if !ok {
		return nil, outdial.ErrScheduleNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) ListSchedules(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) UpdateSchedule(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID.String()]; !ok {
		return outdial.ErrScheduleNotFound
	}
	cp := *entry
	s.entries[entry.ID.String()] = &cp
	return nil
}

func (s *fakeStore) DeleteSchedule(_ context.Context, scheduleID id.ScheduleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[scheduleID.String()]; !ok {
		return outdial.ErrScheduleNotFound
	}
	delete(s.entries, scheduleID.String())
	return nil
}

var _ Store = (*fakeStore)(nil)

// recordingStarter captures campaign start requests.
type recordingStarter struct {
	mu    sync.Mutex
	ids   []id.CampaignID
	err   error
	errFor map[string]error
}

func (r *recordingStarter) StartCampaign(_ context.Context, campaignID id.CampaignID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, campaignID)
	if e, ok := r.errFor[campaignID.String()]; ok {
		return e
	}
	return r.err
}

func (r *recordingStarter) started() []id.CampaignID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]id.CampaignID(nil), r.ids...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dueEntry(campaignID id.CampaignID, enabled bool) *Entry {
	past := time.Now().UTC().Add(-time.Minute)
	return &Entry{
		ID:         id.NewScheduleID(),
		Name:       "nightly-" + campaignID.String(),
		CampaignID: campaignID,
		Schedule:   "@every 1h",
		NextRunAt:  &past,
		Enabled:    enabled,
	}
}

func waitForStarts(t *testing.T, starter *recordingStarter, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(starter.started()) >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("starter received %d starts, want %d", len(starter.started()), n)
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 9 * * 1", false},
		{"*/5 * * * *", false},
		{"@every 30m", false},
		{"@daily", false},
		{"not a cron", true},
		{"0 9 * *", true}, // four fields
	}
	for _, tt := range tests {
		_, err := ParseSchedule(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSchedule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestSchedulerFiresDueEntry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	campaignID := id.NewCampaignID()
	entry := dueEntry(campaignID, true)
	if err := store.RegisterSchedule(ctx, entry); err != nil {
		t.Fatalf("register: %v", err)
	}

	starter := &recordingStarter{}
	s := NewScheduler(store, starter, testLogger(), WithTickInterval(5*time.Millisecond))
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(ctx) //nolint:errcheck

	waitForStarts(t, starter, 1)
	if got := starter.started()[0]; got != campaignID {
		t.Errorf("started campaign %s, want %s", got, campaignID)
	}

	// The entry re-arms: LastRunAt set, NextRunAt pushed into the future.
	deadline := time.Now().Add(2 * time.Second)
	for {
		updated, err := store.GetSchedule(ctx, entry.ID)
		if err != nil {
			t.Fatalf("get schedule: %v", err)
		}
		if updated.LastRunAt != nil && updated.NextRunAt != nil && updated.NextRunAt.After(time.Now().UTC()) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("entry never re-armed: %+v", updated)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSchedulerSkipsDisabledAndFutureEntries(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	disabled := dueEntry(id.NewCampaignID(), false)
	future := dueEntry(id.NewCampaignID(), true)
	next := time.Now().UTC().Add(time.Hour)
	future.NextRunAt = &next
	unarmed := dueEntry(id.NewCampaignID(), true)
	unarmed.NextRunAt = nil

	for _, e := range []*Entry{disabled, future, unarmed} {
		if err := store.RegisterSchedule(ctx, e); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	starter := &recordingStarter{}
	s := NewScheduler(store, starter, testLogger(), WithTickInterval(5*time.Millisecond))
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := starter.started(); len(got) != 0 {
		t.Errorf("started %v, want no starts", got)
	}
}

func TestSchedulerReArmsWhenCampaignNotStartable(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	campaignID := id.NewCampaignID()
	entry := dueEntry(campaignID, true)
	if err := store.RegisterSchedule(ctx, entry); err != nil {
		t.Fatalf("register: %v", err)
	}

	starter := &recordingStarter{err: outdial.ErrCampaignNotStartable}
	s := NewScheduler(store, starter, testLogger(), WithTickInterval(5*time.Millisecond))
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(ctx) //nolint:errcheck

	waitForStarts(t, starter, 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		updated, _ := store.GetSchedule(ctx, entry.ID)
		if updated.NextRunAt != nil && updated.NextRunAt.After(time.Now().UTC()) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("entry never re-armed after skip: %+v", updated)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSchedulerContinuesAfterStartError(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	failing := id.NewCampaignID()
	healthy := id.NewCampaignID()

	for _, campaignID := range []id.CampaignID{failing, healthy} {
		if err := store.RegisterSchedule(ctx, dueEntry(campaignID, true)); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	starter := &recordingStarter{errFor: map[string]error{
		failing.String(): errors.New("boom"),
	}}
	s := NewScheduler(store, starter, testLogger(), WithTickInterval(5*time.Millisecond))
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(ctx) //nolint:errcheck

	waitForStarts(t, starter, 2)
	seen := map[string]bool{}
	for _, cid := range starter.started() {
		seen[cid.String()] = true
	}
	if !seen[failing.String()] || !seen[healthy.String()] {
		t.Errorf("both campaigns must be attempted, got %v", starter.started())
	}
}
