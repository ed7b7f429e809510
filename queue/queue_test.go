package queue

import (
	"testing"
	"time"

	"github.com/xraph/outdial/id"
)

func TestContactQueue_FIFO(t *testing.T) {
	a, b, c := id.NewContactID(), id.NewContactID(), id.NewContactID()
	q := New(a, b, c)

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	for i, want := range []id.ContactID{a, b, c} {
		e, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue %d: empty", i)
		}
		if e.ContactID != want {
			t.Fatalf("Dequeue %d = %s, want %s", i, e.ContactID, want)
		}
		if e.AttemptNumber != 1 {
			t.Fatalf("AttemptNumber = %d, want 1", e.AttemptNumber)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestContactQueue_PushFront(t *testing.T) {
	a, b, c := id.NewContactID(), id.NewContactID(), id.NewContactID()
	q := New(a, b, c)

	// A dequeued entry returned to the front keeps its turn.
	e, ok := q.Dequeue()
	if !ok || e.ContactID != a {
		t.Fatalf("Dequeue = %+v ok=%v, want %s", e, ok, a)
	}
	q.PushFront(e)

	for i, want := range []id.ContactID{a, b, c} {
		e, ok := q.Dequeue()
		if !ok || e.ContactID != want {
			t.Fatalf("Dequeue %d = %+v ok=%v, want %s", i, e, ok, want)
		}
	}
}

func TestContactQueue_DelayedEntryNotEligible(t *testing.T) {
	cid := id.NewContactID()
	q := New()
	q.Requeue(cid, 2, time.Hour)

	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	if q.ReadyLen() != 0 {
		t.Fatalf("ReadyLen = %d, want 0", q.ReadyLen())
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("delayed entry should not dequeue before ReadyAt")
	}

	next, ok := q.NextReadyAt()
	if !ok {
		t.Fatal("expected NextReadyAt for delayed entry")
	}
	if until := time.Until(next); until < 59*time.Minute {
		t.Fatalf("NextReadyAt too soon: %v", until)
	}
}

func TestContactQueue_DelayedEntryBecomesEligible(t *testing.T) {
	cid := id.NewContactID()
	q := New()
	q.Requeue(cid, 3, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	e, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected entry after delay elapsed")
	}
	if e.ContactID != cid || e.AttemptNumber != 3 {
		t.Fatalf("got %+v", e)
	}
}

func TestContactQueue_SkipsDelayedPreservesOrder(t *testing.T) {
	delayed, ready1, ready2 := id.NewContactID(), id.NewContactID(), id.NewContactID()
	q := New()
	q.Requeue(delayed, 2, time.Hour)
	q.Push(Entry{ContactID: ready1, AttemptNumber: 1})
	q.Push(Entry{ContactID: ready2, AttemptNumber: 1})

	e, ok := q.Dequeue()
	if !ok || e.ContactID != ready1 {
		t.Fatalf("expected %s first, got %+v ok=%v", ready1, e, ok)
	}
	e, ok = q.Dequeue()
	if !ok || e.ContactID != ready2 {
		t.Fatalf("expected %s second, got %+v ok=%v", ready2, e, ok)
	}

	// Delayed entry stays put.
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("only remaining entry is delayed")
	}
}

func TestContactQueue_NextReadyAt_Earliest(t *testing.T) {
	q := New()
	q.Requeue(id.NewContactID(), 2, 2*time.Hour)
	q.Requeue(id.NewContactID(), 2, time.Hour)

	next, ok := q.NextReadyAt()
	if !ok {
		t.Fatal("expected NextReadyAt")
	}
	if until := time.Until(next); until > 61*time.Minute {
		t.Fatalf("NextReadyAt should be the earlier entry, got %v out", until)
	}
}

func TestContactQueue_NextReadyAt_NoDelayed(t *testing.T) {
	q := New(id.NewContactID())
	if _, ok := q.NextReadyAt(); ok {
		t.Fatal("immediate entries should not report NextReadyAt")
	}
}
