// Package queue provides the per-campaign contact queue. Each running
// execution owns one ContactQueue seeded with the campaign's eligible
// contacts; retry re-entries carry a not-before time so delayed contacts
// are skipped until their backoff elapses.
package queue

import (
	"sync"
	"time"

	"github.com/xraph/outdial/id"
)

// Entry is one queued contact awaiting dispatch.
type Entry struct {
	// ContactID identifies the contact to call.
	ContactID id.ContactID

	// AttemptNumber is the attempt this dequeue will produce (1-based).
	AttemptNumber int

	// ReadyAt is the not-before time for retry re-entries. Zero means
	// eligible immediately.
	ReadyAt time.Time
}

// ContactQueue is a FIFO queue of contacts with delayed re-entry for
// retries. Dequeue returns entries in insertion order among those whose
// ReadyAt has passed. It is safe for concurrent use.
type ContactQueue struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates a ContactQueue seeded with the given contacts as first
// attempts, preserving order.
func New(contactIDs ...id.ContactID) *ContactQueue {
	q := &ContactQueue{entries: make([]Entry, 0, len(contactIDs))}
	for _, cid := range contactIDs {
		q.entries = append(q.entries, Entry{ContactID: cid, AttemptNumber: 1})
	}
	return q
}

// Push appends an entry. Used when seeding recovered executions where
// attempt numbers are not uniformly 1.
func (q *ContactQueue) Push(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// PushFront re-inserts an entry at the head of the queue. Dispatch loops
// use it to return a dequeued contact that could not be admitted, so a
// denial does not reorder the run.
func (q *ContactQueue) PushFront(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([]Entry{e}, q.entries...)
}

// Dequeue removes and returns the first eligible entry. It returns
// ok=false when no entry is eligible right now; the queue may still hold
// delayed entries (see Len vs ReadyLen).
func (q *ContactQueue) Dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	for i, e := range q.entries {
		if !e.ReadyAt.IsZero() && e.ReadyAt.After(now) {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return e, true
	}
	return Entry{}, false
}

// Requeue re-enters a contact for a retry after the given delay. The
// attempt number is the number the NEXT dequeue should carry.
func (q *ContactQueue) Requeue(contactID id.ContactID, attemptNumber int, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{
		ContactID:     contactID,
		AttemptNumber: attemptNumber,
		ReadyAt:       time.Now().UTC().Add(delay),
	})
}

// Len returns the total number of queued entries, including delayed ones.
func (q *ContactQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ReadyLen returns the number of entries eligible for dequeue right now.
func (q *ContactQueue) ReadyLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	n := 0
	for _, e := range q.entries {
		if e.ReadyAt.IsZero() || !e.ReadyAt.After(now) {
			n++
		}
	}
	return n
}

// NextReadyAt returns the earliest ReadyAt among delayed entries and true,
// or the zero time and false when the queue holds no delayed entries.
// Dispatch loops use it to size their idle sleep.
func (q *ContactQueue) NextReadyAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var earliest time.Time
	for _, e := range q.entries {
		if e.ReadyAt.IsZero() {
			continue
		}
		if earliest.IsZero() || e.ReadyAt.Before(earliest) {
			earliest = e.ReadyAt
		}
	}
	return earliest, !earliest.IsZero()
}
