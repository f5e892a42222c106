/*
Package socketpool's stats.go tracks per-socket inbound FIFO occupancy for statistical purposes.
The goal is to determine queue depth and drop behaviour on a per-socket basis so Core.Report() can
surface backpressure before it becomes a silent source of dropped datagrams.

Typical usage is to create a Tracker for a socket pool then call it as datagrams are queued and
dequeued:

	st := socketpool.NewTracker("Socket Pool")
	st.Queued(socketKey, now)
	... later, when the dispatcher drains the FIFO
	st.Dequeued(socketKey, now)

If a socket's FIFO is full when a new datagram arrives, the datagram is discarded and Dropped is
called instead of Queued.
*/
package socketpool

import (
	"fmt"
	"sync"
	"time"
)

type socketStats struct {
	queueStart   time.Time // When the current occupancy streak began (first queued item)
	occupiedFor  time.Duration
	currentDepth int
	peakDepth    int
}

type statErrIx int

const (
	errNoSocketInMap statErrIx = iota // Dequeued/Dropped for a socket never registered
	errNegativeDepth                  // More Dequeued than Queued
	statErrArSize
)

type trackerStats struct {
	peakDepth int
	queuedFor time.Duration // Total time any socket had a non-empty FIFO
	dropped   int
	errors    [statErrArSize]int
}

// Tracker tracks FIFO occupancy per socket key, reporting peak depth and drop counts.
type Tracker struct {
	name string
	mu   sync.Mutex

	sockets map[string]*socketStats
	trackerStats
}

// NewTracker constructs a Tracker.
func NewTracker(name string) *Tracker {
	t := &Tracker{name: name}
	t.sockets = make(map[string]*socketStats)

	return t
}

// Register adds a socket key to the tracker ahead of any Queued/Dequeued call, so a socket with
// zero traffic still shows up in the map for the lifetime of the pool.
func (t *Tracker) Register(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sockets[key]; !ok {
		t.sockets[key] = &socketStats{}
	}
}

// Queued records that a datagram was appended to the named socket's inbound FIFO.
func (t *Tracker) Queued(key string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sockets[key]
	if !ok {
		s = &socketStats{}
		t.sockets[key] = s
	}

	if s.currentDepth == 0 {
		s.queueStart = now
	}
	s.currentDepth++
	if s.currentDepth > s.peakDepth {
		s.peakDepth = s.currentDepth
	}
	if s.peakDepth > t.peakDepth {
		t.peakDepth = s.peakDepth
	}
}

// Dequeued records that the dispatcher drained one datagram from the named socket's FIFO.
func (t *Tracker) Dequeued(key string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sockets[key]
	if !ok {
		t.errors[errNoSocketInMap]++
		return
	}
	if s.currentDepth <= 0 {
		t.errors[errNegativeDepth]++
		return
	}

	s.currentDepth--
	if s.currentDepth == 0 {
		s.occupiedFor += now.Sub(s.queueStart)
	}
}

// Dropped records that an inbound datagram was discarded because the named socket's FIFO was
// full.
func (t *Tracker) Dropped(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dropped++
	if _, ok := t.sockets[key]; !ok {
		t.errors[errNoSocketInMap]++
	}
}

// Name implements internal/reporter.Reporter.
func (t *Tracker) Name() string {
	return t.name
}

// Report implements internal/reporter.Reporter.
func (t *Tracker) Report(resetCounters bool) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	errs := 0
	for _, v := range t.errors {
		errs += v
	}
	report := fmt.Sprintf("sockets=%d pkDepth=%d dropped=%d errs=%d queuedFor=%0.1fs (%s)",
		len(t.sockets), t.peakDepth, t.dropped, errs,
		t.queuedFor.Round(time.Millisecond*100).Seconds(), t.name)

	if resetCounters {
		t.trackerStats = trackerStats{}
		for _, s := range t.sockets {
			s.occupiedFor = 0
			s.peakDepth = s.currentDepth
		}
	}

	return report
}
