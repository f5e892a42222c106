/*
Package goreactor is the engine's default Reactor implementation (spec.md §6): a single
dispatcher goroutine serializes every fd-ready, timer-fire and Post callback, fed by one poller
goroutine that blocks in a raw unix.Poll syscall and a self-pipe used to wake it whenever the
watched fd set changes. Timer deadlines are tracked by the dispatcher goroutine itself.

No direct teacher analogue exists — the teacher repo never runs a reactor; cmd/trustydns-server
always issues a single blocking dns.Client.Exchange call per query. This package is grounded
stylistically on that server's http.Server-driven ConnState callback: one dispatcher goroutine is
the only place that touches shared state, fed by per-connection goroutines reporting state
transitions. Here the "per-connection goroutines" are replaced by one poller goroutine reporting
fd readiness, but the shape — many feeders, one serialized dispatcher — is the same.
*/
package goreactor

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evdns-go/evdns"
)

// Reactor is a single-process, single-dispatcher-goroutine implementation of the engine's
// Reactor interface (RegisterFd/ArmTimer/Cancel/Post/Now).
type Reactor struct {
	cmds    chan func()
	readyCh chan []readyEvent
	done    chan struct{}
	closeOnce sync.Once

	poller *poller

	mu         sync.Mutex // Never locked: nextID is advanced atomically; timers/fds stay on the dispatcher goroutine
	nextID     uint64
	timers     timerHeap
	fds        map[uint64]*fdWatch
}

type readyEvent struct {
	id               uint64
	readable, writable bool
}

type fdWatch struct {
	id      uint64
	fd      int
	handler func(readable, writable bool)
}

// New constructs a Reactor and starts its dispatcher and poller goroutines. Call Close to stop
// both and release the self-pipe.
func New() (*Reactor, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}

	r := &Reactor{
		cmds:    make(chan func(), 256),
		readyCh: make(chan []readyEvent, 64),
		done:    make(chan struct{}),
		poller:  p,
		fds:     make(map[uint64]*fdWatch),
	}
	heap.Init(&r.timers)

	go p.run(r.readyCh)
	go r.dispatchLoop()

	return r, nil
}

// Now returns the wall-clock time. time.Now() is monotonic on every platform Go supports, which
// is all spec.md §6 requires of a Reactor's clock.
func (r *Reactor) Now() time.Time { return time.Now() }

// RegisterFd watches fd for read/write readiness via the poller goroutine, invoking handler on
// the dispatcher goroutine for every reported transition. Safe to call from any goroutine,
// including reentrantly from a callback the dispatcher goroutine is itself currently running —
// the mutation is queued rather than awaited, since a handler (an ArmTimer/timer fire, an
// fd-ready event) runs synchronously inside the dispatcher's select loop, and waiting there for
// that very loop to service the same queue would deadlock it. The token is generated up front so
// it can be returned before the queued mutation is applied.
func (r *Reactor) RegisterFd(fd int, readable, writable bool, handler evdns.FdHandler) evdns.FdToken {
	id := atomic.AddUint64(&r.nextID, 1)
	r.cmds <- func() {
		r.fds[id] = &fdWatch{id: id, fd: fd, handler: handler}
		r.poller.update(id, fd, readable, writable)
	}

	return evdns.FdToken(id)
}

// ArmTimer schedules handler to fire once after delay, on the dispatcher goroutine. A zero delay
// still defers to the next dispatcher turn rather than running inline, satisfying the engine's
// "no callback from inside query()" requirement. Safe to call from any goroutine, including
// reentrantly from a running callback — see RegisterFd's note on why this queues rather than
// blocks on completion.
func (r *Reactor) ArmTimer(delay time.Duration, handler evdns.TimerHandler) evdns.TimerToken {
	id := atomic.AddUint64(&r.nextID, 1)
	deadline := time.Now().Add(delay)
	r.cmds <- func() {
		heap.Push(&r.timers, &timerEntry{id: id, deadline: deadline, handler: handler})
	}

	return evdns.TimerToken(id)
}

// Cancel disarms a previously returned RegisterFd or ArmTimer token. A no-op if the token has
// already fired or been cancelled, or isn't a token this Reactor issued. Safe to call from any
// goroutine, including reentrantly from a running callback — see RegisterFd's note.
func (r *Reactor) Cancel(token any) {
	var id uint64
	switch t := token.(type) {
	case evdns.FdToken:
		id = uint64(t)
	case evdns.TimerToken:
		id = uint64(t)
	default:
		return
	}

	r.cmds <- func() {
		if w, ok := r.fds[id]; ok {
			delete(r.fds, id)
			r.poller.remove(w.fd)
		}
		r.timers.removeByID(id)
	}
}

// Post schedules fn to run on the dispatcher goroutine, serialized with every fd and timer
// callback. This is the one safe way back into engine state from a goroutine the Reactor did not
// itself spawn (e.g. internal/socketpool's TCP fallback connector).
func (r *Reactor) Post(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.done:
	}
}

// Close stops the dispatcher and poller goroutines.
func (r *Reactor) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.poller.close()
	})
}

func (r *Reactor) dispatchLoop() {
	for {
		var timerC <-chan time.Time
		var timer *time.Timer
		if r.timers.Len() > 0 {
			d := time.Until(r.timers[0].deadline)
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case <-r.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case cmd := <-r.cmds:
			cmd()

		case events := <-r.readyCh:
			for _, ev := range events {
				if w, ok := r.fds[ev.id]; ok {
					w.handler(ev.readable, ev.writable)
				}
			}

		case <-timerC:
			r.fireExpired()
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (r *Reactor) fireExpired() {
	now := time.Now()
	for r.timers.Len() > 0 && !r.timers[0].deadline.After(now) {
		entry := heap.Pop(&r.timers).(*timerEntry)
		entry.handler()
	}
}
