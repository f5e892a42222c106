/*
concurrency keeps track of how many concurrent Lookups are active. The purpose is simply to
provide the ability to report peak concurrency over a reporting period. Typical usage:

 var c concurrency.Counter

 func (core *Core) query(...) {
   c.Add()
   ... register the Lookup, Done() is called when it reaches a terminal state
 }

and in some reporting function

 fmt.Println("Peak concurrent lookups", c.Peak(true))
*/
package concurrency

import (
	"sync"
)

type Counter struct {
	sync.Mutex
	current int // Count of pending Done() calls
	peak    int // Max 'current' has ever reached
}

// Add increments 'current' and if a new peak has been reached, the peak value is updated. Return
// true if the peak has increased as a result of this call.
func (t *Counter) Add() (increased bool) {
	t.Lock()
	defer t.Unlock()
	t.current++
	if t.current > t.peak {
		t.peak = t.current
		increased = true
	}

	return
}

// Done decrements 'current'. Done() must only be called after a matching Add() call, otherwise a
// panic ensues.
func (t *Counter) Done() {
	t.Lock()
	defer t.Unlock()
	if t.current == 0 {
		panic("concurrency.Done() lacks matching .Add()")
	}
	t.current--
}

// Current returns the current live count without affecting the peak.
func (t *Counter) Current() int {
	t.Lock()
	defer t.Unlock()
	return t.current
}

// Peak returns the peak concurrency count and optionally resets the peak value to the current
// concurrency value. The current counter is never reset by this call. The reset occurs *after*
// the return value is set so its impact is not visible until a subsequent call to Peak().
func (t *Counter) Peak(resetCounters bool) (peak int) {
	t.Lock()
	defer t.Unlock()
	peak = t.peak
	if resetCounters {
		t.peak = t.current
	}

	return
}
