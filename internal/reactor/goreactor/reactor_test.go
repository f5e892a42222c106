package goreactor

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/evdns-go/evdns"
)

func TestReactorSatisfiesEvdnsReactor(t *testing.T) {
	var _ evdns.Reactor = (*Reactor)(nil)
}

func TestArmTimerFires(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	done := make(chan struct{})
	r.ArmTimer(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestArmTimerZeroDelayDefersRatherThanInlining(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fired := false
	done := make(chan struct{})
	r.ArmTimer(0, func() {
		fired = true
		close(done)
	})
	// The call above must return before fired is set, even with a zero delay.
	if fired {
		t.Fatal("ArmTimer(0, ...) invoked handler inline")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("zero-delay timer never fired")
	}
}

func TestCancelTimerPreventsFiring(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fired := make(chan struct{})
	token := r.ArmTimer(50*time.Millisecond, func() { close(fired) })
	r.Cancel(token)

	select {
	case <-fired:
		t.Fatal("cancelled timer still fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRegisterFdFiresOnReadable(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer pr.Close()
	defer pw.Close()

	done := make(chan bool, 1)
	r.RegisterFd(int(pr.Fd()), true, false, func(readable, writable bool) {
		done <- readable
	})

	if _, err := pw.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case readable := <-done:
		if !readable {
			t.Error("handler invoked with readable=false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fd readiness never reported")
	}
}

func TestPostRunsOnDispatcherGoroutine(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	var mu sync.Mutex
	var ran bool
	done := make(chan struct{})
	r.Post(func() {
		mu.Lock()
		ran = true
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Post callback never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Error("Post callback did not run")
	}
}

func TestArmTimerReentrantFromRunningHandlerDoesNotDeadlock(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	// A handler that itself calls ArmTimer/Cancel runs on the same dispatcher goroutine that
	// would otherwise need to service that very call — this is exactly the shape Core's
	// sendAttempt/onTimeout/disarmTimer calls take when invoked from inside a timer fire.
	done := make(chan struct{})
	var outer evdns.TimerToken
	outer = r.ArmTimer(5*time.Millisecond, func() {
		r.Cancel(outer)
		r.ArmTimer(5*time.Millisecond, func() {
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reentrant ArmTimer/Cancel from a running handler deadlocked the dispatcher")
	}
}

func TestNowReturnsRecentTime(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if since := time.Since(r.Now()); since < 0 || since > time.Second {
		t.Errorf("Now() = %v off from real time by %v", r.Now(), since)
	}
}
