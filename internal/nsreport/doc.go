/*
Package nsreport tracks per-nameserver reliability and latency statistics for reporting purposes.

Selection of which nameserver a Lookup tries next is the engine's own responsibility (a simple
rotate over the configured list, per-query) — nsreport does not choose servers, it only
accumulates what happened so Core.Report() can surface a weighted-average-latency and
failure-rate view per nameserver. The bookkeeping shape (weighted moving average latency, a
rehabilitation window for servers that have been failing) mirrors the "latency" nameserver
selection algorithm this package's statistics were extracted from, but the selection logic itself
has been removed since this engine's nameserver order is specified, not adaptive.
*/
package nsreport

import (
	"fmt"
	"sync"
	"time"
)

// Config controls how much influence the latest Result has on the weighted average, and how long
// a failing nameserver is held as "failing" before being treated as rehabilitated again.
type Config struct {
	WeightForLatest  int           // Percent weight for the latest latency sample (range: 1-100)
	ResetFailedAfter time.Duration // Stats for a failing nameserver are cleared after this long
}

// DefaultConfig mirrors the values that proved reasonable for a weighted moving average over a
// recursive resolver's nameserver set.
var DefaultConfig = Config{
	WeightForLatest:  67,
	ResetFailedAfter: time.Minute * 3,
}

type serverStats struct {
	successes       int
	failures        int
	lastStatusTime  time.Time
	lastWasFailure  bool
	weightedAverage time.Duration
}

// Tracker accumulates Result() calls per nameserver key (typically "ip:port").
type Tracker struct {
	Config
	mu      sync.Mutex
	name    string
	servers map[string]*serverStats
}

// New constructs a Tracker. A zero Config selects DefaultConfig.
func New(name string, config Config) *Tracker {
	if config.WeightForLatest <= 0 || config.WeightForLatest > 100 {
		config.WeightForLatest = DefaultConfig.WeightForLatest
	}
	if config.ResetFailedAfter <= 0 {
		config.ResetFailedAfter = DefaultConfig.ResetFailedAfter
	}

	return &Tracker{name: name, Config: config, servers: make(map[string]*serverStats)}
}

// Result records the outcome of one attempt against the nameserver identified by key.
func (t *Tracker) Result(key string, success bool, now time.Time, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.servers[key]
	if !ok {
		s = &serverStats{}
		t.servers[key] = s
	}

	if s.lastWasFailure && s.lastStatusTime.Add(t.ResetFailedAfter).Before(now) {
		*s = serverStats{} // Rehabilitate: long enough has passed since the last failure
	}

	s.lastStatusTime = now
	s.lastWasFailure = !success
	if success {
		s.successes++
		if s.weightedAverage == 0 {
			s.weightedAverage = latency
		} else {
			current := latency * time.Duration(t.WeightForLatest)
			historic := s.weightedAverage * time.Duration(100-t.WeightForLatest)
			s.weightedAverage = (current + historic) / 100
		}
	} else {
		s.failures++
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

	report := ""
	for key, s := range t.servers {
		report += fmt.Sprintf("%s ok=%d fail=%d avgLatency=%s\n", key, s.successes, s.failures,
			s.weightedAverage.Round(time.Millisecond))
	}

	if resetCounters {
		for _, s := range t.servers {
			s.successes = 0
			s.failures = 0
		}
	}

	return report
}
