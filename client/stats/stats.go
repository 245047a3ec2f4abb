// Package stats keeps lock-free latency and exception counters for the workload drivers.
//
// A Stats accumulates since its creation (cumulative view) and mirrors every sample into a
// lazily created period Stats that PeriodStats consumes and resets. Reading the period while
// samples are being added is a tolerated race: a sample may land in the window being handed
// out or in the next one.
package stats

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const unset = -1

type Stats struct {
	txnCount     atomic.Int64
	totalLatency atomic.Int64 // ns
	minLatency   atomic.Int64 // ns, unset until the first sample
	maxLatency   atomic.Int64 // ns, unset until the first sample
	exceptions   atomic.Int64

	start     time.Time
	end       atomic.Pointer[time.Time]
	finalised sync.Once

	histogram *Histogram
	period    atomic.Pointer[Stats]
}

func New() *Stats {
	return newAt(time.Now())
}

func newAt(start time.Time) *Stats {
	s := &Stats{start: start, histogram: NewHistogram()}
	s.minLatency.Store(unset)
	s.maxLatency.Store(unset)
	return s
}

// Add records one completed transaction
func (s *Stats) Add(latency time.Duration) {
	s.record(latency)
	s.periodStats().record(latency)
}

// AddException records one failed transaction
func (s *Stats) AddException() {
	s.exceptions.Add(1)
	s.periodStats().exceptions.Add(1)
}

func (s *Stats) record(latency time.Duration) {
	ns := int64(latency)
	s.txnCount.Add(1)
	s.totalLatency.Add(ns)
	// min/max are best effort under concurrent writers
	if cur := s.minLatency.Load(); cur == unset || ns < cur {
		s.minLatency.Store(ns)
	}
	if cur := s.maxLatency.Load(); cur == unset || ns > cur {
		s.maxLatency.Store(ns)
	}
	s.histogram.AddDuration(latency)
}

func (s *Stats) periodStats() *Stats {
	if p := s.period.Load(); p != nil {
		return p
	}
	s.period.CompareAndSwap(nil, newAt(time.Now()))
	return s.period.Load()
}

// PeriodStats returns what was recorded since the previous call and starts a new window.
// The returned Stats is finalised.
func (s *Stats) PeriodStats() *Stats {
	now := time.Now()
	old := s.period.Swap(newAt(now))
	if old == nil {
		old = newAt(now)
	}
	old.finaliseAt(now)
	return old
}

// Finalise freezes the end time. Only the first call has an effect.
func (s *Stats) Finalise() {
	s.finaliseAt(time.Now())
}

func (s *Stats) finaliseAt(t time.Time) {
	s.finalised.Do(func() {
		s.end.Store(&t)
	})
}

// Merge adds the counters of other into s
func (s *Stats) Merge(other *Stats) {
	if other == nil {
		return
	}
	s.txnCount.Add(other.txnCount.Load())
	s.totalLatency.Add(other.totalLatency.Load())
	s.exceptions.Add(other.exceptions.Load())
	if m := other.minLatency.Load(); m != unset {
		if cur := s.minLatency.Load(); cur == unset || m < cur {
			s.minLatency.Store(m)
		}
	}
	if m := other.maxLatency.Load(); m != unset {
		if cur := s.maxLatency.Load(); cur == unset || m > cur {
			s.maxLatency.Store(m)
		}
	}
	s.histogram.Merge(other.histogram)
}

// Sum merges ss into a new Stats spanning the earliest start to the latest end. The sum is
// finalised when every input is.
func Sum(ss ...*Stats) *Stats {
	start, end := time.Now(), time.Time{}
	finalised := len(ss) > 0
	for _, s := range ss {
		if s.Start().Before(start) {
			start = s.Start()
		}
		e, ok := s.End()
		if !ok {
			finalised = false
		} else if e.After(end) {
			end = e
		}
	}
	sum := newAt(start)
	for _, s := range ss {
		sum.Merge(s)
	}
	if finalised {
		sum.finaliseAt(end)
	}
	return sum
}

func (s *Stats) TxnCount() int64 {
	return s.txnCount.Load()
}

func (s *Stats) Exceptions() int64 {
	return s.exceptions.Load()
}

func (s *Stats) TotalLatency() time.Duration {
	return time.Duration(s.totalLatency.Load())
}

// Min returns the smallest latency in microseconds, NaN before the first sample
func (s *Stats) Min() float64 {
	return micros(s.minLatency.Load())
}

// Max returns the largest latency in microseconds, NaN before the first sample
func (s *Stats) Max() float64 {
	return micros(s.maxLatency.Load())
}

// Average returns the mean latency in microseconds, NaN before the first sample
func (s *Stats) Average() float64 {
	n := s.txnCount.Load()
	if n == 0 {
		return math.NaN()
	}
	return float64(s.totalLatency.Load()) / float64(n) / 1e3
}

// TPS returns transactions per second between start and end (or now, if not finalised)
func (s *Stats) TPS() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.txnCount.Load()) / elapsed
}

func (s *Stats) Elapsed() time.Duration {
	if end := s.end.Load(); end != nil {
		return end.Sub(s.start)
	}
	return time.Since(s.start)
}

func (s *Stats) Start() time.Time {
	return s.start
}

// End returns the end time and whether Finalise has been called
func (s *Stats) End() (time.Time, bool) {
	if end := s.end.Load(); end != nil {
		return *end, true
	}
	return time.Time{}, false
}

func (s *Stats) Histogram() *Histogram {
	return s.histogram
}

func micros(ns int64) float64 {
	if ns == unset {
		return math.NaN()
	}
	return float64(ns) / 1e3
}
