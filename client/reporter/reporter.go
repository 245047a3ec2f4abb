// Package reporter periodically harvests the statistics of running drivers and hands them
// to StatsLoggers.
//
// A Reporter is owned by the top-level run and shared by every driver of that run. Start and
// Stop are reference counted: the first Start launches the snapshot and memory goroutines.
// Only the Stop bringing the count back to zero tears them down and delivers the pending
// period snapshot. It then sends one cumulative snapshot of the finalised statistics before
// forgetting loggers and registrations.
package reporter

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"csb/client/stats"
	"csb/client/store"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Titles of the metrics every logger receives per store and category
var Titles = []string{"txn", "tps", "avg_us", "min_us", "max_us", "exceptions"}

// StatsLogger receives snapshots
type StatsLogger interface {
	LogMainHeader(stores []string, titles []string)
	Log(node *stats.Node)
}

// FootprintLogger is implemented by loggers that also want memory reports
type FootprintLogger interface {
	LogFootprint(store string, fp store.Footprint, processRSS int64)
}

type Config struct {
	// Interval between period snapshots, one second by default
	Interval time.Duration
	// MemoryInterval between footprint reports, twice Interval by default
	MemoryInterval time.Duration
	Logger         *zap.Logger
}

type Reporter struct {
	interval       time.Duration
	memoryInterval time.Duration
	log            *zap.Logger

	// mu serializes registration and the start/stop lifecycle
	mu     sync.Mutex
	refs   int
	cancel context.CancelFunc
	wg     sync.WaitGroup
	last   *stats.Node

	// listMu guards the registrations read by the background goroutines
	listMu  sync.RWMutex
	loggers []StatsLogger
	nodes   []*stats.Node
	stores  []store.Store
}

func New(cfg Config) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MemoryInterval <= 0 {
		cfg.MemoryInterval = 2 * cfg.Interval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Reporter{
		interval:       cfg.Interval,
		memoryInterval: cfg.MemoryInterval,
		log:            cfg.Logger,
	}
}

func (r *Reporter) AddLogger(l StatsLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listMu.Lock()
	defer r.listMu.Unlock()
	r.loggers = append(r.loggers, l)
}

// Register adds a driver's statistics and the stores it runs against. Registering the same
// node or store twice has no effect.
func (r *Reporter) Register(node *stats.Node, stores ...store.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listMu.Lock()
	defer r.listMu.Unlock()

	if node != nil && !slices.Contains(r.nodes, node) {
		r.nodes = append(r.nodes, node)
	}
	for _, s := range stores {
		if !slices.Contains(r.stores, s) {
			r.stores = append(r.stores, s)
		}
	}
}

// Refs returns the number of Start calls not yet matched by Stop
func (r *Reporter) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refs++
	if r.refs > 1 {
		return
	}

	r.listMu.RLock()
	names := r.storeNames()
	loggers := append([]StatsLogger(nil), r.loggers...)
	r.listMu.RUnlock()
	for _, l := range loggers {
		l.LogMainHeader(names, Titles)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(2)
	go r.snapshotLoop(ctx)
	go r.memoryLoop(ctx)
	r.log.Debug("statistics reporting started", zap.Duration("interval", r.interval))
}

// Stop releases one Start. The last release returns the final cumulative snapshot, earlier
// ones return nil.
func (r *Reporter) Stop() *stats.Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.refs == 0 {
		return nil
	}
	r.refs--
	if r.refs > 0 {
		return nil
	}

	r.cancel()
	r.wg.Wait()
	r.cancel = nil
	// the samples recorded since the last tick
	r.snapshot()

	r.listMu.Lock()
	defer r.listMu.Unlock()

	cumulative := stats.NewNode()
	for _, n := range r.nodes {
		n.Finalise()
		cumulative.Merge(n)
	}
	cumulative.Finalise()
	for _, l := range r.loggers {
		l.Log(cumulative)
	}

	r.loggers = nil
	r.nodes = nil
	r.stores = nil
	r.last = cumulative
	r.log.Debug("statistics reporting stopped")
	return cumulative
}

// Last returns the final snapshot of the previous reporting run, or nil
func (r *Reporter) Last() *stats.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reporter) snapshotLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.snapshot()
		}
	}
}

// snapshot consumes the period statistics of every registered node
func (r *Reporter) snapshot() {
	r.listMu.RLock()
	nodes := append([]*stats.Node(nil), r.nodes...)
	loggers := append([]StatsLogger(nil), r.loggers...)
	r.listMu.RUnlock()

	period := stats.NewNode()
	for _, n := range nodes {
		n.Each(func(c stats.Category, name string, s *stats.Stats) {
			period.Stats(c, name).Merge(s.PeriodStats())
		})
	}
	for _, l := range loggers {
		l.Log(period)
	}
}

func (r *Reporter) memoryLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.memoryInterval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.log.Warn("process memory unavailable", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reportMemory(ctx, proc)
		}
	}
}

func (r *Reporter) reportMemory(ctx context.Context, proc *process.Process) {
	rss := store.Unsupported
	if proc != nil {
		if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
			rss = int64(mem.RSS)
		}
	}

	r.listMu.RLock()
	stores := append([]store.Store(nil), r.stores...)
	loggers := append([]StatsLogger(nil), r.loggers...)
	r.listMu.RUnlock()

	for _, s := range stores {
		prober, ok := s.(store.FootprintProber)
		if !ok {
			continue
		}
		fp, err := prober.Footprint(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Warn("failed to read store footprint", zap.String("store", s.Name()), zap.Error(err))
			}
			continue
		}
		for _, l := range loggers {
			if fl, ok := l.(FootprintLogger); ok {
				fl.LogFootprint(s.Name(), fp, rss)
			}
		}
	}
}

func (r *Reporter) storeNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, s := range r.stores {
		add(s.Name())
	}
	for _, n := range r.nodes {
		for _, name := range n.Stores() {
			add(name)
		}
	}
	return names
}
