package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"csb/client/reporter"
	"csb/client/stats"
	"csb/control/constants"
)

// MultiConfig configures a driver over several accessors sharing one statistics node
type MultiConfig struct {
	Accessors []Config
	// Termination replaces the termination of every accessor
	Termination Condition
	Statistics  bool
	Reporter    *reporter.Reporter
	Logger      *zap.Logger
	Seed        int64
	// Pattern drives the think times of a PatternAccessor; nil means Normal
	Pattern AccessPattern
	// ShutdownTimeout and RetryInterval bound the stop of a PatternAccessor
	ShutdownTimeout time.Duration
	RetryInterval   time.Duration
}

func (mc *MultiConfig) defaults() error {
	if len(mc.Accessors) == 0 {
		return fmt.Errorf("%w: at least one accessor is required", ErrConfiguration)
	}
	if mc.Termination == nil {
		mc.Termination = Never()
	}
	if mc.Logger == nil {
		mc.Logger = zap.NewNop()
	}
	if mc.Seed == 0 {
		mc.Seed = constants.DEFAULT_SEED
	}
	if mc.Pattern == nil {
		mc.Pattern = Normal{}
	}
	return nil
}

type multiBase struct {
	cfg       MultiConfig
	accessors []*Accessor
	node      *stats.Node
}

func newMultiBase(mc MultiConfig) (*multiBase, error) {
	if err := mc.defaults(); err != nil {
		return nil, err
	}
	node := stats.NewNode()
	accessors := make([]*Accessor, 0, len(mc.Accessors))
	for _, cfg := range mc.Accessors {
		acc, err := newAccessor(cfg.withTermination(mc.Termination).withStatistics(mc.Statistics), node, false)
		if err != nil {
			return nil, err
		}
		accessors = append(accessors, acc)
	}
	return &multiBase{cfg: mc, accessors: accessors, node: node}, nil
}

func (m *multiBase) Stats() *stats.Node {
	return m.node
}

func (m *multiBase) Accessors() []*Accessor {
	return m.accessors
}

func (m *multiBase) startReporting() {
	for _, r := range m.feed() {
		r.Start()
	}
}

func (m *multiBase) feed() []*reporter.Reporter {
	if !m.cfg.Statistics || m.cfg.Reporter == nil {
		return nil
	}
	for _, acc := range m.accessors {
		m.cfg.Reporter.Register(m.node, acc.cfg.store)
	}
	return []*reporter.Reporter{m.cfg.Reporter}
}

func (m *multiBase) stopReporting() {
	m.node.Finalise()
	if m.cfg.Statistics && m.cfg.Reporter != nil {
		m.cfg.Reporter.Stop()
	}
}

// WeightedAccessor runs one thread that picks a sub-accessor per operation, with
// probability proportional to its weight. Accessors with weight <= 0 are never picked.
type WeightedAccessor struct {
	*multiBase
	cumulative []float64
	picks      []*Accessor
	rg         *rand.Rand
}

func NewWeightedAccessor(mc MultiConfig) (*WeightedAccessor, error) {
	base, err := newMultiBase(mc)
	if err != nil {
		return nil, err
	}
	w := &WeightedAccessor{multiBase: base, rg: rand.New(rand.NewSource(base.cfg.Seed))}
	total := 0.0
	for _, acc := range base.accessors {
		if acc.cfg.weight <= 0 {
			continue
		}
		total += acc.cfg.weight
		w.cumulative = append(w.cumulative, total)
		w.picks = append(w.picks, acc)
	}
	if len(w.picks) == 0 {
		return nil, fmt.Errorf("%w: no accessor has a positive weight", ErrConfiguration)
	}
	return w, nil
}

func (w *WeightedAccessor) pick() *Accessor {
	total := w.cumulative[len(w.cumulative)-1]
	u := w.rg.Float64() * total
	i := sort.SearchFloat64s(w.cumulative, u)
	// SearchFloat64s finds the first bound >= u; u on a bound belongs to the next range
	if i < len(w.cumulative) && w.cumulative[i] == u {
		i++
	}
	if i >= len(w.picks) {
		i = len(w.picks) - 1
	}
	return w.picks[i]
}

func (w *WeightedAccessor) Run(ctx context.Context) error {
	w.startReporting()
	defer w.stopReporting()
	for ctx.Err() == nil {
		acc := w.pick()
		if err := acc.step(ctx); err != nil {
			return err
		}
		if w.cfg.Termination.IsMet() {
			return nil
		}
		if !sleep(ctx, acc.ThinkTime()) {
			return nil
		}
	}
	return nil
}

// PatternAccessor runs every sub-accessor on its own thread under a shared termination
// while an AccessPattern changes their think times.
type PatternAccessor struct {
	*multiBase
}

func NewPatternAccessor(mc MultiConfig) (*PatternAccessor, error) {
	base, err := newMultiBase(mc)
	if err != nil {
		return nil, err
	}
	return &PatternAccessor{multiBase: base}, nil
}

func (p *PatternAccessor) Run(ctx context.Context) error {
	p.startReporting()
	defer p.stopReporting()

	drivers := make([]Driver, len(p.accessors))
	targets := make([]ThinkTimer, len(p.accessors))
	for i, acc := range p.accessors {
		drivers[i] = acc
		targets[i] = acc
	}
	par := NewParallel(drivers, ParallelOptions{
		ShutdownTimeout: p.cfg.ShutdownTimeout,
		RetryInterval:   p.cfg.RetryInterval,
		Logger:          p.cfg.Logger,
	})

	patternCtx, stopPattern := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.cfg.Pattern.Run(patternCtx, targets)
	}()
	err := par.Run(ctx)
	stopPattern()
	wg.Wait()
	return err
}
