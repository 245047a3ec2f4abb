package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"csb/client/reporter"
	"csb/client/stats"
	"csb/client/store"
	"csb/data-generator/sequence"
)

// Driver runs a workload against one or more stores
type Driver interface {
	// Run blocks until the termination condition is met, ctx is done or a fatal error occurs
	Run(ctx context.Context) error
	// Stats returns the statistics collected so far
	Stats() *stats.Node
}

// ThinkTimer is a driver whose pause between operations can be changed while it runs
type ThinkTimer interface {
	SetThinkTime(d time.Duration)
	ThinkTime() time.Duration
}

// Accessor draws operations from its table and runs them against a single store
type Accessor struct {
	cfg       Config
	env       *Env
	selector  *Selector
	seq       sequence.Sequence
	rg        *rand.Rand
	node      *stats.Node
	owned     bool
	byCat     [3]*stats.Stats
	thinkTime atomic.Int64
	log       *zap.Logger
}

func NewAccessor(cfg Config) (*Accessor, error) {
	return newAccessor(cfg, stats.NewNode(), true)
}

// newAccessor records into node. An accessor that does not own its node leaves
// reporting and finalisation to its parent.
func newAccessor(cfg Config, node *stats.Node, owned bool) (*Accessor, error) {
	if cfg.store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrConfiguration)
	}
	def, err := cfg.defaultDescriptor()
	if err != nil {
		return nil, err
	}
	sel, err := NewSelector(cfg.ops, def)
	if err != nil {
		return nil, err
	}
	a := &Accessor{
		cfg: cfg,
		env: &Env{
			Store:     cfg.store,
			Keys:      cfg.keys,
			Values:    cfg.values,
			Mode:      cfg.validation,
			Validator: cfg.validator,
		},
		selector: sel,
		seq:      cfg.sequence.Sequence(),
		rg:       rand.New(rand.NewSource(cfg.seed)),
		node:     node,
		owned:    owned,
		log:      cfg.logger.With(zap.String("store", cfg.store.Name())),
	}
	if cfg.statistics {
		for _, c := range stats.Categories {
			a.byCat[c] = node.Stats(c, cfg.store.Name())
		}
	}
	a.thinkTime.Store(int64(cfg.thinkTime))
	return a, nil
}

func (a *Accessor) Stats() *stats.Node {
	return a.node
}

func (a *Accessor) Config() Config {
	return a.cfg
}

// Operations returns the effective operation table
func (a *Accessor) Operations() []Descriptor {
	return a.selector.Descriptors()
}

func (a *Accessor) SetThinkTime(d time.Duration) {
	a.thinkTime.Store(int64(d))
}

func (a *Accessor) ThinkTime() time.Duration {
	return time.Duration(a.thinkTime.Load())
}

func (a *Accessor) Run(ctx context.Context) error {
	if a.owned {
		a.startReporting()
		defer a.stopReporting()
	}
	a.log.Debug("accessor started", zap.Int("operations", len(a.selector.ranges)))
	err := a.loop(ctx, a.cfg.termination)
	a.log.Debug("accessor stopped", zap.Error(err))
	return err
}

func (a *Accessor) loop(ctx context.Context, term Condition) error {
	for ctx.Err() == nil {
		if err := a.step(ctx); err != nil {
			return err
		}
		if term.IsMet() {
			return nil
		}
		if !sleep(ctx, a.ThinkTime()) {
			return nil
		}
	}
	return nil
}

func (a *Accessor) startReporting() {
	for _, r := range a.feed() {
		r.Start()
	}
}

func (a *Accessor) feed() []*reporter.Reporter {
	if !a.owned || !a.cfg.statistics || a.cfg.reporter == nil {
		return nil
	}
	a.cfg.reporter.Register(a.node, a.cfg.store)
	return []*reporter.Reporter{a.cfg.reporter}
}

func (a *Accessor) stopReporting() {
	a.node.Finalise()
	if a.cfg.statistics && a.cfg.reporter != nil {
		a.cfg.reporter.Stop()
	}
}

// step runs one drawn operation. Transient and timeout faults are counted as exceptions;
// fatal faults and validation failures are returned.
func (a *Accessor) step(ctx context.Context) error {
	seed := a.seq.Next()
	d, ok := a.selector.Select(a.rg.Float64())
	if !ok {
		return nil
	}
	if d.Category == stats.Write && !a.throttle(ctx) {
		return nil
	}
	opCtx := ctx
	if a.cfg.opTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, a.cfg.opTimeout)
		defer cancel()
	}
	if !a.cfg.statistics {
		return a.fault(ctx, d, seed, nil, d.Effect(opCtx, seed, a.env))
	}
	st := a.byCat[d.Category]
	start := time.Now()
	err := d.Effect(opCtx, seed, a.env)
	latency := time.Since(start)
	if err == nil {
		st.Add(latency)
		return nil
	}
	return a.fault(ctx, d, seed, st, err)
}

// throttle waits for a write token and reports false when ctx ends first. The wait is
// not part of the measured latency.
func (a *Accessor) throttle(ctx context.Context) bool {
	if a.cfg.writes == nil {
		return true
	}
	if err := a.cfg.writes.Wait(ctx); err != nil {
		// the token would only be granted after the ctx deadline
		<-ctx.Done()
		return false
	}
	return true
}

func (a *Accessor) fault(ctx context.Context, d Descriptor, seed int64, st *stats.Stats, err error) error {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	// interrupted by the caller, not a store fault
	if ctx.Err() != nil {
		return nil
	}
	kind := store.Classify(err)
	if kind == store.Fatal {
		return fmt.Errorf("%s on store %s: %w", d.Name, a.cfg.store.Name(), err)
	}
	if st != nil {
		st.AddException()
	}
	a.log.Debug("operation failed",
		zap.String("operation", string(d.Name)),
		zap.Int64("seed", seed),
		zap.Stringer("kind", kind),
		zap.Error(err))
	return nil
}

// sleep waits for d and reports false when ctx is done first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
