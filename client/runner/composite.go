package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csb/client/reporter"
	"csb/client/stats"
)

const (
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRetryInterval   = time.Second
	maxStackDump           = 1 << 20
)

// ErrShutdownTimeout is returned when drivers keep running after cancellation
var ErrShutdownTimeout = errors.New("drivers did not stop within the shutdown timeout")

// ParallelError collects the failures of the drivers of a Parallel run
type ParallelError struct {
	Total int
	err   error
}

func (e *ParallelError) Error() string {
	return fmt.Sprintf("%d of %d drivers failed: %v", len(e.Causes()), e.Total, e.err)
}

// Causes returns one error per failed driver
func (e *ParallelError) Causes() []error {
	return multierr.Errors(e.err)
}

func (e *ParallelError) Unwrap() []error {
	return e.Causes()
}

type ParallelOptions struct {
	// ShutdownTimeout bounds the wait for drivers after cancellation
	ShutdownTimeout time.Duration
	// RetryInterval is the pause between checks on drivers still running
	RetryInterval time.Duration
	Logger        *zap.Logger
}

// Parallel runs its drivers concurrently. A failing driver does not stop the others.
type Parallel struct {
	drivers []Driver
	opts    ParallelOptions
	log     *zap.Logger
	mu      sync.Mutex
	node    *stats.Node
}

func NewParallel(drivers []Driver, opts ParallelOptions) *Parallel {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Parallel{drivers: drivers, opts: opts, log: opts.Logger}
}

func (p *Parallel) Drivers() []Driver {
	return p.drivers
}

func (p *Parallel) Run(ctx context.Context) error {
	release := holdReporters(p.drivers)
	defer release()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		errs    = make([]error, len(p.drivers))
		running = make([]atomic.Bool, len(p.drivers))
		wg      sync.WaitGroup
	)
	for i, d := range p.drivers {
		wg.Add(1)
		running[i].Store(true)
		go func() {
			defer wg.Done()
			defer running[i].Store(false)
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("driver panicked", zap.Int("driver", i), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
					mu.Lock()
					errs[i] = fmt.Errorf("driver %d panicked: %v", i, r)
					mu.Unlock()
				}
			}()
			if err := d.Run(ctx); err != nil {
				mu.Lock()
				errs[i] = fmt.Errorf("driver %d: %w", i, err)
				mu.Unlock()
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
	case <-ctx.Done():
		shutdownErr = p.shutdown(cancel, done, running)
	}
	p.collectStats()

	var failures error
	mu.Lock()
	for _, err := range errs {
		failures = multierr.Append(failures, err)
	}
	mu.Unlock()
	if failures == nil {
		return shutdownErr
	}
	return multierr.Append(&ParallelError{Total: len(p.drivers), err: failures}, shutdownErr)
}

// shutdown waits for the drivers after cancellation, logging the stragglers every retry interval
func (p *Parallel) shutdown(cancel context.CancelFunc, done <-chan struct{}, running []atomic.Bool) error {
	cancel()
	deadline := time.NewTimer(p.opts.ShutdownTimeout)
	defer deadline.Stop()
	retry := time.NewTicker(p.opts.RetryInterval)
	defer retry.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-retry.C:
			p.log.Warn("waiting for drivers to stop", zap.Ints("drivers", stragglers(running)))
		case <-deadline.C:
			stuck := stragglers(running)
			buf := make([]byte, maxStackDump)
			buf = buf[:runtime.Stack(buf, true)]
			p.log.Error("drivers did not stop",
				zap.Ints("drivers", stuck),
				zap.Duration("timeout", p.opts.ShutdownTimeout),
				zap.ByteString("goroutines", buf))
			return fmt.Errorf("%w: %d still running after %v", ErrShutdownTimeout, len(stuck), p.opts.ShutdownTimeout)
		}
	}
}

func stragglers(running []atomic.Bool) []int {
	var out []int
	for i := range running {
		if running[i].Load() {
			out = append(out, i)
		}
	}
	return out
}

func (p *Parallel) collectStats() {
	node := stats.NewNode()
	for _, d := range p.drivers {
		node.Merge(d.Stats())
	}
	node.Finalise()
	p.mu.Lock()
	p.node = node
	p.mu.Unlock()
}

func (p *Parallel) feed() []*reporter.Reporter {
	return feedAll(p.drivers)
}

// Stats merges the statistics of all drivers once Run returned; before that it is empty
func (p *Parallel) Stats() *stats.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.node == nil {
		return stats.NewNode()
	}
	return p.node
}

// Sequential runs its drivers one after another and stops at the first error
type Sequential struct {
	drivers []Driver
}

func NewSequential(drivers ...Driver) *Sequential {
	return &Sequential{drivers: drivers}
}

func (s *Sequential) Run(ctx context.Context) error {
	release := holdReporters(s.drivers)
	defer release()
	for _, d := range s.drivers {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := d.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequential) feed() []*reporter.Reporter {
	return feedAll(s.drivers)
}

// Stats returns the statistics of the first driver
func (s *Sequential) Stats() *stats.Node {
	if len(s.drivers) == 0 {
		return stats.NewNode()
	}
	return s.drivers[0].Stats()
}

// feeder is implemented by drivers sending their statistics to a Reporter
type feeder interface {
	// feed registers the statistics and stores of the driver and returns the reporters it sends to
	feed() []*reporter.Reporter
}

func feedAll(drivers []Driver) []*reporter.Reporter {
	var reps []*reporter.Reporter
	for _, d := range drivers {
		f, ok := d.(feeder)
		if !ok {
			continue
		}
		for _, r := range f.feed() {
			if !slices.Contains(reps, r) {
				reps = append(reps, r)
			}
		}
	}
	return reps
}

// holdReporters starts every reporter the drivers send to and returns the matching stop.
// Holding the reference for the whole composite run keeps a driver finishing early from
// stopping a reporter its siblings still use.
func holdReporters(drivers []Driver) func() {
	reps := feedAll(drivers)
	for _, r := range reps {
		r.Start()
	}
	return func() {
		for _, r := range reps {
			r.Stop()
		}
	}
}
