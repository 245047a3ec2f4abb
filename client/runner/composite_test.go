package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"csb/client/reporter"
	"csb/client/stats"
)

func TestParallelCollectsEveryFailure(t *testing.T) {
	errA, errB := errors.New("a failed"), errors.New("b failed")
	p := NewParallel([]Driver{
		&stubDriver{err: errA},
		&stubDriver{},
		&stubDriver{err: errB},
		&stubDriver{panicky: true},
	}, ParallelOptions{Logger: zaptest.NewLogger(t)})

	err := p.Run(context.Background())
	var perr *ParallelError
	require.True(t, errors.As(err, &perr))
	assert.Len(t, perr.Causes(), 3)
	assert.Equal(t, 4, perr.Total)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "panicked")
}

func TestParallelSucceeds(t *testing.T) {
	s := newCountingStore("kv")
	drivers := []Driver{
		mixedAccessor(t, s, IterationCount(100)),
		mixedAccessor(t, s, IterationCount(100)),
	}
	p := NewParallel(drivers, ParallelOptions{})
	require.NoError(t, p.Run(context.Background()))

	assert.EqualValues(t, 200, s.total.Load())
	overall, err := p.Stats().Overall()
	require.NoError(t, err)
	assert.EqualValues(t, 200, overall.TxnCount())
}

func TestParallelStopsOnCancel(t *testing.T) {
	p := NewParallel([]Driver{&stubDriver{block: true}, &stubDriver{block: true}}, ParallelOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, p.Run(ctx))
}

func TestParallelShutdownTimeout(t *testing.T) {
	stuck := make(chan struct{})
	defer close(stuck)
	p := NewParallel([]Driver{&stubDriver{block: true}, &stubDriver{stuck: stuck}}, ParallelOptions{
		ShutdownTimeout: 100 * time.Millisecond,
		RetryInterval:   20 * time.Millisecond,
		Logger:          zaptest.NewLogger(t),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Run(ctx)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSequential(t *testing.T) {
	first := newCountingStore("first")
	second := newCountingStore("second")
	seq := NewSequential(
		mixedAccessor(t, first, IterationCount(10)),
		mixedAccessor(t, second, IterationCount(20)),
	)
	require.NoError(t, seq.Run(context.Background()))
	assert.EqualValues(t, 10, first.total.Load())
	assert.EqualValues(t, 20, second.total.Load())
	assert.Equal(t, []string{"first"}, seq.Stats().Stores())

	boom := errors.New("boom")
	third := newCountingStore("third")
	seq = NewSequential(&stubDriver{err: boom}, mixedAccessor(t, third, IterationCount(10)))
	assert.ErrorIs(t, seq.Run(context.Background()), boom)
	assert.Zero(t, third.total.Load())
}

// finalCounter counts the cumulative snapshots a reporter delivers
type finalCounter struct {
	mu     sync.Mutex
	finals int
}

func (f *finalCounter) LogMainHeader(_ []string, _ []string) {}

func (f *finalCounter) Log(node *stats.Node) {
	if !node.Finalised() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals++
}

func (f *finalCounter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finals
}

func reportedConfig(t *testing.T, s *countingStore, rep *reporter.Reporter) *ConfigBuilder {
	t.Helper()
	return NewConfig().Store(s).Reporter(rep).Logger(zaptest.NewLogger(t))
}

func TestFillPartitionedSharesReporter(t *testing.T) {
	for range 50 {
		rep := reporter.New(reporter.Config{Interval: time.Hour})
		counter := &finalCounter{}
		rep.AddLogger(counter)

		cfg, err := reportedConfig(t, newCountingStore("kv"), rep).Build()
		require.NoError(t, err)
		loader, err := NewLoader(cfg)
		require.NoError(t, err)
		fill, err := loader.FillPartitioned(64, 64)
		require.NoError(t, err)
		require.NoError(t, fill.Run(context.Background()))

		require.Equal(t, 1, counter.count(), "workers finishing early must not stop the reporter")
		require.Equal(t, 0, rep.Refs())
		overall, err := rep.Last().Overall()
		require.NoError(t, err)
		require.Equal(t, int64(64), overall.TxnCount())
	}
}

func TestNestedCompositesShareReporter(t *testing.T) {
	rep := reporter.New(reporter.Config{Interval: time.Hour})
	counter := &finalCounter{}
	rep.AddLogger(counter)
	s := newCountingStore("kv")

	loaderCfg, err := reportedConfig(t, s, rep).Build()
	require.NoError(t, err)
	loader, err := NewLoader(loaderCfg)
	require.NoError(t, err)
	fill, err := loader.FillPartitioned(40, 8)
	require.NoError(t, err)

	verifyCfg, err := reportedConfig(t, s, rep).
		Ratio(OpGet, 1).
		Validation(ValidationStrict).
		Termination(IterationCount(40)).
		Build()
	require.NoError(t, err)
	verify, err := NewAccessor(verifyCfg)
	require.NoError(t, err)

	require.NoError(t, NewSequential(fill, verify).Run(context.Background()))
	assert.Equal(t, 1, counter.count())
	assert.Equal(t, 0, rep.Refs())
	final := rep.Last()
	require.NotNil(t, final)
	assert.Equal(t, int64(40), final.Get(stats.Write, "kv").TxnCount())
	assert.Equal(t, int64(40), final.Get(stats.Read, "kv").TxnCount())
}
