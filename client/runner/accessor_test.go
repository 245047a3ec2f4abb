package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"csb/client/reporter"
	"csb/client/stats"
	"csb/client/store"
)

func mixedAccessor(t *testing.T, s store.Store, term Condition, opts ...func(*ConfigBuilder)) *Accessor {
	b := NewConfig().
		Store(s).
		Ratio(OpPut, 0.5).
		Ratio(OpRemove, 0.1).
		Termination(term).
		Logger(zaptest.NewLogger(t))
	for _, o := range opts {
		o(b)
	}
	cfg, err := b.Build()
	require.NoError(t, err)
	acc, err := NewAccessor(cfg)
	require.NoError(t, err)
	return acc
}

func TestAccessorRunsExactlyNOperations(t *testing.T) {
	s := newCountingStore("kv")
	acc := mixedAccessor(t, s, IterationCount(500))
	require.NoError(t, acc.Run(context.Background()))

	assert.EqualValues(t, 500, s.total.Load())
	node := acc.Stats()
	require.True(t, node.Finalised())
	overall, err := node.Overall()
	require.NoError(t, err)
	assert.EqualValues(t, 500, overall.TxnCount())
	assert.EqualValues(t, s.Calls("put"), node.Get(stats.Write, "kv").TxnCount())
	assert.EqualValues(t, s.Calls("remove"), node.Get(stats.Remove, "kv").TxnCount())
	assert.EqualValues(t, s.Calls("get"), node.Get(stats.Read, "kv").TxnCount())
}

func TestAccessorIsDeterministic(t *testing.T) {
	a, b := newCountingStore("kv"), newCountingStore("kv")
	require.NoError(t, mixedAccessor(t, a, IterationCount(300)).Run(context.Background()))
	require.NoError(t, mixedAccessor(t, b, IterationCount(300)).Run(context.Background()))
	for _, op := range []string{"get", "put", "remove"} {
		assert.Equal(t, a.Calls(op), b.Calls(op), op)
	}
}

func TestAccessorCountsTransientFaults(t *testing.T) {
	s := newCountingStore("kv")
	s.err = status.Error(codes.Unavailable, "leader changed")
	acc := mixedAccessor(t, s, IterationCount(100))
	require.NoError(t, acc.Run(context.Background()))

	overall, err := acc.Stats().Overall()
	require.NoError(t, err)
	assert.Zero(t, overall.TxnCount())
	assert.EqualValues(t, 100, overall.Exceptions())
}

func TestAccessorStopsOnFatalFault(t *testing.T) {
	s := newCountingStore("kv")
	s.err = status.Error(codes.PermissionDenied, "no access")
	acc := mixedAccessor(t, s, IterationCount(100))
	err := acc.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, store.Fatal, store.Classify(err))
	assert.EqualValues(t, 1, s.total.Load())
}

func TestAccessorWithoutStatistics(t *testing.T) {
	s := newCountingStore("kv")
	acc := mixedAccessor(t, s, IterationCount(50), func(b *ConfigBuilder) { b.Statistics(false) })
	require.NoError(t, acc.Run(context.Background()))

	assert.EqualValues(t, 50, s.total.Load())
	assert.Empty(t, acc.Stats().Stores())
}

func TestAccessorStopsOnCancel(t *testing.T) {
	s := newCountingStore("kv")
	acc := mixedAccessor(t, s, Never(), func(b *ConfigBuilder) { b.ThinkTime(time.Millisecond) })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- acc.Run(ctx) }()

	assert.Eventually(t, func() bool { return s.total.Load() > 5 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("accessor ignored cancellation")
	}
}

func TestAccessorThinkTime(t *testing.T) {
	acc := mixedAccessor(t, newCountingStore("kv"), IterationCount(1), func(b *ConfigBuilder) { b.ThinkTime(time.Second) })
	assert.Equal(t, time.Second, acc.ThinkTime())
	acc.SetThinkTime(time.Millisecond)
	assert.Equal(t, time.Millisecond, acc.ThinkTime())
}

func TestAccessorReportsFinalStats(t *testing.T) {
	rep := reporter.New(reporter.Config{Interval: time.Hour, Logger: zaptest.NewLogger(t)})
	acc := mixedAccessor(t, newCountingStore("kv"), IterationCount(20), func(b *ConfigBuilder) { b.Reporter(rep) })
	require.NoError(t, acc.Run(context.Background()))

	final := rep.Last()
	require.NotNil(t, final)
	overall, err := final.Overall()
	require.NoError(t, err)
	assert.EqualValues(t, 20, overall.TxnCount())
	assert.Zero(t, rep.Refs())
}

func TestAccessorCapsWrites(t *testing.T) {
	s := newCountingStore("kv")
	acc := mixedAccessor(t, s, IterationCount(400), func(b *ConfigBuilder) {
		b.MaxWriteTPS(500)
	})
	start := time.Now()
	require.NoError(t, acc.Run(context.Background()))
	elapsed := time.Since(start)

	puts := s.Calls("put")
	require.Greater(t, puts, 100)
	// one token up front, then one every 2ms
	assert.GreaterOrEqual(t, elapsed, time.Duration(puts-1)*2*time.Millisecond)

	// waiting for a token is not part of the write latency
	node := acc.Stats()
	assert.Less(t, node.Get(stats.Write, "kv").Average(), float64(time.Millisecond/time.Microsecond))
}

func TestWriteCapLeavesReadsAlone(t *testing.T) {
	s := newCountingStore("kv")
	cfg, err := NewConfig().
		Store(s).
		Ratio(OpGet, 1).
		Termination(IterationCount(2000)).
		MaxWriteTPS(1).
		Build()
	require.NoError(t, err)
	acc, err := NewAccessor(cfg)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, acc.Run(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 2000, s.Calls("get"))
}

func TestWriteCapIsSharedByFillWorkers(t *testing.T) {
	s := newCountingStore("kv")
	cfg, err := NewConfig().Store(s).MaxWriteTPS(400).Build()
	require.NoError(t, err)
	loader, err := NewLoader(cfg)
	require.NoError(t, err)
	fill, err := loader.FillPartitioned(80, 8)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, fill.Run(context.Background()))
	// 8 workers together still get one token every 2.5ms
	assert.GreaterOrEqual(t, time.Since(start), 79*2500*time.Microsecond)
	assert.Equal(t, 80, s.Calls("put"))
}
