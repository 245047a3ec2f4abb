package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func subConfig(t *testing.T, s *countingStore, weight float64) Config {
	cfg, err := NewConfig().Store(s).Ratio(OpPut, 1).Weight(weight).Build()
	require.NoError(t, err)
	return cfg
}

func TestWeightedAccessor(t *testing.T) {
	heavy, light, off := newCountingStore("heavy"), newCountingStore("light"), newCountingStore("off")
	w, err := NewWeightedAccessor(MultiConfig{
		Accessors: []Config{
			subConfig(t, heavy, 3),
			subConfig(t, light, 1),
			subConfig(t, off, 0),
		},
		Termination: IterationCount(4000),
		Statistics:  true,
	})
	require.NoError(t, err)
	require.NoError(t, w.Run(context.Background()))

	assert.EqualValues(t, 4000, heavy.total.Load()+light.total.Load())
	assert.Zero(t, off.total.Load())
	assert.InDelta(t, 3000, heavy.total.Load(), 200)

	node := w.Stats()
	require.True(t, node.Finalised())
	assert.Equal(t, []string{"heavy", "light", "off"}, node.Stores())
	overall, err := node.Overall()
	require.NoError(t, err)
	assert.EqualValues(t, 4000, overall.TxnCount())
}

func TestWeightedAccessorNeedsPositiveWeight(t *testing.T) {
	_, err := NewWeightedAccessor(MultiConfig{
		Accessors: []Config{subConfig(t, newCountingStore("kv"), 0)},
	})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewWeightedAccessor(MultiConfig{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPatternAccessorSharesTermination(t *testing.T) {
	a, b := newCountingStore("a"), newCountingStore("b")
	p, err := NewPatternAccessor(MultiConfig{
		Accessors:   []Config{subConfig(t, a, 1), subConfig(t, b, 1)},
		Termination: IterationCount(500),
		Statistics:  true,
		Logger:      zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	// every accessor stops at its first poll past the shared limit
	total := a.total.Load() + b.total.Load()
	assert.GreaterOrEqual(t, total, int64(500))
	assert.LessOrEqual(t, total, int64(501))
	overall, err := p.Stats().Overall()
	require.NoError(t, err)
	assert.Equal(t, total, overall.TxnCount())
}

type fakeTarget struct {
	mu      sync.Mutex
	think   time.Duration
	history []time.Duration
}

func (f *fakeTarget) SetThinkTime(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.think = d
	f.history = append(f.history, d)
}

func (f *fakeTarget) ThinkTime() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.think
}

func (f *fakeTarget) seen(d time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.history {
		if h == d {
			return true
		}
	}
	return false
}

func TestSpikePattern(t *testing.T) {
	targets := []*fakeTarget{{think: time.Millisecond}, {think: time.Millisecond}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Spike{Interval: time.Millisecond, Duration: 2 * time.Millisecond, ThinkTime: time.Hour}.
			Run(ctx, []ThinkTimer{targets[0], targets[1]})
	}()

	assert.Eventually(t, func() bool { return targets[0].seen(time.Hour) && targets[1].seen(time.Hour) },
		time.Second, time.Millisecond)
	cancel()
	<-done
	for _, target := range targets {
		assert.Zero(t, target.ThinkTime(), "spike resets think times")
	}
}

func TestWavePattern(t *testing.T) {
	targets := []*fakeTarget{{}, {}, {}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Wave{Interval: time.Millisecond, Steps: 4, StepInterval: time.Millisecond, MaxThinkTime: 8 * time.Millisecond}.
			Run(ctx, []ThinkTimer{targets[0], targets[1], targets[2]})
	}()

	assert.Eventually(t, func() bool {
		for _, target := range targets {
			if !target.seen(0) || !target.seen(2*time.Millisecond) {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestNormalPattern(t *testing.T) {
	target := &fakeTarget{think: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	Normal{}.Run(ctx, []ThinkTimer{target})
	assert.Empty(t, target.history)
}

type waveEvent struct {
	target int
	think  time.Duration
}

// sharedLog records think time changes of several targets in the order they happen
type sharedLog struct {
	mu     sync.Mutex
	events []waveEvent
}

func (l *sharedLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type loggedTarget struct {
	log   *sharedLog
	id    int
	think time.Duration
}

func (t *loggedTarget) SetThinkTime(d time.Duration) {
	t.log.mu.Lock()
	defer t.log.mu.Unlock()
	t.think = d
	t.log.events = append(t.log.events, waveEvent{t.id, d})
}

func (t *loggedTarget) ThinkTime() time.Duration {
	t.log.mu.Lock()
	defer t.log.mu.Unlock()
	return t.think
}

func TestWaveHandOff(t *testing.T) {
	const maxThink = 8 * time.Millisecond
	log := &sharedLog{}
	targets := make([]ThinkTimer, 3)
	for i := range targets {
		targets[i] = &loggedTarget{log: log, id: i}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Wave{Interval: time.Millisecond, Steps: 4, StepInterval: time.Millisecond, MaxThinkTime: maxThink}.Run(ctx, targets)
	}()
	// 3 initial settings, 4 steps of the first hand-off, 8 of the second
	require.Eventually(t, func() bool { return log.len() >= 15 }, 5*time.Second, time.Millisecond)
	cancel()
	<-done

	log.mu.Lock()
	events := append([]waveEvent(nil), log.events[:15]...)
	log.mu.Unlock()

	for i := range 3 {
		assert.Equal(t, waveEvent{i, maxThink}, events[i], "every target starts slowed down")
	}
	// first hand-off: only target 0 speeds up, there is no previous target
	assert.Equal(t, []waveEvent{{0, 6 * time.Millisecond}, {0, 4 * time.Millisecond}, {0, 2 * time.Millisecond}, {0, 0}},
		events[3:7])
	// second hand-off: target 0 slows down while target 1 speeds up in lockstep
	for step := 0; step < 4; step++ {
		prev, cur := events[7+2*step], events[8+2*step]
		assert.Equal(t, 0, prev.target)
		assert.Equal(t, 1, cur.target)
		assert.Equal(t, time.Duration(step+1)*2*time.Millisecond, prev.think)
		assert.Equal(t, maxThink, prev.think+cur.think, "think times move in lockstep")
	}
}
