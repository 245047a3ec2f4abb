package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"csb/client/stats"
	"csb/client/store"
)

// countingStore counts the calls reaching the wrapped store and can fail them
type countingStore struct {
	store.Store
	mu    sync.Mutex
	calls map[string]int
	total atomic.Int64
	err   error
}

func newCountingStore(name string) *countingStore {
	return &countingStore{Store: store.NewMemoryStore(name), calls: make(map[string]int)}
}

func (c *countingStore) count(op string) error {
	c.mu.Lock()
	c.calls[op]++
	c.mu.Unlock()
	c.total.Add(1)
	return c.err
}

func (c *countingStore) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.count("get"); err != nil {
		return nil, err
	}
	return c.Store.Get(ctx, key)
}

func (c *countingStore) Put(ctx context.Context, key string, value []byte) error {
	if err := c.count("put"); err != nil {
		return err
	}
	return c.Store.Put(ctx, key, value)
}

func (c *countingStore) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	if err := c.count("putIfAbsent"); err != nil {
		return nil, err
	}
	return c.Store.PutIfAbsent(ctx, key, value)
}

func (c *countingStore) Remove(ctx context.Context, key string) (bool, error) {
	if err := c.count("remove"); err != nil {
		return false, err
	}
	return c.Store.Remove(ctx, key)
}

// stubDriver returns err from Run, or blocks until ctx is done, or ignores ctx entirely
type stubDriver struct {
	err     error
	block   bool
	stuck   chan struct{}
	panicky bool
	node    *stats.Node
}

func (d *stubDriver) Run(ctx context.Context) error {
	switch {
	case d.panicky:
		panic("boom")
	case d.stuck != nil:
		<-d.stuck
	case d.block:
		<-ctx.Done()
	}
	return d.err
}

func (d *stubDriver) Stats() *stats.Node {
	if d.node == nil {
		d.node = stats.NewNode()
	}
	return d.node
}
