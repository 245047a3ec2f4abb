package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csb/client/store"
)

func TestIterationCount(t *testing.T) {
	c := IterationCount(3)
	assert.False(t, c.IsMet())
	assert.False(t, c.IsMet())
	assert.True(t, c.IsMet())
	assert.True(t, c.IsMet())
}

func TestIterationCountShared(t *testing.T) {
	c := IterationCount(1000)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		met int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if c.IsMet() {
					mu.Lock()
					met++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600-999, met)
}

func TestWallClock(t *testing.T) {
	assert.False(t, WallClock(-1).IsMet(), "negative duration runs forever")

	c := WallClock(20 * time.Millisecond)
	assert.False(t, c.IsMet())
	assert.Eventually(t, c.IsMet, time.Second, 5*time.Millisecond)
}

func TestStoreFilled(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore("kv")
	require.NoError(t, s.Put(ctx, "seed", []byte("0")))
	c := StoreFilled(ctx, s)

	assert.True(t, c.IsMet(), "nothing was added since creation")

	require.NoError(t, s.Put(ctx, "a", []byte("1")))
	assert.False(t, c.IsMet())
	require.NoError(t, s.Put(ctx, "a", []byte("2")))
	assert.True(t, c.IsMet(), "overwrites do not grow the store")
}

func TestStoreFilledWaitsForEveryStore(t *testing.T) {
	ctx := context.Background()
	a, b := store.NewMemoryStore("a"), store.NewMemoryStore("b")
	c := StoreFilled(ctx, a, b)

	require.NoError(t, a.Put(ctx, "k1", []byte("v")))
	assert.False(t, c.IsMet(), "a grew")

	// a is flat now but b keeps growing
	for i := range 3 {
		require.NoError(t, b.Put(ctx, fmt.Sprintf("k%d", i), []byte("v")))
		assert.False(t, c.IsMet(), "b grew")
	}

	assert.True(t, c.IsMet(), "both flat")
	require.NoError(t, a.Put(ctx, "k2", []byte("v")))
	require.NoError(t, b.Put(ctx, "k9", []byte("v")))
	assert.False(t, c.IsMet())
	assert.True(t, c.IsMet())
}
