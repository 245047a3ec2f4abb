package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"csb/client/store"
)

// Condition decides when a driver stops. Drivers poll it once after every operation.
type Condition interface {
	IsMet() bool
}

type never struct{}

func (never) IsMet() bool { return false }

// Never is a condition that is never met; the driver runs until its context is done
func Never() Condition {
	return never{}
}

type iterationCount struct {
	limit int64
	polls atomic.Int64
}

// IterationCount is met on the n-th poll. Shared between drivers, the n polls are spread over all of them.
func IterationCount(n int64) Condition {
	return &iterationCount{limit: n}
}

func (c *iterationCount) IsMet() bool {
	return c.polls.Add(1) >= c.limit
}

type wallClock struct {
	deadline time.Time
	eternal  bool
}

// WallClock is met once d has passed since its creation. A negative d is never met.
func WallClock(d time.Duration) Condition {
	return &wallClock{deadline: time.Now().Add(d), eternal: d < 0}
}

func (c *wallClock) IsMet() bool {
	return !c.eternal && time.Now().After(c.deadline)
}

type storeFilled struct {
	ctx    context.Context
	stores []store.Store
	mu     sync.Mutex
	marks  []int64
}

// StoreFilled is met on the first poll where no store grew beyond its high-water mark.
// The marks start at the sizes seen at creation.
func StoreFilled(ctx context.Context, stores ...store.Store) Condition {
	marks := make([]int64, len(stores))
	for i, s := range stores {
		size, err := s.Size(ctx)
		if err != nil {
			size = -1
		}
		marks[i] = size
	}
	return &storeFilled{ctx: ctx, stores: stores, marks: marks}
}

func (c *storeFilled) IsMet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	grew := false
	for i, s := range c.stores {
		size, err := s.Size(c.ctx)
		if err != nil {
			// unknown size counts as growth
			grew = true
			continue
		}
		if size > c.marks[i] {
			c.marks[i] = size
			grew = true
		}
	}
	return !grew
}
