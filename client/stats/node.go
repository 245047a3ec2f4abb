package stats

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFinalised is returned when the overall stats are read before Finalise
var ErrNotFinalised = errors.New("stats node is not finalised")

// Category groups operations for reporting
type Category int

const (
	Read Category = iota
	Write
	Remove
)

// Categories lists every category in reporting order
var Categories = []Category{Read, Write, Remove}

func (c Category) String() string {
	switch c {
	case Read:
		return "read"
	case Write:
		return "write"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Node aggregates Stats per store name and category
type Node struct {
	mu        sync.RWMutex
	stats     map[Category]map[string]*Stats
	overall   *Stats
	finalised bool
}

func NewNode() *Node {
	return &Node{
		stats: map[Category]map[string]*Stats{
			Read:   {},
			Write:  {},
			Remove: {},
		},
	}
}

// Stats returns the Stats of a store and category, creating it on first use
func (n *Node) Stats(c Category, store string) *Stats {
	return n.statsAt(c, store, time.Now())
}

func (n *Node) statsAt(c Category, store string, start time.Time) *Stats {
	n.mu.RLock()
	s, ok := n.stats[c][store]
	n.mu.RUnlock()
	if ok {
		return s
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok = n.stats[c][store]; ok {
		return s
	}
	s = newAt(start)
	n.stats[c][store] = s
	return s
}

// Add registers an existing Stats, replacing any previous one for the same store and category
func (n *Node) Add(c Category, store string, s *Stats) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats[c][store] = s
}

// Get returns the Stats of a store and category, or nil
func (n *Node) Get(c Category, store string) *Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats[c][store]
}

// Stores returns the sorted names of every store with at least one Stats
func (n *Node) Stores() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	seen := make(map[string]bool)
	for _, byStore := range n.stats {
		for name := range byStore {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each calls fn for every Stats, by category then store name
func (n *Node) Each(fn func(c Category, store string, s *Stats)) {
	stores := n.Stores()
	for _, c := range Categories {
		for _, name := range stores {
			if s := n.Get(c, name); s != nil {
				fn(c, name, s)
			}
		}
	}
}

// Merge adds every Stats of other into the matching Stats of n. Stats created by the merge
// start when their source started.
func (n *Node) Merge(other *Node) {
	other.Each(func(c Category, store string, s *Stats) {
		n.statsAt(c, store, s.Start()).Merge(s)
	})
}

// Finalise finalises every child and computes the overall Stats across all stores and categories
func (n *Node) Finalise() {
	var children []*Stats
	n.Each(func(_ Category, _ string, s *Stats) {
		s.Finalise()
		children = append(children, s)
	})
	overall := Sum(children...)
	// no children: an empty span ending now
	overall.Finalise()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.finalised {
		return
	}
	n.overall = overall
	n.finalised = true
}

func (n *Node) Finalised() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.finalised
}

// Overall returns the Stats summed over every store and category
func (n *Node) Overall() (*Stats, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.finalised {
		return nil, ErrNotFinalised
	}
	return n.overall, nil
}
