// Description: This package provides the seed sequences that drive the workload. A generator hands out
// one Sequence per worker; every value a Sequence returns is a seed for the key/value generators.
package sequence

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
)

// ErrInvalidSequence is returned when a sequence generator is configured with an impossible range
var ErrInvalidSequence = errors.New("invalid sequence configuration")

// Sequence is a cursor over seeds
type Sequence interface {
	Next() int64
}

// Generator creates sequences, normally one per worker goroutine
type Generator interface {
	Sequence() Sequence
}

// Distribution of a random sequence
type Distribution string

const (
	Flat     Distribution = "flat"
	Gaussian Distribution = "gaussian"
)

type counter struct {
	next   atomic.Int64
	stride int64
}

// Next returns the current value and advances the cursor by the stride
func (c *counter) Next() int64 {
	return c.next.Add(c.stride) - c.stride
}

// SequentialGenerator hands out cursors counting up from an offset
type SequentialGenerator struct {
	offset int64
}

func NewSequential(offset int64) *SequentialGenerator {
	return &SequentialGenerator{offset: offset}
}

// Offset is the first value of every cursor
func (g *SequentialGenerator) Offset() int64 {
	return g.offset
}

func (g *SequentialGenerator) Sequence() Sequence {
	c := &counter{stride: 1}
	c.next.Store(g.offset)
	return c
}

// PartitionedGenerator hands out cursors returning offset, offset+stride, offset+2*stride, ...
// Stride generators with offsets base..base+stride-1 cover a contiguous range without overlap.
type PartitionedGenerator struct {
	offset int64
	stride int64
}

func NewPartitioned(offset, stride int64) (*PartitionedGenerator, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("%w: stride %d must be positive", ErrInvalidSequence, stride)
	}
	return &PartitionedGenerator{offset: offset, stride: stride}, nil
}

// Partition splits the key space starting at base into n disjoint generators
func Partition(base int64, n int) ([]*PartitionedGenerator, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: partition count %d must be positive", ErrInvalidSequence, n)
	}
	parts := make([]*PartitionedGenerator, n)
	for i := range n {
		p, err := NewPartitioned(base+int64(i), int64(n))
		if err != nil {
			return nil, err
		}
		parts[i] = p
	}
	return parts, nil
}

func (g *PartitionedGenerator) Sequence() Sequence {
	c := &counter{stride: g.stride}
	c.next.Store(g.offset)
	return c
}

// RandomGenerator hands out cursors drawing seeds in [min, max)
type RandomGenerator struct {
	dist  Distribution
	min   int64
	max   int64
	width float64
	seed  int64
	count atomic.Int64
}

// NewRandom creates a random generator. For Gaussian draws width is the standard deviation
// around the middle of the range.
func NewRandom(dist Distribution, min, max, width, seed int64) (*RandomGenerator, error) {
	if max <= min {
		return nil, fmt.Errorf("%w: empty range [%d, %d)", ErrInvalidSequence, min, max)
	}
	// the width max-min must fit an int64
	if max-min <= 0 {
		return nil, fmt.Errorf("%w: range [%d, %d) is wider than an int64", ErrInvalidSequence, min, max)
	}
	switch dist {
	case Flat:
	case Gaussian:
		if width <= 0 {
			return nil, fmt.Errorf("%w: gaussian width %d must be positive", ErrInvalidSequence, width)
		}
	default:
		return nil, fmt.Errorf("%w: unknown distribution %q", ErrInvalidSequence, dist)
	}
	return &RandomGenerator{dist: dist, min: min, max: max, width: float64(width), seed: seed}, nil
}

// Sequence returns a cursor with its own RNG. The n-th cursor of a generator is always
// seeded the same way, so runs are reproducible.
func (g *RandomGenerator) Sequence() Sequence {
	id := g.count.Add(1) - 1
	return &randomSequence{
		gen: g,
		rg:  NewRand(g.seed, id),
	}
}

type randomSequence struct {
	gen *RandomGenerator
	rg  *rand.Rand
}

func (s *randomSequence) Next() int64 {
	g := s.gen
	if g.dist == Flat {
		return g.min + s.rg.Int63n(g.max-g.min)
	}
	mean := float64(g.min) + float64(g.max-g.min)/2
	for {
		candidate := int64(math.Floor(mean + s.rg.NormFloat64()*g.width))
		if candidate >= g.min && candidate < g.max {
			return candidate
		}
	}
}

// NewRand creates a unique but deterministic RNG for a worker
func NewRand(seed int64, id int64) *rand.Rand {
	return rand.New(rand.NewSource(seed + id))
}
