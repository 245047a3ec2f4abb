package runner

import (
	"fmt"
	"math"
)

const ratioTolerance = 1e-9

type selection struct {
	desc     Descriptor
	min, max float64
}

// Selector maps a uniform draw in [0,1) onto the operation table. Every operation owns a
// half-open range [min, max) of width equal to its ratio, laid out in insertion order.
type Selector struct {
	ranges []selection
}

// NewSelector lays out ops and gives the uncovered remainder to def. def is skipped when it
// is nil or when it is already one of ops, in which case draws in the remainder select nothing.
func NewSelector(ops []Descriptor, def *Descriptor) (*Selector, error) {
	s := &Selector{}
	sum := 0.0
	for _, op := range ops {
		if op.Ratio < 0 || math.IsNaN(op.Ratio) {
			return nil, fmt.Errorf("%w: ratio of %s must not be negative", ErrConfiguration, op.Name)
		}
		if op.Effect == nil {
			return nil, fmt.Errorf("%w: operation %s has no effect", ErrConfiguration, op.Name)
		}
		s.ranges = append(s.ranges, selection{desc: op, min: sum, max: sum + op.Ratio})
		sum += op.Ratio
	}
	if sum > 1+ratioTolerance {
		return nil, fmt.Errorf("%w: operation ratios sum to %g, more than 1", ErrConfiguration, sum)
	}
	remainder := 1 - sum
	if def != nil && remainder > ratioTolerance && !s.has(def.Name) {
		d := *def
		d.Ratio = remainder
		s.ranges = append(s.ranges, selection{desc: d, min: sum, max: 1})
	}
	return s, nil
}

func (s *Selector) has(name Operation) bool {
	for _, r := range s.ranges {
		if r.desc.Name == name {
			return true
		}
	}
	return false
}

// Select returns the operation whose range holds u
func (s *Selector) Select(u float64) (Descriptor, bool) {
	for _, r := range s.ranges {
		if u >= r.min && u < r.max {
			return r.desc, true
		}
	}
	return Descriptor{}, false
}

// Descriptors returns the effective table, default operation included
func (s *Selector) Descriptors() []Descriptor {
	out := make([]Descriptor, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = r.desc
	}
	return out
}
