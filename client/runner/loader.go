package runner

import (
	"fmt"

	"csb/data-generator/sequence"
)

// Loader is an accessor restricted to put and putIfAbsent, used to populate stores
type Loader struct {
	*Accessor
	cfg Config
}

// NewLoader accepts only write operations; put is the default operation
func NewLoader(cfg Config) (*Loader, error) {
	for _, op := range cfg.ops {
		if op.Name != OpPut && op.Name != OpPutIfAbsent {
			return nil, fmt.Errorf("%w: loader does not support %s", ErrConfiguration, op.Name)
		}
	}
	if cfg.defaultOp == "" {
		cfg.defaultOp = OpPut
	}
	if cfg.defaultOp != OpPut && cfg.defaultOp != OpPutIfAbsent {
		return nil, fmt.Errorf("%w: loader does not support default operation %s", ErrConfiguration, cfg.defaultOp)
	}
	acc, err := NewAccessor(cfg)
	if err != nil {
		return nil, err
	}
	return &Loader{Accessor: acc, cfg: cfg}, nil
}

// FillPartitioned returns a driver writing count entries with the given number of threads.
// Every thread owns a disjoint stride of the seed range, so the union of seeds is exactly
// base..base+count-1 where base is the offset of a sequential generator, else 0.
func (l *Loader) FillPartitioned(count int64, threads int) (*Parallel, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: fill count %d must be positive", ErrConfiguration, count)
	}
	if threads <= 0 {
		return nil, fmt.Errorf("%w: thread count %d must be positive", ErrConfiguration, threads)
	}
	if int64(threads) > count {
		threads = int(count)
	}
	var base int64
	if s, ok := l.cfg.sequence.(*sequence.SequentialGenerator); ok {
		base = s.Offset()
	}
	parts, err := sequence.Partition(base, threads)
	if err != nil {
		return nil, err
	}
	per, rest := count/int64(threads), count%int64(threads)
	drivers := make([]Driver, 0, threads)
	for i, part := range parts {
		n := per
		if int64(i) < rest {
			n++
		}
		cfg := l.cfg.withSequence(part).
			withTermination(IterationCount(n)).
			withSeed(l.cfg.seed + int64(i))
		worker, err := NewLoader(cfg)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, worker)
	}
	return NewParallel(drivers, ParallelOptions{Logger: l.cfg.logger}), nil
}
