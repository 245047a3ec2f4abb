// Package store defines the key-value capability the workload drivers exercise, and adapters
// for the stores the benchmark can target.
package store

import (
	"context"
)

// Store is the capability a workload runs against. Absent values are reported as nil with a
// nil error; errors are classified with Classify.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// PutIfAbsent stores value unless key exists and returns the existing value, or nil
	PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error)
	Remove(ctx context.Context, key string) (bool, error)
	// RemoveElement removes key only if it currently holds expected
	RemoveElement(ctx context.Context, key string, expected []byte) (bool, error)
	// Replace stores value only if key exists and returns the previous value, or nil
	Replace(ctx context.Context, key string, value []byte) ([]byte, error)
	// ReplaceElement stores newValue only if key currently holds oldValue
	ReplaceElement(ctx context.Context, key string, oldValue, newValue []byte) (bool, error)
	Size(ctx context.Context) (int64, error)
}

// Unsupported marks a footprint figure the store cannot report
const Unsupported int64 = -1

// Footprint is the memory/disk usage of a store in bytes
type Footprint struct {
	Heap    int64
	OffHeap int64
	Disk    int64
}

// FootprintProber is implemented by stores able to report their footprint
type FootprintProber interface {
	Footprint(ctx context.Context) (Footprint, error)
}

// DefaultOperationer is implemented by stores declaring which operation receives the
// share of the workload not assigned explicitly
type DefaultOperationer interface {
	DefaultOperation() string
}

// Closer is implemented by stores holding connections or files
type Closer interface {
	Close() error
}

// Close closes s if it holds resources
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
