package store

import (
	"fmt"

	"go.uber.org/zap"
)

// Kinds of store the benchmark can target
const (
	KindMemory = "memory"
	KindBadger = "badger"
	KindRedis  = "redis"
	KindEtcd   = "etcd"
)

// Options selects and addresses a store
type Options struct {
	Kind      string
	Name      string
	Endpoints []string
	DataPath  string
	Logger    *zap.Logger
}

// Open creates the store described by opts
func Open(opts Options) (Store, error) {
	name := opts.Name
	if name == "" {
		name = opts.Kind
	}
	switch opts.Kind {
	case KindMemory:
		return NewMemoryStore(name), nil
	case KindBadger:
		return OpenBadger(name, opts.DataPath)
	case KindRedis:
		if len(opts.Endpoints) == 0 {
			return nil, fmt.Errorf("redis store needs at least one endpoint")
		}
		return DialRedis(name, opts.Endpoints), nil
	case KindEtcd:
		if len(opts.Endpoints) == 0 {
			return nil, fmt.Errorf("etcd store needs at least one endpoint")
		}
		return DialEtcd(name, opts.Endpoints, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown store kind %q", opts.Kind)
	}
}
