package store

import (
	"context"
	"errors"
	"net"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// Kind is the class of a store error
type Kind int

const (
	// Transient faults are counted and the workload carries on
	Transient Kind = iota
	// Timeout faults are counted and the workload carries on
	Timeout
	// Fatal faults stop the driver
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Timeout:
		return "timeout"
	default:
		return "fatal"
	}
}

var (
	ErrTransient = errors.New("transient store fault")
	ErrTimeout   = errors.New("store operation timed out")
	ErrFatal     = errors.New("fatal store fault")
)

// Classify maps an error returned by a store onto the error taxonomy. Anything not
// recognised is treated as a transient fault.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrFatal):
		return Fatal
	case errors.Is(err, ErrTimeout):
		return Timeout
	case errors.Is(err, ErrTransient):
		return Transient
	case errors.Is(err, context.DeadlineExceeded):
		// ctx is attached with a deadline and it exceeded
		return Timeout
	case errors.Is(err, context.Canceled):
		// ctx is canceled by another routine
		return Transient
	case errors.Is(err, rpctypes.ErrTimeout),
		errors.Is(err, rpctypes.ErrTimeoutDueToLeaderFail),
		errors.Is(err, rpctypes.ErrTimeoutDueToConnectionLost):
		return Timeout
	case errors.Is(err, badger.ErrConflict):
		return Transient
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, redis.ErrClosed):
		return Fatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	var etcdErr rpctypes.EtcdError
	if errors.As(err, &etcdErr) {
		// etcd client rpc error
		return classifyCode(etcdErr.Code())
	}
	if ev, ok := status.FromError(err); ok {
		// gRPC status error
		return classifyCode(ev.Code())
	}
	if clientv3.IsConnCanceled(err) {
		// gRPC client connection closed
		return Fatal
	}
	return Transient
}

func classifyCode(code codes.Code) Kind {
	switch code {
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.Unimplemented:
		return Fatal
	default:
		return Transient
	}
}
