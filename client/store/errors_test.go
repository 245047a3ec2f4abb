package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"explicit fatal", fmt.Errorf("%w: disk gone", ErrFatal), Fatal},
		{"explicit timeout", fmt.Errorf("%w: slow", ErrTimeout), Timeout},
		{"explicit transient", ErrTransient, Transient},
		{"context deadline", context.DeadlineExceeded, Timeout},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), Timeout},
		{"context canceled", context.Canceled, Transient},
		{"badger conflict", badger.ErrConflict, Transient},
		{"badger closed", badger.ErrDBClosed, Fatal},
		{"etcd timeout", rpctypes.ErrTimeout, Timeout},
		{"etcd permission", rpctypes.ErrPermissionDenied, Fatal},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), Transient},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), Timeout},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "who"), Fatal},
		{"unknown", errors.New("boom"), Transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
