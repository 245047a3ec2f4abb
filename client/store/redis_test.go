package store

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreSimpleOperations(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	s := NewRedisStore("redis", db)

	mock.ExpectGet("missing").RedisNil()
	v, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	mock.ExpectGet("k").SetVal("value")
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	mock.ExpectDel("k").SetVal(1)
	ok, err := s.Remove(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectDel("k").SetVal(0)
	ok, err = s.Remove(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectDBSize().SetVal(42)
	size, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), size)

	mock.ExpectInfo("memory").SetVal("# Memory\r\nused_memory:1048576\r\nused_memory_human:1.00M\r\n")
	fp, err := s.Footprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), fp.Heap)
	assert.Equal(t, Unsupported, fp.Disk)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreErrorsAreTransient(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore("redis", db)

	mock.ExpectGet("k").SetErr(errors.New("LOADING Redis is loading the dataset in memory"))
	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, Transient, Classify(err))
}

func TestParseInfoField(t *testing.T) {
	n, ok := parseInfoField("a:1\nused_memory:77\n", "used_memory")
	assert.True(t, ok)
	assert.Equal(t, int64(77), n)

	_, ok = parseInfoField("used_memory_human:1M\n", "used_memory")
	assert.False(t, ok)
}
