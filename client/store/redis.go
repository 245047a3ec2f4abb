package store

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Conditional operations run as scripts so check and write are atomic on the server
var (
	putIfAbsentScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then return cur end
redis.call('SET', KEYS[1], ARGV[1])
return false`)

	replaceScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then return false end
redis.call('SET', KEYS[1], ARGV[1])
return cur`)

	removeElementScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0`)

	replaceElementScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2])
  return 1
end
return 0`)
)

// RedisStore runs the workload against a redis server or cluster
type RedisStore struct {
	name   string
	client redis.UniversalClient
}

func NewRedisStore(name string, client redis.UniversalClient) *RedisStore {
	return &RedisStore{name: name, client: client}
}

// DialRedis connects to the given addresses; more than one address selects cluster mode
func DialRedis(name string, addrs []string) *RedisStore {
	return NewRedisStore(name, redis.NewUniversalClient(&redis.UniversalOptions{Addrs: addrs}))
}

func (r *RedisStore) Name() string {
	return r.name
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// nilIfMissing turns redis.Nil into an absent value
func nilIfMissing(v []byte, err error) ([]byte, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nilIfMissing(r.client.Get(ctx, key).Bytes())
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	return r.runBytes(ctx, putIfAbsentScript, key, value)
}

func (r *RedisStore) Remove(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, key).Result()
	return n > 0, err
}

func (r *RedisStore) RemoveElement(ctx context.Context, key string, expected []byte) (bool, error) {
	n, err := removeElementScript.Run(ctx, r.client, []string{key}, expected).Int64()
	return n > 0, err
}

func (r *RedisStore) Replace(ctx context.Context, key string, value []byte) ([]byte, error) {
	return r.runBytes(ctx, replaceScript, key, value)
}

func (r *RedisStore) ReplaceElement(ctx context.Context, key string, oldValue, newValue []byte) (bool, error) {
	n, err := replaceElementScript.Run(ctx, r.client, []string{key}, oldValue, newValue).Int64()
	return n > 0, err
}

func (r *RedisStore) runBytes(ctx context.Context, script *redis.Script, key string, value []byte) ([]byte, error) {
	s, err := script.Run(ctx, r.client, []string{key}, value).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (r *RedisStore) Size(ctx context.Context) (int64, error) {
	return r.client.DBSize(ctx).Result()
}

// Footprint reports used_memory from INFO memory as heap
func (r *RedisStore) Footprint(ctx context.Context) (Footprint, error) {
	fp := Footprint{Heap: Unsupported, OffHeap: Unsupported, Disk: Unsupported}
	info, err := r.client.Info(ctx, "memory").Result()
	if err != nil {
		return fp, err
	}
	if used, ok := parseInfoField(info, "used_memory"); ok {
		fp.Heap = used
	}
	return fp, nil
}

func parseInfoField(info, field string) (int64, bool) {
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		name, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !found || name != field {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		return n, err == nil
	}
	return 0, false
}
