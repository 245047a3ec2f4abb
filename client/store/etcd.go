package store

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// EtcdStore runs the workload against an etcd cluster. Conditional operations are
// transactions comparing the create revision or the current value of the key.
type EtcdStore struct {
	name      string
	client    *clientv3.Client
	endpoints []string
}

// DialEtcd connects to the given endpoints
func DialEtcd(name string, endpoints []string, logger *zap.Logger) (*EtcdStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &EtcdStore{name: name, client: cli, endpoints: endpoints}, nil
}

func (e *EtcdStore) Name() string {
	return e.name
}

func (e *EtcdStore) Close() error {
	return e.client.Close()
}

func (e *EtcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := e.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return resp.Kvs[0].Value, nil
}

func (e *EtcdStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := e.client.Put(ctx, key, string(value))
	return err
}

func (e *EtcdStore) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(value))).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil || resp.Succeeded {
		return nil, err
	}
	kvs := resp.Responses[0].GetResponseRange().GetKvs()
	if len(kvs) == 0 {
		return nil, nil
	}
	return kvs[0].Value, nil
}

func (e *EtcdStore) Remove(ctx context.Context, key string) (bool, error) {
	resp, err := e.client.Delete(ctx, key)
	if err != nil {
		return false, err
	}
	return resp.Deleted > 0, nil
}

func (e *EtcdStore) RemoveElement(ctx context.Context, key string, expected []byte) (bool, error) {
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", string(expected))).
		Then(clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

func (e *EtcdStore) Replace(ctx context.Context, key string, value []byte) ([]byte, error) {
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), ">", 0)).
		Then(clientv3.OpPut(key, string(value), clientv3.WithPrevKV())).
		Commit()
	if err != nil || !resp.Succeeded {
		return nil, err
	}
	prev := resp.Responses[0].GetResponsePut().GetPrevKv()
	if prev == nil {
		return nil, nil
	}
	return prev.Value, nil
}

func (e *EtcdStore) ReplaceElement(ctx context.Context, key string, oldValue, newValue []byte) (bool, error) {
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", string(oldValue))).
		Then(clientv3.OpPut(key, string(newValue))).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

// Size counts every key of the keyspace without fetching values
func (e *EtcdStore) Size(ctx context.Context) (int64, error) {
	resp, err := e.client.Get(ctx, "\x00", clientv3.WithFromKey(), clientv3.WithCountOnly())
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Footprint reports the backend database size of the first reachable endpoint as disk usage
func (e *EtcdStore) Footprint(ctx context.Context) (Footprint, error) {
	fp := Footprint{Heap: Unsupported, OffHeap: Unsupported, Disk: Unsupported}
	var lastErr error
	for _, ep := range e.endpoints {
		resp, err := e.client.Status(ctx, ep)
		if err != nil {
			lastErr = err
			continue
		}
		fp.Disk = resp.DbSize
		return fp, nil
	}
	return fp, lastErr
}
