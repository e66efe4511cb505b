package ports

import "context"

// KV is the storage engine contract: async get/set/remove of whole values,
// no transactions. Every call reports failure through its error.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}
