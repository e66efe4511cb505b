package dataset

import (
	"context"
	"fmt"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/ports"
)

// Key is the store key holding the whole dataset.
const Key = "trackedReels"

// Repository reads and writes the dataset as one value. It does no
// locking of its own; callers serialize read-modify-write cycles.
type Repository struct {
	kv    ports.KV
	codec Codec
}

func NewRepository(kv ports.KV, codec Codec) *Repository {
	if codec == nil {
		codec = JSON{}
	}
	return &Repository{kv: kv, codec: codec}
}

// Init stores an empty dataset if none exists yet.
func (r *Repository) Init(ctx context.Context) (created bool, err error) {
	_, found, err := r.kv.Get(ctx, Key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", Key, err)
	}
	if found {
		return false, nil
	}
	if err := r.Save(ctx, domain.Dataset{}); err != nil {
		return false, err
	}
	return true, nil
}

// Load returns the stored dataset; a missing key is an empty dataset.
func (r *Repository) Load(ctx context.Context) (domain.Dataset, error) {
	raw, found, err := r.kv.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Key, err)
	}
	if !found || len(raw) == 0 {
		return domain.Dataset{}, nil
	}
	d, err := r.codec.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s (%s): %w", Key, r.codec.Name(), err)
	}
	if d == nil {
		d = domain.Dataset{}
	}
	return d, nil
}

func (r *Repository) Save(ctx context.Context, d domain.Dataset) error {
	raw, err := r.codec.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode %s (%s): %w", Key, r.codec.Name(), err)
	}
	if err := r.kv.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("write %s: %w", Key, err)
	}
	return nil
}
