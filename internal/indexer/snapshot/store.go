package snapshot

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/redis"
)

// Store keeps encoded snapshots by name. Load returns ErrSnapshotNotFound
// when no snapshot of that name exists.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Deps are the shared clients a store may need.
type Deps struct {
	Redis *redis.Client
}

var openers = map[string]func(cfg config.IndexerConfig, deps Deps) (Store, error){
	"file": func(cfg config.IndexerConfig, _ Deps) (Store, error) {
		return NewFileStore(cfg.DataDir), nil
	},
	"bolt": func(cfg config.IndexerConfig, _ Deps) (Store, error) {
		return OpenBoltStore(cfg.DataDir)
	},
	"redis": func(_ config.IndexerConfig, deps Deps) (Store, error) {
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis snapshot store needs a redis client")
		}
		return NewRedisStore(deps.Redis), nil
	},
}

// Open returns the store named by cfg.Store.
func Open(cfg config.IndexerConfig, deps Deps) (Store, error) {
	open, ok := openers[cfg.Store]
	if !ok {
		return nil, fmt.Errorf("unsupported snapshot store %q", cfg.Store)
	}
	return open(cfg, deps)
}
