package cache

import (
	"context"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBackend — кэш в памяти процесса, используется без Redis
type MemoryBackend struct {
	store *gocache.Cache
}

// NewMemoryBackend создаёт кэш с периодической чисткой просроченных ключей
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	return &MemoryBackend{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := b.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	raw, _ := v.([]byte)
	return raw, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.store.Set(key, value, ttl)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.store.Delete(key)
	return nil
}

// DeleteByPattern сопоставляет ключи по правилам path.Match, близким к glob в Redis
func (b *MemoryBackend) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range b.store.Items() {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if ok {
			b.store.Delete(key)
		}
	}
	return nil
}

func (b *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	_, ok := b.store.Get(key)
	return ok, nil
}
