package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
// El janitor de go-cache barre entradas expiradas en background, así el
// store acota memoria aunque los flujos queden abandonados.
type memoryClient struct {
	c  *gocache.Cache
	mu sync.Mutex // serializa Take (go-cache no tiene get-and-delete atómico)
}

// NewMemory crea un cliente de cache en memoria.
// sweepInterval controla cada cuánto corre el janitor (default 1m).
func NewMemory(defaultTTL, sweepInterval time.Duration) Client {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &memoryClient{c: gocache.New(defaultTTL, sweepInterval)}
}

func (m *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

func (m *memoryClient) Take(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	m.c.Delete(key)
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *memoryClient) Ping(ctx context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}
