// Package storage provides the durable key-value store the test-taking
// engine persists through. The legacy client used browser localStorage;
// the server keeps the same get/set/remove contract so submission
// records and the completed-tests set stay key-compatible.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// KV is the durable key-value contract consumed by the engine.
// Implementations must tolerate being unavailable: callers degrade to
// in-memory operation rather than failing an exam session.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ─── In-memory store ────────────────────────────────────────────────

// MemoryStore is a mutex-guarded map. Used as the degradation target
// and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ─── Redis store ────────────────────────────────────────────────────

// RedisStore persists keys in Redis without expiry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// ─── Prefix namespace ───────────────────────────────────────────────

// PrefixStore namespaces every key of an inner store. The engine keys
// records as test_<id>_<field> per attempt; on a shared server store
// each student gets their own prefix so attempts never collide.
type PrefixStore struct {
	prefix string
	inner  KV
}

// NewPrefixStore wraps inner, prepending prefix to every key.
func NewPrefixStore(prefix string, inner KV) *PrefixStore {
	return &PrefixStore{prefix: prefix, inner: inner}
}

func (p *PrefixStore) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *PrefixStore) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

// ─── Degrading wrapper ──────────────────────────────────────────────

// FallbackStore writes through to a primary store and degrades to an
// in-memory fallback when the primary is unavailable, so a storage
// outage never blocks a submission. Degraded() exposes whether any
// write fell back, for the non-blocking "could not save" notice.
type FallbackStore struct {
	primary  KV
	fallback *MemoryStore
	log      zerolog.Logger

	mu       sync.Mutex
	degraded bool
}

// NewFallbackStore wraps primary with an in-memory fallback.
func NewFallbackStore(primary KV, log zerolog.Logger) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		fallback: NewMemoryStore(),
		log:      log.With().Str("component", "kv_store").Logger(),
	}
}

func (f *FallbackStore) Get(ctx context.Context, key string) (string, error) {
	v, err := f.primary.Get(ctx, key)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, ErrNotFound) {
		// The key may only exist in the fallback after a degraded write.
		return f.fallback.Get(ctx, key)
	}
	f.log.Warn().Err(err).Str("key", key).Msg("Primary store read failed, trying fallback")
	return f.fallback.Get(ctx, key)
}

func (f *FallbackStore) Set(ctx context.Context, key, value string) error {
	if err := f.primary.Set(ctx, key, value); err != nil {
		f.markDegraded(err, key)
		return f.fallback.Set(ctx, key, value)
	}
	// Keep the fallback coherent so degraded reads see latest values.
	_ = f.fallback.Set(ctx, key, value)
	return nil
}

func (f *FallbackStore) Remove(ctx context.Context, key string) error {
	_ = f.fallback.Remove(ctx, key)
	if err := f.primary.Remove(ctx, key); err != nil {
		f.markDegraded(err, key)
	}
	return nil
}

// Degraded reports whether any write has fallen back to memory.
func (f *FallbackStore) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

func (f *FallbackStore) markDegraded(err error, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.degraded {
		f.log.Warn().Err(err).Str("key", key).Msg("Primary store unavailable, continuing in-memory")
	}
	f.degraded = true
}
