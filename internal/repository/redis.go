package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// VersionKey tracks the global glossary version for change detection
	VersionKey = "glossary:version"

	// RevokedPrefix namespaces revoked session token ids
	RevokedPrefix = "glossary:revoked:"
)

// RedisRepository handles all Redis operations
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// BumpGlossaryVersion increments the version counter after a rating-affecting write
func (r *RedisRepository) BumpGlossaryVersion(ctx context.Context) error {
	return r.client.Incr(ctx, VersionKey).Err()
}

// GetGlossaryVersion returns the current global version number
func (r *RedisRepository) GetGlossaryVersion(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // Version not set yet
		}
		return 0, err
	}
	return version, nil
}

// Revoke marks a session token id as revoked until it would have expired anyway
func (r *RedisRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, RevokedPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether a session token id has been revoked
func (r *RedisRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, RevokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// MemoryKV is the in-process stand-in for RedisRepository used by tests and
// the memory store driver
type MemoryKV struct {
	mu      sync.Mutex
	version int64
	revoked map[string]time.Time
}

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{revoked: make(map[string]time.Time)}
}

func (m *MemoryKV) BumpGlossaryVersion(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	return nil
}

func (m *MemoryKV) GetGlossaryVersion(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

func (m *MemoryKV) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryKV) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(m.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryKV) Ping(ctx context.Context) error {
	return nil
}
