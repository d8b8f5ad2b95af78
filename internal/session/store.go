package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 2 * time.Hour

	redisKeyPrefix = "sanctuary:session:"
)

// Store keeps session state between requests. Load returns ErrNotFound for
// unknown or expired ids.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore holds sessions in process memory and forgets them after ttl.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: cache.New(ttl, ttl/4)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	if x, found := m.cache.Get(id); found {
		return x.(State).Clone(), nil
	}
	return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (m *MemoryStore) Save(_ context.Context, state State) error {
	m.cache.Set(state.ID, state.Clone(), cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len reports how many sessions are currently held.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}

// RedisStore keeps sessions as JSON values so several server processes can
// share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (State, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return State{}, fmt.Errorf("redis get session failed: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := r.client.Set(ctx, r.key(state.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (r *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}
