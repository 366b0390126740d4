// Redis-backed store. The whole world state lives under one key as a JSON
// document; a save is a single SET, so it is atomic by construction.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const worldKey = "petpack:world"

// Redis is a Store over a Redis connection.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to the given address and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// SaveWorld replaces the stored world with ws.
func (r *Redis) SaveWorld(ctx context.Context, ws *WorldState) error {
	slog.Info("saving world", "backend", "redis", "pets", len(ws.Pets), "tick", ws.Tick)
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("encode world: %w", err)
	}
	if err := r.client.Set(ctx, worldKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set world: %w", err)
	}
	slog.Info("world saved", "backend", "redis")
	return nil
}

// LoadWorld fetches and decodes the stored world. ErrNoWorld means nothing
// was ever saved.
func (r *Redis) LoadWorld(ctx context.Context) (*WorldState, error) {
	data, err := r.client.Get(ctx, worldKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoWorld
	}
	if err != nil {
		return nil, fmt.Errorf("get world: %w", err)
	}
	ws := &WorldState{}
	if err := json.Unmarshal(data, ws); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	return ws, nil
}

// HasWorld reports whether a save exists.
func (r *Redis) HasWorld(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, worldKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
