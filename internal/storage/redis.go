package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/relationship-engine/pkg/simulation"
	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

const snapshotKeyPrefix = "snapshot:"

// RedisStorage implements Storage using Redis for snapshots and the
// filesystem for static reference data.
type RedisStorage struct {
	client       *redis.Client
	logger       *slog.Logger
	catalogPath  string
	personasPath string
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL, catalogPath, personasPath string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisStorage{
		client:       rdb,
		logger:       logger,
		catalogPath:  catalogPath,
		personasPath: personasPath,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}
		r.logger.Info("Redis connection established")
		return nil
	}
	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Snapshot operations (Redis-backed)

func (r *RedisStorage) SaveSnapshot(ctx context.Context, id uuid.UUID, snap *simulation.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to marshal snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := snapshotKeyPrefix + id.String()
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSnapshot(ctx context.Context, id uuid.UUID) (*simulation.Snapshot, error) {
	key := snapshotKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Warn("Snapshot not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load snapshot", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap simulation.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		r.logger.Error("Failed to unmarshal snapshot", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisStorage) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	key := snapshotKeyPrefix + id.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListSnapshots(ctx context.Context) ([]uuid.UUID, error) {
	keys, err := r.client.Keys(ctx, snapshotKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, snapshotKeyPrefix))
		if err != nil {
			r.logger.Warn("Skipping malformed snapshot key", "key", key)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Reference data (filesystem-backed)

func (r *RedisStorage) GetCatalog(ctx context.Context) (*turning.Catalog, error) {
	return LoadCatalogFile(r.catalogPath)
}

func (r *RedisStorage) ListPersonas(ctx context.Context) ([]Persona, error) {
	return LoadPersonaFile(r.personasPath)
}

func (r *RedisStorage) GetPersona(ctx context.Context, id string) (*Persona, error) {
	personas, err := LoadPersonaFile(r.personasPath)
	if err != nil {
		return nil, err
	}
	for _, p := range personas {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil // Return nil for not found
}
