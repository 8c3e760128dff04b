package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	qrmodels "io.winapps.qrbackend/internal/models/qrcode"
)

type hashStore interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// GenerationCache keeps the latest generation per entry id in a Redis hash
type GenerationCache struct {
	client hashStore
	ttl    time.Duration
}

// NewGenerationCache creates a cache whose keys expire after ttl
func NewGenerationCache(client hashStore, ttl time.Duration) *GenerationCache {
	return &GenerationCache{client: client, ttl: ttl}
}

func (g *GenerationCache) Name() string { return "redis" }

// GenerationKey returns the Redis key for entryID
func GenerationKey(entryID string) string {
	return "qrcode:" + entryID
}

// RecordGeneration overwrites the cached metadata for gen.EntryID
func (g *GenerationCache) RecordGeneration(ctx context.Context, gen qrmodels.Generation) error {
	key := GenerationKey(gen.EntryID)
	err := g.client.HSet(ctx, key,
		"path", gen.Path,
		"size_bytes", strconv.FormatInt(gen.SizeBytes, 10),
		"request_id", gen.RequestID,
		"generated_at", gen.GeneratedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to cache generation: %w", err)
	}
	if g.ttl > 0 {
		if err := g.client.Expire(ctx, key, g.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set generation ttl: %w", err)
		}
	}
	return nil
}
