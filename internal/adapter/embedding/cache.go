package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// cacheTTL keeps entries for a week; embeddings for identical text never
// change, the TTL only bounds memory.
const cacheTTL = 7 * 24 * time.Hour

// Cache decorates an EmbeddingService with a redis lookaside cache keyed by
// text hash. A cache failure falls through to the inner service.
type Cache struct {
	inner domain.EmbeddingService
	rdb   *redis.Client
}

// NewCache wraps inner with the redis cache.
func NewCache(inner domain.EmbeddingService, rdb *redis.Client) *Cache {
	return &Cache{inner: inner, rdb: rdb}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(h[:])
}

// Encode returns cached vectors where available and encodes only the misses.
func (c *Cache) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		raw, err := c.rdb.Get(ctx, cacheKey(text)).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				obsctx.LoggerFromContext(ctx).Warn("embedding cache read failed", "error", err)
			}
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
			continue
		}
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err != nil || len(vec) != domain.EmbeddingDim {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
			continue
		}
		out[i] = vec
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("op=embedding.cache: got %d vectors for %d texts: %w", len(fresh), len(missTexts), domain.ErrInternal)
	}

	for j, i := range missIdx {
		out[i] = fresh[j]
		if raw, err := json.Marshal(fresh[j]); err == nil {
			if err := c.rdb.Set(ctx, cacheKey(texts[i]), raw, cacheTTL).Err(); err != nil {
				obsctx.LoggerFromContext(ctx).Warn("embedding cache write failed", "error", err)
			}
		}
	}
	return out, nil
}
