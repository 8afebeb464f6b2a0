package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// WithCache wraps e with an in-memory LRU of recent embeddings. Repeated
// questions in an interactive session then skip the network call. A
// non-positive size or ttl returns e unchanged.
func WithCache(e Embedder, size int, ttl time.Duration, log *zap.Logger) Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &cachedEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
		log:   log,
	}
}

type cachedEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
	log   *zap.Logger
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.next.ModelInfo(), text)
	if cached, ok := c.cache.Get(key); ok {
		c.log.Debug("embedding cache hit", zap.String("model", c.next.ModelInfo()))
		return clone(cached), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(v))
	return v, nil
}

func (c *cachedEmbedder) ModelInfo() string {
	return c.next.ModelInfo()
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
