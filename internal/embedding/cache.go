package embedding

import (
	"context"
	"crypto/sha256"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient memoizes embeddings by trimmed text. Errors are not cached.
type CachedClient struct {
	next  domain.EmbeddingClient
	cache *lru.Cache[[sha256.Size]byte, []float32]
}

func NewCachedClient(next domain.EmbeddingClient, size int) *CachedClient {
	if size <= 0 {
		size = 1
	}
	cache, _ := lru.New[[sha256.Size]byte, []float32](size)
	return &CachedClient{next: next, cache: cache}
}

func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := sha256.Sum256([]byte(strings.TrimSpace(text)))
	if v, ok := c.cache.Get(key); ok {
		return append([]float32(nil), v...), nil
	}

	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]float32(nil), v...))
	return v, nil
}

func (c *CachedClient) Len() int {
	return c.cache.Len()
}
