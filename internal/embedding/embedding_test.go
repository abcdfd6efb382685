package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/veritas/internal/scoring"
)

func TestMockClient_SimilarTextsAreClose(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	a, _ := c.Embed(ctx, "redis runs on port 6379")
	b, _ := c.Embed(ctx, "Redis runs on port 6379!")
	d, _ := c.Embed(ctx, "rotate the billing credentials weekly")

	if len(a) != Dimensions {
		t.Fatalf("expected %d dimensions, got %d", Dimensions, len(a))
	}
	if sim := scoring.CosineSimilarity(a, b); sim < 0.999 {
		t.Fatalf("expected identical token sets to match, got %f", sim)
	}
	if sim := scoring.CosineSimilarity(a, d); sim > 0.5 {
		t.Fatalf("expected unrelated texts to differ, got %f", sim)
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(Config{Provider: ProviderOpenAI}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewClient(Config{Provider: "bogus"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	c, err := NewClient(Config{Provider: ProviderNone, CacheSize: 10})
	if err != nil || c != nil {
		t.Fatalf("expected nil client for none, got %v, %v", c, err)
	}
	c, err = NewClient(Config{Provider: " Mock "})
	if err != nil {
		t.Fatalf("expected mock client, got %v", err)
	}
	if _, ok := c.(*MockClient); !ok {
		t.Fatalf("expected *MockClient without a cache, got %T", c)
	}
	c, err = NewClient(Config{Provider: ProviderMock, CacheSize: 10})
	if err != nil {
		t.Fatalf("expected cached client, got %v", err)
	}
	if _, ok := c.(*CachedClient); !ok {
		t.Fatalf("expected *CachedClient, got %T", c)
	}
}

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestCachedClient(t *testing.T) {
	ctx := context.Background()
	next := &countingClient{}
	c := NewCachedClient(next, 2)

	a, err := c.Embed(ctx, "redis runs on port 6379")
	if err != nil {
		t.Fatal(err)
	}
	a[0] = -1
	b, _ := c.Embed(ctx, "  redis runs on port 6379 ")
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if b[0] == -1 {
		t.Fatal("cached vector was mutated through a returned slice")
	}

	c.Embed(ctx, "kafka is running")
	c.Embed(ctx, "postgres version 15.4")
	if c.Len() != 2 {
		t.Fatalf("expected cache bounded at 2, got %d", c.Len())
	}

	next.err = errors.New("rate limited")
	if _, err := c.Embed(ctx, "nginx v1.25"); err == nil {
		t.Fatal("expected upstream error")
	}
	next.err = nil
	if _, err := c.Embed(ctx, "nginx v1.25"); err != nil {
		t.Fatalf("errors must not be cached: %v", err)
	}
}
