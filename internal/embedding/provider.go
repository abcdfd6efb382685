package embedding

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
	ProviderNone   = "none"
)

// Config selects the embedding backend. CacheSize > 0 wraps it in an LRU
// keyed by text.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	CacheSize int
}

// NewClient returns the embedding client for cfg. ProviderNone returns a nil
// client; task relevance then falls back to token overlap.
func NewClient(cfg Config) (domain.EmbeddingClient, error) {
	var c domain.EmbeddingClient
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
		c = NewOpenAIClient(cfg.APIKey, cfg.BaseURL)
	case ProviderMock:
		c = NewMockClient()
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock, none)", provider)
	}

	if cfg.CacheSize > 0 {
		return NewCachedClient(c, cfg.CacheSize), nil
	}
	return c, nil
}
