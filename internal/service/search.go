package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
	searchOverfetch    = 3
)

type SearchQuery struct {
	Query         string
	Category      string
	MinConfidence float64
	Limit         int
	Context       *domain.ScoringContext
}

type SearchResult struct {
	Memory     domain.MemoryRecord     `json:"memory"`
	Similarity float64                 `json:"similarity"`
	Confidence *domain.ConfidenceScore `json:"confidence"`
}

// SearchService finds memories matching a query and ranks them by confidence.
type SearchService struct {
	memories domain.MemoryStore
	scores   ScoreReader
	embedder domain.EmbeddingClient
	cfg      *scoring.Config
	logger   *zap.Logger
}

func NewSearchService(memories domain.MemoryStore, scores ScoreReader, embedder domain.EmbeddingClient, cfg *scoring.Config, logger *zap.Logger) *SearchService {
	return &SearchService{memories: memories, scores: scores, embedder: embedder, cfg: cfg, logger: logger}
}

// Search returns memories whose confidence is at least MinConfidence, highest
// confidence first. Without an embedder, candidates are matched by token
// overlap within the category, or all categories when none is given.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, domain.Invalid("q", "is required")
	}
	if q.MinConfidence < 0 || q.MinConfidence > 1 {
		return nil, domain.Invalid("min_confidence", "must be between 0 and 1")
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}

	candidates, err := s.candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		sc, err := s.scores.GetConfidence(ctx, c.ID, q.Context)
		if err != nil {
			if errors.Is(err, domain.ErrMemoryNotFound) {
				continue
			}
			return nil, err
		}
		if sc.FinalScore < q.MinConfidence {
			continue
		}
		results = append(results, SearchResult{Memory: c.MemoryRecord, Similarity: float64(c.Similarity), Confidence: sc})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence.FinalScore != results[j].Confidence.FinalScore {
			return results[i].Confidence.FinalScore > results[j].Confidence.FinalScore
		}
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (s *SearchService) candidates(ctx context.Context, q SearchQuery) ([]domain.MemoryWithSimilarity, error) {
	fetch := q.Limit * searchOverfetch
	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, q.Query)
		if err == nil {
			return s.memories.Search(ctx, emb, q.Category, fetch)
		}
		s.logger.Warn("query embedding failed; falling back to token overlap", zap.Error(err))
	}

	categories := []string{q.Category}
	if q.Category == "" {
		var err error
		if categories, err = s.memories.ListCategories(ctx); err != nil {
			return nil, err
		}
	}

	var out []domain.MemoryWithSimilarity
	for _, category := range categories {
		records, err := s.memories.ListRecent(ctx, category, s.cfg.Consensus.ScanPageSize)
		if err != nil {
			return nil, err
		}
		for _, m := range records {
			if sim := scoring.TokenJaccard(m.Content, q.Query); sim > 0 {
				out = append(out, domain.MemoryWithSimilarity{MemoryRecord: m, Similarity: float32(sim)})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > fetch {
		out = out[:fetch]
	}
	return out, nil
}
