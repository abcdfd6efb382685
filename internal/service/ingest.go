package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/embedding"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestInput is a memory as the memory store announces it.
type IngestInput struct {
	Content        string      `json:"content"`
	Category       string      `json:"category"`
	CreatorID      string      `json:"creator_id"`
	CreatorRole    string      `json:"creator_role"`
	Specialization string      `json:"specialization,omitempty"`
	SourceType     string      `json:"source_type"`
	Project        string      `json:"project,omitempty"`
	Team           string      `json:"team,omitempty"`
	Systems        []string    `json:"systems,omitempty"`
	References     []uuid.UUID `json:"references,omitempty"`
	Embedding      []float32   `json:"embedding,omitempty"`
	LastVerifiedAt *time.Time  `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at,omitempty"`
}

type IngestResult struct {
	Memory         *domain.MemoryRecord   `json:"memory"`
	Created        bool                   `json:"created"`
	Contradictions []domain.Contradiction `json:"contradictions"`
}

// IngestService takes a new or updated memory into the engine.
type IngestService struct {
	memories       domain.MemoryStore
	agents         domain.AgentStore
	credibility    *CredibilityService
	contradictions *ContradictionService
	embedder       domain.EmbeddingClient
	enq            Enqueuer
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            clock
}

func NewIngestService(
	st Stores,
	credibility *CredibilityService,
	contradictions *ContradictionService,
	embedder domain.EmbeddingClient,
	enq Enqueuer,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		memories:       st.Memories,
		agents:         st.Agents,
		credibility:    credibility,
		contradictions: contradictions,
		embedder:       embedder,
		enq:            enq,
		logger:         logger,
		metrics:        metrics.New(),
		now:            utcNow,
	}
}

// Ingest stores the record, credits its author on first sight, detects
// contradictions synchronously and schedules a score.
func (s *IngestService) Ingest(ctx context.Context, id uuid.UUID, in IngestInput) (*IngestResult, error) {
	m, err := s.validate(id, in)
	if err != nil {
		return nil, err
	}

	existing, err := getMemory(ctx, s.memories, id)
	if err != nil && !errors.Is(err, domain.ErrMemoryNotFound) {
		return nil, err
	}
	created := existing == nil
	if len(m.Embedding) == 0 && existing != nil && existing.Content == m.Content {
		m.Embedding = existing.Embedding
	}

	if len(m.Embedding) == 0 && s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, m.Content)
		if err != nil {
			s.logger.Warn("failed to embed memory; similarity features disabled for it",
				zap.String("memory_id", id.String()), zap.Error(err))
		} else {
			m.Embedding = emb
		}
	}

	if err := s.memories.Upsert(ctx, m); err != nil {
		return nil, err
	}

	profile := &domain.AgentProfile{
		AgentID:        m.CreatorID,
		Role:           m.CreatorRole,
		Specialization: strings.ToLower(strings.TrimSpace(in.Specialization)),
	}
	if err := s.agents.Upsert(ctx, profile); err != nil {
		s.logger.Warn("failed to upsert agent profile", zap.String("agent_id", m.CreatorID), zap.Error(err))
	}
	if created {
		if err := s.credibility.Contribution(ctx, m.CreatorID, m.Category); err != nil {
			s.logger.Warn("failed to record contribution", zap.String("agent_id", m.CreatorID), zap.Error(err))
		}
	}

	detected, err := s.contradictions.Detect(ctx, m)
	if err != nil {
		s.logger.Error("contradiction detection failed", zap.String("memory_id", id.String()), zap.Error(err))
	}
	s.enq.Enqueue(id)
	s.metrics.EventsRecordedTotal.WithLabelValues("ingest").Inc()

	s.logger.Info("memory ingested",
		zap.String("memory_id", id.String()),
		zap.String("category", m.Category),
		zap.String("creator_id", m.CreatorID),
		zap.Bool("created", created),
		zap.Int("contradictions", len(detected)),
	)
	if detected == nil {
		detected = []domain.Contradiction{}
	}
	return &IngestResult{Memory: m, Created: created, Contradictions: detected}, nil
}

func (s *IngestService) validate(id uuid.UUID, in IngestInput) (*domain.MemoryRecord, error) {
	if id == uuid.Nil {
		return nil, domain.Invalid("memory_id", "is required")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.Invalid("content", "is required")
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		return nil, domain.Invalid("category", "is required")
	}
	creator := strings.TrimSpace(in.CreatorID)
	if creator == "" {
		return nil, domain.Invalid("creator_id", "is required")
	}
	if !domain.ValidAgentRole(in.CreatorRole) {
		return nil, domain.Invalid("creator_role", "must be one of admin, senior, engineer, agent, guest")
	}
	if !domain.ValidSourceType(in.SourceType) {
		return nil, domain.Invalid("source_type", "must be one of tested, observed, documented, inferred, hearsay")
	}
	if n := len(in.Embedding); n > 0 && n != embedding.Dimensions {
		return nil, domain.Invalid("embedding", fmt.Sprintf("must have %d dimensions, got %d", embedding.Dimensions, n))
	}

	createdAt, err := eventTime(in.CreatedAt, s.now())
	if err != nil {
		return nil, err
	}
	return &domain.MemoryRecord{
		ID:             id,
		Content:        content,
		Category:       category,
		CreatorID:      creator,
		CreatorRole:    domain.AgentRole(in.CreatorRole),
		SourceType:     domain.SourceType(in.SourceType),
		Project:        strings.TrimSpace(in.Project),
		Team:           strings.TrimSpace(in.Team),
		Systems:        in.Systems,
		References:     in.References,
		Embedding:      in.Embedding,
		LastVerifiedAt: in.LastVerifiedAt,
		CreatedAt:      createdAt,
	}, nil
}
