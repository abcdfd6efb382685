package service

import (
	"context"
	"strings"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VerifyInput struct {
	VerifierID string    `json:"verifier_id"`
	Type       string    `json:"type"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// VerificationService appends verifications to the ledger.
type VerificationService struct {
	memories      domain.MemoryStore
	verifications domain.VerificationStore
	clusters      domain.ClusterStore
	credibility   *CredibilityService
	enq           Enqueuer
	logger        *zap.Logger
	metrics       *metrics.Metrics
	now           clock
}

func NewVerificationService(st Stores, credibility *CredibilityService, enq Enqueuer, logger *zap.Logger) *VerificationService {
	return &VerificationService{
		memories:      st.Memories,
		verifications: st.Verifications,
		clusters:      st.Clusters,
		credibility:   credibility,
		enq:           enq,
		logger:        logger,
		metrics:       metrics.New(),
		now:           utcNow,
	}
}

// Verify records a verdict. created is false when the same verification was
// already recorded; a duplicate changes nothing.
func (s *VerificationService) Verify(ctx context.Context, memoryID uuid.UUID, in VerifyInput) (v *domain.Verification, created bool, err error) {
	in.VerifierID = strings.TrimSpace(in.VerifierID)
	if in.VerifierID == "" {
		return nil, false, domain.Invalid("verifier_id", "is required")
	}
	if !domain.ValidVerificationType(in.Type) {
		return nil, false, domain.Invalid("type", "must be one of confirmed, still_valid, partially_valid, outdated, incorrect")
	}
	at, err := eventTime(in.CreatedAt, s.now())
	if err != nil {
		return nil, false, err
	}
	m, err := getMemory(ctx, s.memories, memoryID)
	if err != nil {
		return nil, false, err
	}

	v = &domain.Verification{
		MemoryID:   memoryID,
		VerifierID: in.VerifierID,
		Type:       domain.VerificationType(in.Type),
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  at,
	}
	v.DedupKey = v.NaturalKey()

	created, err = s.verifications.Create(ctx, v)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.metrics.EventsDuplicateTotal.WithLabelValues("verification").Inc()
		return v, false, nil
	}
	s.metrics.EventsRecordedTotal.WithLabelValues("verification").Inc()

	if err := s.credibility.RecordVerification(ctx, m, v.Type); err != nil {
		s.logger.Warn("failed to update author credibility",
			zap.String("memory_id", memoryID.String()),
			zap.String("creator_id", m.CreatorID),
			zap.Error(err),
		)
	}
	enqueueWithCluster(ctx, s.clusters, s.enq, memoryID, s.logger)

	s.logger.Info("verification recorded",
		zap.String("memory_id", memoryID.String()),
		zap.String("verifier_id", v.VerifierID),
		zap.String("type", string(v.Type)),
	)
	return v, true, nil
}

func (s *VerificationService) List(ctx context.Context, memoryID uuid.UUID) ([]domain.Verification, error) {
	if _, err := getMemory(ctx, s.memories, memoryID); err != nil {
		return nil, err
	}
	return s.verifications.ListByMemory(ctx, memoryID)
}
