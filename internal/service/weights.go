package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/store"
	"go.uber.org/zap"
)

// WeightService is the registry of weight versions and the provider of the
// active one. The active version is cached and swapped atomically on
// activation.
type WeightService struct {
	store    domain.WeightStore
	defaults domain.WeightSet
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      clock

	active    atomic.Pointer[domain.WeightVersion]
	bootMu    sync.Mutex
	onChanged func(ctx context.Context)
}

func NewWeightService(ws domain.WeightStore, defaults domain.WeightSet, logger *zap.Logger) *WeightService {
	return &WeightService{
		store:    ws,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics.New(),
		now:      utcNow,
	}
}

// OnActivate registers fn to run after a new version becomes active.
func (s *WeightService) OnActivate(fn func(ctx context.Context)) {
	s.onChanged = fn
}

// Active returns the active version, creating version 1 from the configured
// defaults on first use.
func (s *WeightService) Active(ctx context.Context) (*domain.WeightVersion, error) {
	if wv := s.active.Load(); wv != nil {
		return wv, nil
	}
	return s.bootstrap(ctx)
}

func (s *WeightService) bootstrap(ctx context.Context) (*domain.WeightVersion, error) {
	s.bootMu.Lock()
	defer s.bootMu.Unlock()
	if wv := s.active.Load(); wv != nil {
		return wv, nil
	}

	wv, err := s.store.GetActive(ctx)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.defaults.Validate(); err != nil {
			return nil, fmt.Errorf("default weights: %w", err)
		}
		now := s.now()
		wv = &domain.WeightVersion{
			Weights:     s.defaults,
			Status:      domain.WeightStatusActive,
			Source:      domain.WeightSourceDefault,
			Reason:      "initial weights",
			ActivatedBy: "system",
			ActivatedAt: &now,
		}
		err = s.store.Create(ctx, wv)
		if errors.Is(err, store.ErrConflict) {
			// Another instance bootstrapped first.
			wv, err = s.store.GetActive(ctx)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load active weights: %w", err)
	}

	s.setActive(wv)
	s.logger.Info("active weights loaded", zap.Int("version", wv.Version))
	return wv, nil
}

func (s *WeightService) setActive(wv *domain.WeightVersion) {
	s.active.Store(wv)
	s.metrics.ActiveWeightsVersion.Set(float64(wv.Version))
}

func (s *WeightService) List(ctx context.Context, limit int) ([]domain.WeightVersion, error) {
	if _, err := s.Active(ctx); err != nil {
		return nil, err
	}
	return s.store.List(ctx, limit)
}

func (s *WeightService) Get(ctx context.Context, version int) (*domain.WeightVersion, error) {
	wv, err := s.store.GetByVersion(ctx, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrWeightVersionNotFound
		}
		return nil, err
	}
	return wv, nil
}

// Propose stores a candidate weight set for operator review. The defaults
// are bootstrapped first so they always hold version 1.
func (s *WeightService) Propose(ctx context.Context, wv *domain.WeightVersion) error {
	if err := wv.Weights.Validate(); err != nil {
		return err
	}
	if _, err := s.Active(ctx); err != nil {
		return err
	}
	wv.Status = domain.WeightStatusProposed
	if wv.Source == "" {
		wv.Source = domain.WeightSourceOperator
	}
	wv.ActivatedBy = ""
	wv.ActivatedAt = nil
	if err := s.store.Create(ctx, wv); err != nil {
		return fmt.Errorf("store proposed weights: %w", err)
	}
	s.logger.Info("weight version proposed",
		zap.Int("version", wv.Version),
		zap.String("source", string(wv.Source)),
		zap.Int("sample_size", wv.SampleSize),
	)
	return nil
}

// Activate supersedes the active version with version and schedules a
// recompute of every scored memory.
func (s *WeightService) Activate(ctx context.Context, version int, by string) (*domain.WeightVersion, error) {
	if by == "" {
		return nil, domain.Invalid("activated_by", "is required")
	}
	if err := s.store.Activate(ctx, version, by, s.now()); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domain.ErrWeightVersionNotFound
		case errors.Is(err, store.ErrConflict):
			return nil, domain.ErrWeightTransition
		}
		return nil, fmt.Errorf("activate weights: %w", err)
	}

	wv, err := s.Get(ctx, version)
	if err != nil {
		return nil, err
	}
	previous := s.active.Load()
	s.setActive(wv)

	fields := []zap.Field{zap.Int("version", wv.Version), zap.String("activated_by", by)}
	if previous != nil {
		fields = append(fields, zap.Int("previous_version", previous.Version))
	}
	s.logger.Info("weight version activated", fields...)

	if s.onChanged != nil && (previous == nil || previous.Version != wv.Version) {
		s.onChanged(ctx)
	}
	return wv, nil
}

// Reject closes a proposed version without activating it.
func (s *WeightService) Reject(ctx context.Context, version int, by string) (*domain.WeightVersion, error) {
	wv, err := s.Get(ctx, version)
	if err != nil {
		return nil, err
	}
	if wv.Status != domain.WeightStatusProposed {
		return nil, domain.ErrWeightTransition
	}
	if err := s.store.SetStatus(ctx, version, domain.WeightStatusRejected); err != nil {
		return nil, fmt.Errorf("reject weights: %w", err)
	}
	wv.Status = domain.WeightStatusRejected
	s.logger.Info("weight version rejected", zap.Int("version", version), zap.String("rejected_by", by))
	return wv, nil
}
