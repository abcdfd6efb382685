package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"go.uber.org/zap"
)

const (
	defaultLearningInterval = 24 * time.Hour
	improvementTolerance    = 1e-9
)

// LearningService calibrates recorded predictions against outcomes and
// proposes new weights. It never activates them.
type LearningService struct {
	usage   domain.UsageStore
	weights *WeightService
	cfg     *scoring.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     clock

	runMu    sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewLearningService(usage domain.UsageStore, weights *WeightService, cfg *scoring.Config, logger *zap.Logger) *LearningService {
	return &LearningService{
		usage:    usage,
		weights:  weights,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		now:      utcNow,
		interval: defaultLearningInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *LearningService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *LearningService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("learning loop started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.Run(ctx); err != nil {
					s.logger.Error("learning run failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("learning loop stopped")
				return
			}
		}
	}()
}

func (s *LearningService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Run calibrates the window's outcomes and, given enough samples and a
// projected improvement, stores a proposed weight version.
func (s *LearningService) Run(ctx context.Context) (*domain.LearningRun, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	active, err := s.weights.Active(ctx)
	if err != nil {
		return nil, err
	}
	end := s.now()
	start := end.Add(-s.cfg.Learning.Window)

	outcomes, err := s.usage.ListWithPredictionsSince(ctx, start, 0)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	samples := scoring.SamplesFromOutcomes(outcomes, active.Weights)
	report := s.cfg.Calibrate(samples)
	s.metrics.CalibrationBrier.Set(report.BrierScore)

	run := &domain.LearningRun{
		PeriodStart:   start,
		PeriodEnd:     end,
		ActiveVersion: active.Version,
		Calibration:   report,
	}
	if len(samples) < s.cfg.Learning.MinSamples {
		run.Skipped = fmt.Sprintf("insufficient samples: %d < %d", len(samples), s.cfg.Learning.MinSamples)
		s.logger.Info("learning run skipped", zap.String("reason", run.Skipped))
		return run, nil
	}

	proposed := s.cfg.ProposeWeights(samples, active.Weights)
	current := scoring.MeanSquaredError(samples, active.Weights)
	projected := scoring.MeanSquaredError(samples, proposed)
	if projected >= current-improvementTolerance {
		run.Skipped = fmt.Sprintf("no improvement: projected error %.4f vs %.4f", projected, current)
		s.logger.Info("learning run skipped", zap.String("reason", run.Skipped))
		return run, nil
	}

	wv := &domain.WeightVersion{
		Weights:          proposed,
		Source:           domain.WeightSourceLearning,
		Reason:           fmt.Sprintf("calibrated on %d outcomes; brier %.4f", len(samples), report.BrierScore),
		CalibrationError: &current,
		ProjectedError:   &projected,
		SampleSize:       len(samples),
	}
	if err := s.weights.Propose(ctx, wv); err != nil {
		return nil, err
	}
	s.metrics.WeightProposals.Inc()
	run.Proposal = wv
	return run, nil
}
