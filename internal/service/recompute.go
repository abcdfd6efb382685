package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	maxVersionRetries    = 3
	maxPendingRecomputes = 100000
	recomputeTimeout     = 30 * time.Second
)

type RecomputeFunc func(ctx context.Context, memoryID uuid.UUID) (*domain.ConfidenceScore, error)

// Recomputer runs score recomputes on a bounded worker pool.
//
// Enqueue marks a memory pending in an expirable LRU; repeated triggers inside
// the debounce window collapse into one. When the entry expires the id moves
// to the due list. A memory is never recomputed by two workers at once: a
// trigger that arrives while it is running marks it dirty and the running
// worker goes around once more on the latest inputs.
type Recomputer struct {
	fn      RecomputeFunc
	list    func(ctx context.Context) ([]uuid.UUID, error)
	workers int
	logger  *zap.Logger
	metrics *metrics.Metrics

	pending *expirable.LRU[uuid.UUID, struct{}]
	group   singleflight.Group

	mu      sync.Mutex
	due     []uuid.UUID
	running map[uuid.UUID]bool
	wake    chan struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRecomputer(fn RecomputeFunc, workers int, debounce time.Duration, logger *zap.Logger) *Recomputer {
	if workers <= 0 {
		workers = 1
	}
	if debounce <= 0 {
		debounce = time.Millisecond
	}
	r := &Recomputer{
		fn:      fn,
		workers: workers,
		logger:  logger,
		metrics: metrics.New(),
		running: make(map[uuid.UUID]bool),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	r.pending = expirable.NewLRU[uuid.UUID, struct{}](maxPendingRecomputes, r.onExpire, debounce)
	return r
}

// SetLister supplies the id source for EnqueueAll.
func (r *Recomputer) SetLister(list func(ctx context.Context) ([]uuid.UUID, error)) {
	r.list = list
}

func (r *Recomputer) Enqueue(id uuid.UUID) {
	if r.pending.Contains(id) {
		return
	}
	r.pending.Add(id, struct{}{})
	r.metrics.RecomputeQueueDepth.Inc()
}

// EnqueueAll schedules every memory the lister knows about.
func (r *Recomputer) EnqueueAll(ctx context.Context) {
	if r.list == nil {
		return
	}
	ids, err := r.list(ctx)
	if err != nil {
		r.logger.Error("failed to list memories for recompute", zap.Error(err))
		return
	}
	for _, id := range ids {
		r.Enqueue(id)
	}
	r.logger.Info("scheduled full recompute", zap.Int("memories", len(ids)))
}

// onExpire runs under the LRU lock and must not touch the LRU.
func (r *Recomputer) onExpire(id uuid.UUID, _ struct{}) {
	r.mu.Lock()
	r.due = append(r.due, id)
	r.mu.Unlock()
	r.signal()
}

func (r *Recomputer) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recomputer) take() (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.due) > 0 {
		id := r.due[0]
		r.due = r.due[1:]
		r.metrics.RecomputeQueueDepth.Dec()
		if _, busy := r.running[id]; busy {
			r.running[id] = true
			continue
		}
		r.running[id] = false
		if len(r.due) > 0 {
			r.signal()
		}
		return id, true
	}
	return uuid.Nil, false
}

// Start launches the worker pool.
func (r *Recomputer) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-r.stopCh:
					return
				case <-r.wake:
				}
				for {
					id, ok := r.take()
					if !ok {
						break
					}
					r.process(id)
				}
			}
		}()
	}
	r.logger.Info("recompute workers started", zap.Int("workers", r.workers))
}

// Stop waits for in-flight recomputes. Pending ones are dropped; scores are
// re-derivable from stored events.
func (r *Recomputer) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("recompute workers stopped")
}

func (r *Recomputer) process(id uuid.UUID) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
		if _, err := r.run(ctx, id); err != nil && !errors.Is(err, domain.ErrMemoryNotFound) {
			r.logger.Error("recompute failed", zap.String("memory_id", id.String()), zap.Error(err))
		}
		cancel()

		r.mu.Lock()
		if r.running[id] {
			r.running[id] = false
			r.mu.Unlock()
			continue
		}
		delete(r.running, id)
		r.mu.Unlock()
		return
	}
}

// Now recomputes synchronously. Concurrent callers for the same memory share
// one computation.
func (r *Recomputer) Now(ctx context.Context, id uuid.UUID) (*domain.ConfidenceScore, error) {
	v, err, _ := r.group.Do(id.String(), func() (any, error) {
		return r.run(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ConfidenceScore), nil
}

func (r *Recomputer) run(ctx context.Context, id uuid.UUID) (*domain.ConfidenceScore, error) {
	start := time.Now()
	defer func() { r.metrics.RecomputeDuration.Observe(time.Since(start).Seconds()) }()

	var err error
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		var sc *domain.ConfidenceScore
		sc, err = r.fn(ctx, id)
		if err == nil {
			r.metrics.RecomputesTotal.WithLabelValues("ok").Inc()
			return sc, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			break
		}
		r.metrics.VersionConflicts.Inc()
	}
	r.metrics.RecomputesTotal.WithLabelValues("error").Inc()
	return nil, err
}
