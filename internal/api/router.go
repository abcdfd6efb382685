package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/veritas/internal/api/handlers"
	mw "github.com/Harshitk-cp/veritas/internal/api/middleware"
	"github.com/Harshitk-cp/veritas/internal/buildconfig"
	"github.com/Harshitk-cp/veritas/internal/config"
	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/embedding"
	"github.com/Harshitk-cp/veritas/internal/extract"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/notify"
	"github.com/Harshitk-cp/veritas/internal/probe"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/service"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const limiterSweepInterval = 10 * time.Minute

// Dependencies are the collaborators built by main from configuration.
type Dependencies struct {
	Scoring  *scoring.Config
	Embedder domain.EmbeddingClient
	Notifier domain.Notifier
	Prober   domain.Prober
}

// App holds the router and the background workers that must be started and
// stopped with the server.
type App struct {
	Router     *chi.Mux
	Recomputer *service.Recomputer
	Consensus  *service.ConsensusService
	Resolver   *service.ResolverService
	Learning   *service.LearningService

	limiter *mw.RateLimiter
	stopCh  chan struct{}
}

type Handlers struct {
	Memory         *handlers.MemoryHandler
	Events         *handlers.EventHandler
	Contradictions *handlers.ContradictionHandler
	Agents         *handlers.AgentHandler
	Learning       *handlers.LearningHandler
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewApp(db *pgxpool.Pool, deps Dependencies, logger *zap.Logger) *App {
	cfg := deps.Scoring
	if cfg == nil {
		cfg = scoring.DefaultConfig()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	// Stores
	scoreStore := store.NewScoreStore(db)
	st := service.Stores{
		Memories:       store.NewMemoryStore(db),
		Scores:         scoreStore,
		Verifications:  store.NewVerificationStore(db),
		Usage:          store.NewUsageStore(db),
		Agents:         store.NewAgentStore(db),
		Credibility:    store.NewCredibilityStore(db),
		Clusters:       store.NewClusterStore(db),
		Contradictions: store.NewContradictionStore(db),
		Votes:          store.NewVoteStore(db),
		Weights:        store.NewWeightStore(db),
	}

	// Services
	extractor := extract.New()
	credibilitySvc := service.NewCredibilityService(st.Credibility, cfg, logger)
	weightSvc := service.NewWeightService(st.Weights, cfg.Weights, logger)
	confidenceSvc := service.NewConfidenceService(st, credibilitySvc, weightSvc, deps.Embedder, notifier, cfg, logger)

	recomputer := service.NewRecomputer(confidenceSvc.Recompute, config.RecomputeWorkers(), config.RecomputeDebounce(), logger)
	recomputer.SetLister(scoreStore.ListMemoryIDs)
	confidenceSvc.SetRecomputer(recomputer)
	weightSvc.OnActivate(func(ctx context.Context) {
		recomputer.EnqueueAll(ctx)
	})

	contradictionSvc := service.NewContradictionService(st, extractor, credibilitySvc, recomputer, cfg, logger)
	resolverSvc := service.NewResolverService(st, extractor, deps.Prober, credibilitySvc, contradictionSvc, cfg, logger)
	resolverSvc.SetInterval(config.ResolverInterval())
	contradictionSvc.SetResolver(resolverSvc)

	verificationSvc := service.NewVerificationService(st, credibilitySvc, recomputer, logger)
	usageSvc := service.NewUsageService(st, confidenceSvc, recomputer, logger)
	voteSvc := service.NewVoteService(st, recomputer, logger)
	agentSvc := service.NewAgentService(st.Agents, logger)
	ingestSvc := service.NewIngestService(st, credibilitySvc, contradictionSvc, deps.Embedder, recomputer, logger)
	searchSvc := service.NewSearchService(st.Memories, confidenceSvc, deps.Embedder, cfg, logger)
	decisionSvc := service.NewDecisionService(confidenceSvc, cfg)

	consensusSvc := service.NewConsensusService(st, recomputer, cfg, logger)
	consensusSvc.SetInterval(config.ConsensusInterval())
	learningSvc := service.NewLearningService(st.Usage, weightSvc, cfg, logger)
	learningSvc.SetInterval(config.LearningInterval())

	h := Handlers{
		Memory:         handlers.NewMemoryHandler(ingestSvc, confidenceSvc, decisionSvc, searchSvc, contradictionSvc),
		Events:         handlers.NewEventHandler(verificationSvc, usageSvc, voteSvc),
		Contradictions: handlers.NewContradictionHandler(contradictionSvc),
		Agents:         handlers.NewAgentHandler(agentSvc, credibilitySvc),
		Learning:       handlers.NewLearningHandler(weightSvc, learningSvc, consensusSvc),
	}

	limiter := mw.NewRateLimiter(config.RateLimitRPS(), config.RateLimitBurst())
	apiKey := config.APIKey()
	if apiKey == "" {
		logger.Warn("VERITAS_API_KEY is not set; /v1 routes are unauthenticated")
	}

	return &App{
		Router:     NewRouter(h, db, limiter, apiKey, logger),
		Recomputer: recomputer,
		Consensus:  consensusSvc,
		Resolver:   resolverSvc,
		Learning:   learningSvc,
		limiter:    limiter,
		stopCh:     make(chan struct{}),
	}
}

// NewRouter mounts the public probes and the /v1 API. An empty apiKey leaves
// /v1 unauthenticated.
func NewRouter(h Handlers, db Pinger, limiter *mw.RateLimiter, apiKey string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics(metrics.New()))
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(limiter.Middleware)

	r.Get("/health", healthHandler(db))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/version", versionHandler)

	r.Route("/v1", func(r chi.Router) {
		if apiKey != "" {
			r.Use(mw.APIKeyAuth(apiKey))
		}

		r.Route("/memories", func(r chi.Router) {
			r.Get("/search", h.Memory.Search)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/ingest", h.Memory.Ingest)
				r.Get("/confidence", h.Memory.Confidence)
				r.Get("/decision", h.Memory.Decision)
				r.Get("/contradictions", h.Memory.Contradictions)
				r.Post("/verifications", h.Events.Verify)
				r.Get("/verifications", h.Events.ListVerifications)
				r.Post("/outcomes", h.Events.ReportOutcome)
				r.Put("/votes", h.Events.Vote)
				r.Get("/votes", h.Events.ListVotes)
			})
		})

		r.Route("/contradictions", func(r chi.Router) {
			r.Get("/", h.Contradictions.List)
			r.Get("/{id}", h.Contradictions.Get)
			r.Post("/{id}/resolve", h.Contradictions.Resolve)
		})

		r.Route("/agents/{id}", func(r chi.Router) {
			r.Put("/", h.Agents.Register)
			r.Get("/", h.Agents.GetByID)
			r.Get("/credibility", h.Agents.Credibility)
		})

		r.Get("/consensus/clusters", h.Learning.Clusters)
		r.Post("/consensus/run", h.Learning.RunConsensus)
		r.Post("/learning/run", h.Learning.RunLearning)

		r.Route("/weights", func(r chi.Router) {
			r.Get("/", h.Learning.ListWeights)
			r.Post("/", h.Learning.ProposeWeights)
			r.Get("/active", h.Learning.ActiveWeights)
			r.Get("/{version}", h.Learning.GetWeights)
			r.Post("/{version}/activate", h.Learning.ActivateWeights)
			r.Post("/{version}/reject", h.Learning.RejectWeights)
		})
	})

	return r
}

// Start launches the background workers.
func (app *App) Start() {
	app.Recomputer.Start()
	app.Resolver.Start()
	app.Consensus.Start()
	app.Learning.Start()
	go app.limiter.RunCleanup(limiterSweepInterval, app.stopCh)
}

// Stop halts the workers in reverse start order.
func (app *App) Stop() {
	close(app.stopCh)
	app.Learning.Stop()
	app.Consensus.Stop()
	app.Resolver.Stop()
	app.Recomputer.Stop()
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(buildconfig.Get())
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.MemoryStore        = (*store.MemoryStore)(nil)
	_ domain.ScoreStore         = (*store.ScoreStore)(nil)
	_ domain.VerificationStore  = (*store.VerificationStore)(nil)
	_ domain.UsageStore         = (*store.UsageStore)(nil)
	_ domain.AgentStore         = (*store.AgentStore)(nil)
	_ domain.CredibilityStore   = (*store.CredibilityStore)(nil)
	_ domain.ClusterStore       = (*store.ClusterStore)(nil)
	_ domain.ContradictionStore = (*store.ContradictionStore)(nil)
	_ domain.VoteStore          = (*store.VoteStore)(nil)
	_ domain.WeightStore        = (*store.WeightStore)(nil)
	_ domain.EmbeddingClient    = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient    = (*embedding.MockClient)(nil)
	_ domain.EmbeddingClient    = (*embedding.CachedClient)(nil)
	_ domain.Notifier           = (*notify.NATSNotifier)(nil)
	_ domain.Notifier           = notify.NopNotifier{}
	_ domain.Prober             = (*probe.TCPProber)(nil)
)
