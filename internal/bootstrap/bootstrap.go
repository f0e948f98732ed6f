package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/config"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/concept"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/signals"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/usecase"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/llm/openai"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/patterns"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/resilience"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/hybrid-retrieval-router/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.WorkerMetrics

	Queue *nats.Queue

	Core

	closeFn func()
}

// Core holds the use cases; it depends on ports only.
type Core struct {
	Router         ports.QueryRouter
	Searcher       ports.HybridSearcher
	Planner        ports.QueryPlanner
	DocumentRouter ports.DocumentRouter
}

// Adapters are the outbound implementations Core is built from. Nil stores
// disable the sub-searches that need them; a nil KeyPhraseLLM keeps the
// heuristic extractor only.
type Adapters struct {
	Embedder     ports.Embedder
	Vectors      ports.VectorStore
	Texts        ports.ChunkTextStore
	Graph        ports.GraphStore
	Profiles     ports.VisualProfileStore
	Routes       ports.DocumentRouteStore
	KeyPhraseLLM ports.KeyPhraseLLM
	Patterns     []ports.PatternSource
}

type Observer interface {
	ports.SearchObserver
	ports.RoutingObserver
	ports.DocumentRouteObserver
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	workerMetrics := metrics.NewWorkerMetrics("worker")
	executor := resilience.NewExecutor(cfg.Resilience(), logger)

	closers := make([]func(), 0, 3)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	closers = append(closers, func() { _ = db.Close() })
	repo := postgres.NewProfileRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	driver, err := neo4j.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open neo4j: %w", err)
	}
	closers = append(closers, func() { _ = driver.Close(context.Background()) })
	graph := neo4j.New(driver, cfg.Neo4jDatabase, executor)

	queue, err := nats.New(cfg.NATSURL, nats.Subjects{
		DocumentProfiled: cfg.NATSProfiledSubject,
		PlanRequests:     cfg.NATSPlanSubject,
	}, nats.Options{ResilienceExecutor: executor, Logger: logger})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	closers = append(closers, queue.Close)

	embedder, keyPhraseLLM, err := newLLM(cfg, executor)
	if err != nil {
		closeAll()
		return nil, err
	}

	adapters := Adapters{
		Embedder: embedder,
		Vectors:  qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.SubSearchTimeout, executor),
		Texts:    graph,
		Graph:    graph,
		Profiles: repo,
		Routes:   repo,
	}
	if cfg.KeyPhraseEnabled {
		adapters.KeyPhraseLLM = keyPhraseLLM
	}
	if cfg.PatternFile != "" {
		adapters.Patterns = append(adapters.Patterns, patterns.NewFile(cfg.PatternFile))
	}

	core, err := NewCore(cfg, adapters, workerMetrics, logger)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: workerMetrics,
		Queue:   queue,
		Core:    core,
		closeFn: closeAll,
	}, nil
}

// NewCore wires the use cases. Invalid weights or patterns fail here.
func NewCore(cfg config.Config, adapters Adapters, observer Observer, logger *slog.Logger) (Core, error) {
	mergeWeights, err := cfg.MergeWeights()
	if err != nil {
		return Core{}, err
	}
	routingWeights, err := cfg.RoutingWeights()
	if err != nil {
		return Core{}, err
	}

	registry, err := signals.NewPatternRegistry(adapters.Patterns...)
	if err != nil {
		return Core{}, fmt.Errorf("build pattern registry: %w", err)
	}
	detector := signals.NewDetector(registry)

	routingUC, err := usecase.NewRoutingUseCase(detector, adapters.Profiles, routingWeights, logger)
	if err != nil {
		return Core{}, err
	}
	router := usecase.NewEnhancedRouter(routingUC, usecase.NewStrategyClassifier(), logger)

	searcher, err := usecase.NewHybridSearchUseCase(
		adapters.Embedder,
		adapters.Vectors,
		adapters.Texts,
		adapters.Graph,
		usecase.HybridSearchConfig{Weights: mergeWeights, SubSearchTimeout: cfg.SubSearchTimeout},
		observer,
		logger,
	)
	if err != nil {
		return Core{}, err
	}

	var llmExtractor ports.KeyPhraseExtractor
	if adapters.KeyPhraseLLM != nil {
		llmExtractor = concept.NewLLMExtractor(adapters.KeyPhraseLLM)
	}
	extractor := concept.NewFallback(concept.NewHeuristic(), llmExtractor, logger)

	return Core{
		Router:         router,
		Searcher:       searcher,
		Planner:        usecase.NewPlanUseCase(router, extractor, searcher, observer, logger),
		DocumentRouter: usecase.NewDocumentRoutingUseCase(adapters.Profiles, adapters.Routes, routingUC, observer, logger),
	}, nil
}

func newLLM(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.KeyPhraseLLM, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.LLMTimeout, executor)
		return ollama.NewEmbedder(client), ollama.NewKeyPhraseLLM(client, cfg.KeyPhraseRPS), nil
	case "openai":
		client := openai.New(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			ChatModel:  cfg.OpenAIChatModel,
			EmbedModel: cfg.OpenAIEmbedModel,
		}, executor)
		return openai.NewEmbedder(client), openai.NewKeyPhraseLLM(client, cfg.KeyPhraseRPS), nil
	default:
		return nil, nil, domain.WrapError(domain.ErrInvalidConfig, "select llm provider", fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider))
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
