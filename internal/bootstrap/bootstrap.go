package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhikalparya/documentchatbot/internal/config"
	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
	"github.com/abhikalparya/documentchatbot/internal/core/usecase"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/chunking"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/extractor/pdftext"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/history/memory"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/llm/ollama"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/llm/openai"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/queue/nats"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/repository/postgres"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/resilience"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/sessions"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/storage/localfs"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/vector/localstore"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/vector/qdrant"
	"github.com/abhikalparya/documentchatbot/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Factory     *usecase.SessionFactory
	Sessions    *sessions.Registry
	Catalog     *postgres.IndexRepository
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFns []func()
}

// New wires the session pipeline. The catalog and event publisher are only
// built when their connection settings are present.
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	executorCfg := resilience.DefaultConfig()
	executorCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(executorCfg)

	chatModel, embedder, embedModel, err := newProvider(cfg, executor)
	if err != nil {
		return nil, err
	}

	store, err := app.newVectorStore(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.HTTPMetrics = metrics.NewHTTPServerMetrics(service)
	pipelineMetrics := metrics.NewPipelineMetrics(service, app.HTTPMetrics.Registry())

	deps := usecase.SessionDeps{
		Extractor:     pdftext.NewExtractor(""),
		Chunker:       chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Indexes:       usecase.NewIndexManager(embedder, store, cfg.RetrieverTopK, pipelineMetrics, logger),
		Reformulator:  usecase.NewQueryReformulator(chatModel),
		Composer:      usecase.NewAnswerComposer(chatModel),
		NewHistory:    func() ports.HistoryStore { return memory.NewStore() },
		Observer:      pipelineMetrics,
		Logger:        logger,
		EmbedModel:    embedModel,
		HasCredential: cfg.HasCredential,
	}

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		catalog, err := app.newCatalog(ctx, cfg.PostgresDSN)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Catalog = catalog
		deps.Catalog = catalog
	}

	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init index events: %w", err)
		}
		app.closeFns = append(app.closeFns, publisher.Close)
		deps.Events = publisher
	}

	app.Factory = usecase.NewSessionFactory(deps)
	app.Sessions = sessions.NewRegistry(
		time.Duration(cfg.SessionTTLMinutes)*time.Minute,
		func() ports.ChatSession { return app.Factory.NewSession() },
		logger,
	)

	logger.Info("app_initialized",
		"llm_provider", cfg.LLMProvider,
		"vector_backend", cfg.VectorBackend,
		"embed_model", embedModel,
		"catalog_enabled", app.Catalog != nil,
		"events_enabled", deps.Events != nil,
		"credential_present", cfg.HasCredential(),
	)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func newProvider(cfg config.Config, executor *resilience.Executor) (ports.ChatModel, ports.Embedder, string, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		client := ollama.New(ollama.Options{
			BaseURL:    cfg.LLMBaseURL,
			ChatModel:  cfg.LLMChatModel,
			EmbedModel: cfg.LLMEmbedModel,
			APIKey:     cfg.LLMAPIKey,
			BatchSize:  cfg.EmbedBatchSize,
			Timeout:    timeout,
			Executor:   executor,
		})
		return ollama.NewChatModel(client), ollama.NewEmbedder(client), client.EmbedModel(), nil
	default:
		if !cfg.HasCredential() {
			// Every session operation is refused before it reaches the provider.
			return unavailableProvider{}, unavailableProvider{}, cfg.LLMEmbedModel, nil
		}
		client, err := openai.New(openai.Options{
			BaseURL:    cfg.LLMBaseURL,
			ChatModel:  cfg.LLMChatModel,
			EmbedModel: cfg.LLMEmbedModel,
			APIKey:     cfg.LLMAPIKey,
			BatchSize:  cfg.EmbedBatchSize,
			Timeout:    timeout,
			Executor:   executor,
		})
		if err != nil {
			return nil, nil, "", fmt.Errorf("init llm provider: %w", err)
		}
		return openai.NewChatModel(client), openai.NewEmbedder(client), client.EmbedModel(), nil
	}
}

func (a *App) newVectorStore(cfg config.Config) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollectionPrefix), nil
	default:
		layout, err := localfs.New(cfg.IndexRoot)
		if err != nil {
			return nil, fmt.Errorf("init index root: %w", err)
		}
		store := localstore.New(layout)
		a.closeFns = append(a.closeFns, func() {
			if err := store.Close(); err != nil {
				a.Logger.Warn("index_store_close_failed", "error", err)
			}
		})
		return store, nil
	}
}

func (a *App) newCatalog(ctx context.Context, dsn string) (*postgres.IndexRepository, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closeFns = append(a.closeFns, closeDB(db))

	catalog := postgres.NewIndexRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	return catalog, nil
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

type unavailableProvider struct{}

var errNoCredential = domain.WrapError(domain.ErrConfiguration, "llm provider", errors.New(usecase.MissingCredentialMessage))

func (unavailableProvider) Chat(context.Context, []domain.ChatMessage) (string, error) {
	return "", errNoCredential
}

func (unavailableProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errNoCredential
}

func (unavailableProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errNoCredential
}
