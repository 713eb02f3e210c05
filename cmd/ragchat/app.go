package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/db"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/domain"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	budgetrepo "github.com/kailas-cloud/ragchat/internal/repository/budget"
	"github.com/kailas-cloud/ragchat/internal/repository/embcache"
	"github.com/kailas-cloud/ragchat/internal/repository/history"
	"github.com/kailas-cloud/ragchat/internal/repository/tenantdoc"
	"github.com/kailas-cloud/ragchat/internal/transport/assistant"
	openaiProvider "github.com/kailas-cloud/ragchat/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/ragchat/internal/usecase/budget"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	completionuc "github.com/kailas-cloud/ragchat/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/ragchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	memoryuc "github.com/kailas-cloud/ragchat/internal/usecase/memory"
	"github.com/kailas-cloud/ragchat/internal/usecase/retrieval"
)

const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// app is the composition root: every dependency is built once and injected.
type app struct {
	logger *zap.Logger
	chat   *chatuc.Service
	memory *memoryuc.Service
	health *healthuc.Service
}

// loadConfig reads config/{ENV}.yaml and builds the process logger.
func loadConfig() (config.Config, *zap.Logger, string, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, env, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, env, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, env, nil
}

// connectStore opens the Redis connection and waits until it answers PING.
func connectStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (db.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	return store, nil
}

func newDirectory(cfg config.Config) *assistant.Client {
	return assistant.New(assistant.Config{
		Endpoint: cfg.Assistants.Endpoint,
		Timeout:  time.Duration(cfg.Assistants.TimeoutSec) * time.Second,
		Attempts: cfg.Assistants.Attempts,
		Delay:    time.Duration(cfg.Assistants.DelayMs) * time.Millisecond,
	})
}

func newMemory(cfg config.Config, store db.Store, directory memoryuc.Directory) *memoryuc.Service {
	repo := history.New(store, cfg.Storage.KeyPrefix)
	return memoryuc.New(repo, directory, cfg.Memory.MaxTurns, cfg.MemoryTTL())
}

// buildApp wires the full chat pipeline on top of an open store.
func buildApp(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCompletionMetrics()
	metrics.RegisterChatMetrics()

	docs := tenantdoc.New(store, tenantdoc.Config{
		IndexName: cfg.Index.Name,
		DocPrefix: cfg.Storage.DocPrefix,
		VectorDim: cfg.Embedding.Dimensions,
		HNSWM:     cfg.Index.HNSWM,
		HNSWEF:    cfg.Index.HNSWEFConstruct,
		MaxCorpus: cfg.Retrieval.MaxCorpus,
	})
	if cfg.Index.CreateIfMissing {
		created, err := docs.EnsureIndex(ctx)
		if err != nil {
			return nil, fmt.Errorf("ensure index: %w", err)
		}
		logger.Info("Document index ready", zap.String("index", cfg.Index.Name), zap.Bool("created", created))
	}

	baseEmbedder := openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
		Config: openaiProvider.Config{
			APIKey:   cfg.Embedding.APIKey,
			BaseURL:  cfg.Embedding.BaseURL,
			Model:    cfg.Embedding.Model,
			Provider: cfg.Embedding.Provider,
		},
		Dimensions: cfg.Embedding.Dimensions,
	})
	queryEmbedder := buildEmbedder(cfg, baseEmbedder, store, logger)

	baseCompleter := openaiProvider.NewCompleter(&openaiProvider.CompleterConfig{
		Config: openaiProvider.Config{
			APIKey:   cfg.Completion.APIKey,
			BaseURL:  cfg.Completion.BaseURL,
			Model:    cfg.Completion.Model,
			Provider: cfg.Completion.Provider,
		},
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		Timeout:     cfg.CompletionTimeout(),
	})
	completer := completionuc.NewInstrumentedCompleter(
		baseCompleter, cfg.Completion.Provider, cfg.Completion.Model, buildBudget(ctx, cfg, store, logger),
	)
	logger.Info("Providers configured",
		zap.String("completion_model", cfg.Completion.Model),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	lexical := retrieval.NewLexical(docs, cfg.Retrieval.LexicalK)
	semantic := retrieval.NewSemantic(queryEmbedder, docs, completer, retrieval.SemanticConfig{
		K:         cfg.Retrieval.SemanticK,
		Threshold: *cfg.Retrieval.ScoreThreshold,
		Expansion: retrieval.ExpansionConfig{
			Enabled:         *cfg.Retrieval.Expansion.Enabled,
			Queries:         cfg.Retrieval.Expansion.Queries,
			IncludeOriginal: cfg.Retrieval.Expansion.IncludeOriginal,
		},
	})
	hybrid := retrieval.NewHybrid(lexical, semantic, retrieval.FusionConfig{
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		SemanticWeight: cfg.Retrieval.SemanticWeight,
		RRFConstant:    cfg.Retrieval.RRFConstant,
	})

	var counter chatuc.TokenCounter
	if cfg.Retrieval.MaxContextTokens > 0 {
		counter = chatuc.NewTokenCounter(cfg.Retrieval.TokenEncoding)
	}
	assembler := chatuc.NewAssembler(cfg.Retrieval.MaxContextTokens, counter)

	directory := newDirectory(cfg)
	memory := newMemory(cfg, store, directory)

	answers := chatuc.NewAnswerGenerator(chatuc.NewCondenser(completer), hybrid, assembler, completer)
	followups := chatuc.NewFollowUpGenerator(hybrid, assembler, completer, chatuc.FollowUpConfig{
		MaxQuestions: cfg.FollowUp.MaxQuestions,
		Structured:   *cfg.FollowUp.Structured,
	})

	return &app{
		logger: logger,
		chat:   chatuc.New(directory, memory, answers, followups),
		memory: memory,
		health: healthuc.New(store, baseCompleter, baseEmbedder),
	}, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(
	cfg config.Config, base domain.Embedder, store db.Store, logger *zap.Logger,
) domain.Embedder {
	cacheTTL := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour
	var embedder domain.Embedder = embcache.New(base, store, embcache.Options{
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Model:      cfg.Embedding.Model,
		TTL:        cacheTTL,
		CacheTotal: metrics.EmbeddingCacheTotal,
	}, logger)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model)

	// Outermost, so the cache key includes the instruction.
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
}

// buildBudget returns nil when no limit is configured.
func buildBudget(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) completionuc.BudgetChecker {
	if cfg.Budget.DailyTokenLimit <= 0 && cfg.Budget.MonthlyTokenLimit <= 0 {
		// Untyped nil: a typed (*Tracker)(nil) inside the interface would not compare equal to nil.
		return nil
	}
	tracker := budgetuc.NewTracker(
		cfg.Completion.Provider, cfg.Storage.KeyPrefix,
		cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit,
		budgetuc.Action(cfg.Budget.Action), logger,
	)
	return tracker.WithStore(ctx, budgetrepo.New(store, budgetDailyTTL, budgetMonthlyTTL))
}
