package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/articles"
	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/clustering"
	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/duplicates"
	"horse.fit/newsdesk/internal/logging"
	"horse.fit/newsdesk/internal/oracle"
	"horse.fit/newsdesk/internal/publishing"
	"horse.fit/newsdesk/internal/rules"
)

// runtime holds the collaborators shared by the cluster, force-merge, duplicate and serve commands.
type runtime struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     rules.Store
	service   *clustering.Service
	oracle    *oracle.Client
	detector  *duplicates.Detector
	loader    *articles.Loader
	closeFunc func()
}

// loadEnvironment loads .env, config and the logger. A non-zero code means the command must stop.
func loadEnvironment(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), 1
	}
	return cfg, logger, 0
}

func newRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*runtime, error) {
	store, closeStore, err := openRuleStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := newOracleClient(cfg, logging.Component(logger, "oracle"))
	if err != nil {
		closeStore()
		return nil, err
	}

	rt := &runtime{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		oracle:    client,
		service:   clustering.NewService(client, store, logging.Component(logger, "clustering")),
		loader:    articles.DefaultLoader(),
		closeFunc: closeStore,
	}

	if cfg.DuplicateCheckEnabled() {
		wp, err := publishing.NewWordPress(publishing.WordPressOptions{
			BaseURL:     cfg.WordPressURL,
			User:        cfg.WordPressUser,
			AppPassword: cfg.WordPressAppPassword,
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("configure wordpress: %w", err)
		}
		rt.detector = duplicates.NewDetector(wp, client, cfg.DuplicateWindow, logging.Component(logger, "duplicates"))
	}

	logger.Debug().
		Str("rule_store", cfg.RuleStoreDriverName()).
		Str("oracle_provider", cfg.OracleProvider).
		Bool("duplicate_check", rt.detector != nil).
		Msg("runtime initialized")
	return rt, nil
}

func (r *runtime) Close() {
	if r != nil && r.closeFunc != nil {
		r.closeFunc()
		r.closeFunc = nil
	}
}

// openRuleStore opens the configured learned-rule backend. The returned close func is never nil.
func openRuleStore(ctx context.Context, cfg *config.Config) (rules.Store, func(), error) {
	noop := func() {}

	switch cfg.RuleStoreDriverName() {
	case config.RuleStoreMemory:
		return rules.NewMemoryStore(), noop, nil
	case config.RuleStoreSQLite:
		store, err := rules.OpenSQLiteStore(ctx, cfg.RuleStoreSQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite rule store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case config.RuleStorePostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := db.NewPool(dbCtx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("connect rule store database: %w", err)
		}
		return rules.NewPostgresStore(pool), func() { _ = pool.Close() }, nil
	default:
		store, err := rules.NewFileStore(cfg.RuleStorePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open file rule store: %w", err)
		}
		return store, noop, nil
	}
}

func newOracleClient(cfg *config.Config, logger zerolog.Logger) (*oracle.Client, error) {
	registry := oracle.NewRegistry(cfg.OracleProvider)
	if err := registry.Register(oracle.NewGeminiProvider(cfg.OracleEndpoint, cfg.OracleAPIKey, cfg.OracleTimeout)); err != nil {
		return nil, err
	}
	if err := registry.Register(oracle.NewOpenAIProvider(cfg.OracleEndpoint, cfg.OracleAPIKey, cfg.OracleTimeout)); err != nil {
		return nil, err
	}

	provider, err := registry.Provider(cfg.OracleProvider)
	if err != nil {
		return nil, err
	}

	models := cfg.OracleModelList()
	if len(models) == 0 {
		if !strings.EqualFold(provider.Name(), "gemini") {
			return nil, fmt.Errorf("ORACLE_MODELS is required for provider %s", provider.Name())
		}
		models = oracle.DefaultGeminiModels
	}

	return oracle.NewClient(provider, oracle.Options{
		Models:       models,
		MaxAttempts:  cfg.OracleMaxAttempts,
		RetryBackoff: cfg.OracleRetryBackoff,
		MinInterval:  cfg.OracleMinInterval,
	}, logger)
}
