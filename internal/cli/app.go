package cli

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mtegner/mnemo/internal/config"
	"github.com/mtegner/mnemo/internal/logger"
	"github.com/mtegner/mnemo/pkg/embed"
	"github.com/mtegner/mnemo/pkg/fetch"
	"github.com/mtegner/mnemo/pkg/index"
	"github.com/mtegner/mnemo/pkg/memory"
	"github.com/mtegner/mnemo/pkg/store"
)

// app wires configuration, logging and the memory service for a command
// invocation. One-shot commands and the daemon share this bootstrap.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *sql.DB
	svc *memory.Service
}

func newApp() (*app, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zl := lg.Zerolog()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		lg.Close()
		return nil, err
	}

	st, err := store.New(db, zl)
	if err != nil {
		db.Close()
		lg.Close()
		return nil, err
	}

	embedder := buildEmbedder(cfg)

	idx, err := index.New(db, embedder.Dimension(), zl)
	if err != nil {
		db.Close()
		lg.Close()
		return nil, err
	}

	svc, err := memory.New(memory.Config{
		Store:    st,
		Index:    idx,
		Embedder: embedder,
		Fetcher:  buildFetcher(cfg),
		Logger:   zl,
	})
	if err != nil {
		db.Close()
		lg.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: lg, db: db, svc: svc}, nil
}

func buildEmbedder(cfg *config.Config) embed.Provider {
	if cfg.Embedding.Provider == "mock" {
		return embed.NewMock(cfg.Embedding.Dimension)
	}
	return embed.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model)
}

func buildFetcher(cfg *config.Config) fetch.Fetcher {
	if cfg.Fetch.Backend == "browser" {
		return fetch.NewRodFetcher()
	}
	return fetch.NewHTTPFetcher(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)
}

func (a *app) Close() {
	a.db.Close()
	a.log.Close()
}
