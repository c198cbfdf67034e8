// Package cli wires the pipeline together and exposes it as the
// finscope command tree.
package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/internal/agents"
	"github.com/dyike/FinScopeGo/internal/config"
	"github.com/dyike/FinScopeGo/internal/dataflows"
	"github.com/dyike/FinScopeGo/internal/history"
	"github.com/dyike/FinScopeGo/internal/llm"
	"github.com/dyike/FinScopeGo/internal/pipeline"
	"github.com/dyike/FinScopeGo/internal/store"
)

// app holds every long-lived component of one CLI invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	caps    *agents.Toolbox
	driver  *pipeline.Driver
	history *history.Store
}

// newApp builds the full component graph: stores, provider chain,
// chat model, collaborators, loop and driver.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	records, err := store.NewRecordStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	artifacts, err := store.NewArtifactStore(cfg.ArticlesDir)
	if err != nil {
		return nil, err
	}

	retry := dataflows.RetryFromSettings(cfg.MaxRetries, cfg.RetryDelaySec)
	fmp := dataflows.NewFMPClient(cfg.FMPAPIKey, cfg.DataCacheDir, cfg.CacheEnabled, retry)
	av := dataflows.NewAlphaVantageClient(cfg.AlphaVantageAPIKey, cfg.DataCacheDir, cfg.CacheEnabled, retry)
	provider := dataflows.NewProvider(fmp, av, dataflows.NewYahooClient(), logger)

	caps := agents.NewToolbox(records, artifacts, provider, dataflows.NewScraper(), logger)

	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}

	hist, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		logger.Warn("history store unavailable, runs will not be recorded", zap.Error(err))
		hist = nil
	}

	workers := []agents.Collaborator{
		agents.NewEntityCollaborator(chatModel),
		agents.NewNewsCollaborator(),
		agents.NewSentimentCollaborator(chatModel),
	}
	delegate := agents.NewDecisionCollaborator(chatModel)
	loop := pipeline.NewLoop(cfg, caps, workers, delegate, hist, logger)
	driver := pipeline.NewDriver(cfg, caps, loop,
		agents.NewFinDataCollaborator(),
		agents.NewAnalysisCollaborator(chatModel),
		logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		caps:    caps,
		driver:  driver,
		history: hist,
	}, nil
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	_ = a.logger.Sync()
}
