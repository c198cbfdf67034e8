package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/agents"
	"github.com/dyike/FinScopeGo/internal/config"
	"github.com/dyike/FinScopeGo/internal/models"
)

// Analyzer is the optional analysis stage contract.
type Analyzer interface {
	Analyze(ctx context.Context, guid string, caps *agents.Toolbox) (map[string]any, error)
}

// RunOptions select the optional stages that follow the core loop.
type RunOptions struct {
	WithExtendedData bool
	WithAnalysis     bool
}

// Driver owns one full pipeline run: create the record, drive the
// loop, then run the optional extended-data and analysis stages and
// compile the result envelope. A missing ticker skips extended data
// with a warning and a failed analysis collapses into an error entry
// inside the result; any other stage failure aborts the run.
type Driver struct {
	cfg      *config.Config
	caps     *agents.Toolbox
	loop     *Loop
	findata  agents.Collaborator
	analyzer Analyzer
	logger   *zap.Logger
}

func NewDriver(cfg *config.Config, caps *agents.Toolbox, loop *Loop, findata agents.Collaborator, analyzer Analyzer, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:      cfg,
		caps:     caps,
		loop:     loop,
		findata:  findata,
		analyzer: analyzer,
		logger:   logger,
	}
}

// Run enriches a fresh record created from prompt and returns the
// compiled result.
func (d *Driver) Run(ctx context.Context, prompt string, opts RunOptions) (*models.PipelineResult, error) {
	guid, status, err := agents.NewInitCollaborator().Start(prompt, d.caps)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	d.logger.Info("run initialized", zap.String("init", status))
	return d.Resume(ctx, guid, opts)
}

// Resume runs the pipeline against an existing record guid.
func (d *Driver) Resume(ctx context.Context, guid string, opts RunOptions) (*models.PipelineResult, error) {
	lastStep, err := d.loop.Run(ctx, guid)
	if err != nil {
		return nil, fmt.Errorf("enrichment loop: %w", err)
	}

	rec, err := d.caps.MustLoad(guid)
	if err != nil {
		return nil, err
	}

	extendedRan := false
	if opts.WithExtendedData {
		switch {
		case rec.Ticker == "":
			d.logger.Warn("no ticker resolved, skipping extended financial data",
				zap.String("guid", guid))
		case d.findata == nil:
			d.logger.Warn("extended financial data requested but no worker configured",
				zap.String("guid", guid))
		default:
			if _, ferr := d.findata.Invoke(ctx, guid, d.caps); ferr != nil {
				return nil, fmt.Errorf("extended financial data: %w", ferr)
			}
			extendedRan = true
		}
	}

	var analysis map[string]any
	if opts.WithAnalysis && d.analyzer != nil {
		analysis, err = d.analyzer.Analyze(ctx, guid, d.caps)
		if err != nil {
			d.logger.Warn("analysis stage failed, downgrading to partial result",
				zap.String("guid", guid), zap.Error(err))
			analysis = map[string]any{
				"error":   err.Error(),
				"message": "analysis unavailable",
			}
		}
	}

	// Re-read: the optional stages may have written the record.
	rec, err = d.caps.MustLoad(guid)
	if err != nil {
		return nil, err
	}

	result := &models.PipelineResult{
		Guid:             guid,
		LastStep:         lastStep,
		Record:           rec,
		SentimentSummary: d.loadSentimentSummary(guid),
		Analysis:         analysis,
	}
	if extendedRan {
		result.ExtendedData = d.loadExtendedData(guid)
	}
	return result, nil
}

func (d *Driver) loadSentimentSummary(guid string) *models.SentimentSummary {
	raw, found, err := d.caps.Artifacts.Load(guid, consts.ArtifactSentiment)
	if err != nil || !found {
		return nil
	}
	var summary models.SentimentSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		d.logger.Warn("sentiment summary artifact unreadable",
			zap.String("guid", guid), zap.Error(err))
		return nil
	}
	return &summary
}

func (d *Driver) loadExtendedData(guid string) map[string]any {
	kinds := []string{
		consts.ArtifactFinancials,
		consts.ArtifactKeyMetrics,
		consts.ArtifactRatios,
		consts.ArtifactPrices,
	}
	out := make(map[string]any)
	for _, kind := range kinds {
		raw, found, err := d.caps.Artifacts.Load(guid, kind)
		if err != nil || !found {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out[kind] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
