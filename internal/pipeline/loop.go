package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/agents"
	"github.com/dyike/FinScopeGo/internal/config"
	"github.com/dyike/FinScopeGo/internal/history"
	"github.com/dyike/FinScopeGo/internal/models"
)

// Delegate decides the next step when the guard chain has nothing
// obvious left. The production implementation is the decision
// collaborator; tests script it.
type Delegate interface {
	Decide(ctx context.Context, guid, report string, caps *agents.Toolbox) (string, error)
}

// Loop runs the bounded enrichment iteration for one record. Every
// iteration re-reads the record, inspects it, walks the guard chain
// and dispatches exactly one step. Reaching the iteration cap is a
// normal termination, not an error.
type Loop struct {
	cfg      *config.Config
	caps     *agents.Toolbox
	workers  map[string]agents.Collaborator
	delegate Delegate
	history  *history.Store
	logger   *zap.Logger
}

func NewLoop(cfg *config.Config, caps *agents.Toolbox, workers []agents.Collaborator, delegate Delegate, hist *history.Store, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]agents.Collaborator, len(workers))
	for _, w := range workers {
		byName[w.Name()] = w
	}
	return &Loop{
		cfg:      cfg,
		caps:     caps,
		workers:  byName,
		delegate: delegate,
		history:  hist,
		logger:   logger,
	}
}

// Run iterates until the delegate ends the run or the cap is hit, and
// returns the last step that executed. A failing step aborts the run
// and its error propagates to the caller; the loop never retries a
// failed step.
func (l *Loop) Run(ctx context.Context, guid string) (string, error) {
	rec, err := l.caps.MustLoad(guid)
	if err != nil {
		return "", err
	}

	var runID int64
	if l.history != nil {
		runID, err = l.history.StartRun(ctx, guid, rec.Prompt)
		if err != nil {
			l.logger.Warn("history unavailable, run not recorded", zap.Error(err))
			l.history = nil
		}
	}

	lastStep := consts.StepInit
	for iteration := 1; iteration <= l.cfg.MaxLoops; iteration++ {
		rec, err = l.caps.MustLoad(guid)
		if err != nil {
			l.finishRun(ctx, runID, history.StatusError, lastStep)
			return lastStep, err
		}

		report := Inspect(rec, l.cfg.RequiredFields)
		step := NextStep(rec, l.cfg.RequiredFields, l.caps.Artifacts)
		if step == consts.StepDecide {
			step = l.escalate(ctx, guid, report)
		}

		if step == consts.StepFinal {
			lastStep = consts.StepFinal
			l.appendStep(ctx, runID, iteration, step, "", nil)
			break
		}

		worker, ok := l.workers[step]
		if !ok {
			l.finishRun(ctx, runID, history.StatusError, lastStep)
			return lastStep, fmt.Errorf("no worker registered for step %q", step)
		}

		lastStep = step
		output, stepErr := l.dispatch(ctx, worker, guid)
		l.appendStep(ctx, runID, iteration, step, output, stepErr)
		if stepErr != nil {
			l.logger.Error("step failed, aborting run",
				zap.String("guid", guid),
				zap.String("step", step),
				zap.Int("iteration", iteration),
				zap.Error(stepErr))
			l.finishRun(ctx, runID, history.StatusError, lastStep)
			return lastStep, fmt.Errorf("step %s: %w", step, stepErr)
		}

		l.logger.Info("step completed",
			zap.String("guid", guid),
			zap.String("step", step),
			zap.Int("iteration", iteration))
	}

	l.finishRun(ctx, runID, history.StatusDone, lastStep)
	return lastStep, nil
}

// dispatch runs one worker under the configured per-step deadline.
func (l *Loop) dispatch(ctx context.Context, worker agents.Collaborator, guid string) (string, error) {
	if l.cfg.AgentTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(l.cfg.AgentTimeoutSec)*time.Second)
		defer cancel()
	}
	return worker.Invoke(ctx, guid, l.caps)
}

// escalate hands the decision to the delegate and normalizes whatever
// comes back. Anything unusable defaults to the entity step; only an
// explicit "final" from the delegate ends the run. Without a delegate
// there is nothing left to try, so the run ends.
func (l *Loop) escalate(ctx context.Context, guid string, report models.InspectionReport) string {
	if l.delegate == nil {
		return consts.StepFinal
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return consts.StepEntity
	}
	raw, err := l.delegate.Decide(ctx, guid, string(reportJSON), l.caps)
	if err != nil {
		l.logger.Warn("delegate failed, defaulting to entity step",
			zap.String("guid", guid), zap.Error(err))
		return consts.StepEntity
	}

	decision := normalizeDecision(raw)
	if decision.Note != "" {
		l.logger.Info("delegate decision",
			zap.String("guid", guid),
			zap.String("next_step", decision.NextStep),
			zap.String("note", decision.Note))
	}
	return decision.NextStep
}

func (l *Loop) appendStep(ctx context.Context, runID int64, iteration int, step, output string, stepErr error) {
	if l.history == nil {
		return
	}
	errText := ""
	if stepErr != nil {
		errText = stepErr.Error()
	}
	if err := l.history.AppendStep(ctx, runID, iteration, step, output, errText); err != nil {
		l.logger.Warn("history append failed", zap.Error(err))
	}
}

func (l *Loop) finishRun(ctx context.Context, runID int64, status, lastStep string) {
	if l.history == nil {
		return
	}
	if err := l.history.FinishRun(ctx, runID, status, lastStep); err != nil {
		l.logger.Warn("history finish failed", zap.Error(err))
	}
}
