package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/jsonrepair"
)

const analysisSystemPrompt = `You are a fundamental financial analyst. You receive an instrument
record together with its stored financial statements and metrics.

Assess financial health, profitability, valuation and notable risks.
Keep the assessment grounded in the numbers you were given.

Respond with a single JSON object and nothing else:
{"financial_health": "...", "profitability": "...", "valuation": "...",
 "risks": ["...", "..."], "summary": "..."}`

const maxStatementChars = 12000

// AnalysisCollaborator is the optional analysis stage. Its output
// feeds the result envelope; failures are downgraded by the driver,
// never fatal to the run.
type AnalysisCollaborator struct {
	cm model.BaseChatModel
}

func NewAnalysisCollaborator(cm model.BaseChatModel) *AnalysisCollaborator {
	return &AnalysisCollaborator{cm: cm}
}

func (a *AnalysisCollaborator) Name() string { return "analysis" }

// Analyze returns the structured analysis for guid. It requires the
// financial statements artifact to exist.
func (a *AnalysisCollaborator) Analyze(ctx context.Context, guid string, caps *Toolbox) (map[string]any, error) {
	rec, err := caps.MustLoad(guid)
	if err != nil {
		return nil, err
	}

	statements, found, err := caps.Artifacts.Load(guid, consts.ArtifactFinancials)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no financial statements stored for %s", guid)
	}
	if len(statements) > maxStatementChars {
		statements = statements[:maxStatementChars]
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	metrics := a.loadOptional(caps, guid, consts.ArtifactKeyMetrics)
	ratios := a.loadOptional(caps, guid, consts.ArtifactRatios)

	user := fmt.Sprintf("Record:\n%s\n\nStatements:\n%s\n\nKey metrics:\n%s\n\nRatios:\n%s",
		recJSON, statements, metrics, ratios)

	raw, err := generate(ctx, a.cm, analysisSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	fields, _, err := jsonrepair.Normalize(a.Name(), raw)
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (a *AnalysisCollaborator) loadOptional(caps *Toolbox, guid, kind string) []byte {
	raw, found, err := caps.Artifacts.Load(guid, kind)
	if err != nil || !found {
		return []byte("(not available)")
	}
	if len(raw) > maxStatementChars {
		raw = raw[:maxStatementChars]
	}
	return raw
}
