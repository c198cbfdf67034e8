package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/FinScopeGo/consts"
)

const decisionSystemPrompt = `You are the orchestrator of a financial record enrichment pipeline.
The guard rules could not pick an obvious next step, so you decide.

Available steps:
- "entity": resolve the instrument and fill identity fields
- "news": gather recent articles
- "sentiment": classify the gathered news
- "final": stop, the record is as complete as it will get

You receive the current record, the validation report and the list of
stored artifacts. Prefer repeating a step that can still fix a reported
problem; choose "final" only when no step can improve the record.

Respond with a single JSON object and nothing else:
{"next_step": "entity|news|sentiment|final", "note": "<one sentence>"}`

// DecisionCollaborator is the escalation delegate. Unlike the step
// workers it returns the raw model text; the loop owns normalizing and
// defaulting it, so a malformed reply degrades instead of aborting.
type DecisionCollaborator struct {
	cm model.BaseChatModel
}

func NewDecisionCollaborator(cm model.BaseChatModel) *DecisionCollaborator {
	return &DecisionCollaborator{cm: cm}
}

func (a *DecisionCollaborator) Name() string { return consts.StepDecide }

// Decide asks the model for the next step given the record state and
// the inspection report rendered by the loop.
func (a *DecisionCollaborator) Decide(ctx context.Context, guid, report string, caps *Toolbox) (string, error) {
	rec, err := caps.MustLoad(guid)
	if err != nil {
		return "", err
	}
	recJSON, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}

	user := fmt.Sprintf("Record:\n%s\n\nValidation report:\n%s\n\nArtifacts:\n%s",
		recJSON, report, caps.ArtifactSummary(guid))

	return generate(ctx, a.cm, decisionSystemPrompt, user)
}
