package pipeline

import (
	"strings"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/jsonrepair"
	"github.com/dyike/FinScopeGo/internal/models"
)

// normalizeDecision turns the delegate's raw reply into a dispatchable
// decision. The delegate is advisory: a reply that cannot be parsed or
// names an unknown step falls back to the entity step, so a confused
// model can never end a run by accident.
func normalizeDecision(raw string) models.Decision {
	fields, _, err := jsonrepair.Normalize(consts.StepDecide, raw)
	if err != nil {
		return models.Decision{NextStep: consts.StepEntity, Note: "delegate reply was not parseable"}
	}

	var d models.Decision
	if s, ok := fields["next_step"].(string); ok {
		d.NextStep = strings.ToLower(strings.TrimSpace(s))
	}
	if n, ok := fields["note"].(string); ok {
		d.Note = n
	}
	if !consts.DispatchableStep(d.NextStep) {
		d.NextStep = consts.StepEntity
	}
	return d
}
