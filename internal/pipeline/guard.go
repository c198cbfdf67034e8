package pipeline

import (
	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/models"
)

// identityFields are the record attributes the entity step owns. A
// required one of these going missing always routes back to entity
// before anything else runs.
var identityFields = map[string]bool{
	"ticker":      true,
	"description": true,
	"currency":    true,
	"isin":        true,
}

// ArtifactChecker is the presence probe the guard chain needs; the
// artifact store satisfies it.
type ArtifactChecker interface {
	Has(guid, kind string) bool
}

// NextStep walks the guard chain in priority order and returns the
// step to run. The chain never returns "final"; only the delegate may
// end a run early, so a record that passes every guard escalates to
// "decide".
func NextStep(rec *models.Instrument, required []string, artifacts ArtifactChecker) string {
	for _, field := range rec.MissingOf(required) {
		if identityFields[field] {
			return consts.StepEntity
		}
	}
	if !artifacts.Has(rec.Guid, consts.ArtifactArticles) {
		return consts.StepNews
	}
	if rec.NewsSentiment == "" {
		return consts.StepSentiment
	}
	return consts.StepDecide
}
