package agents

import (
	"github.com/dyike/FinScopeGo/consts"
)

// InitCollaborator opens a run: it creates the record carrying only
// guid, date and the originating prompt. It runs exactly once, before
// the loop, so it is not dispatchable by the guard chain.
type InitCollaborator struct{}

func NewInitCollaborator() *InitCollaborator {
	return &InitCollaborator{}
}

func (a *InitCollaborator) Name() string { return consts.StepInit }

// Start mints the record and returns its guid with the status payload.
func (a *InitCollaborator) Start(prompt string, caps *Toolbox) (string, string, error) {
	guid, err := caps.Records.Create(prompt)
	if err != nil {
		return "", "", err
	}
	return guid, statusJSON(map[string]any{"guid": guid}), nil
}
