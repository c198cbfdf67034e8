// Package agents holds the enrichment collaborators the control loop
// dispatches to. Each collaborator works on one record guid through
// the shared toolbox and returns a short JSON status string; only the
// delegate returns free-form model text for the loop to normalize.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Collaborator is one step worker. Invoke receives the guid of the
// record being enriched and may read and write it through caps.
type Collaborator interface {
	Name() string
	Invoke(ctx context.Context, guid string, caps *Toolbox) (string, error)
}

// generate runs one chat turn and returns the assistant text.
func generate(ctx context.Context, cm model.BaseChatModel, system, user string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("chat model: %w", err)
	}
	return out.Content, nil
}

// statusJSON is the shared shape of collaborator status returns.
func statusJSON(pairs map[string]any) string {
	b, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}
