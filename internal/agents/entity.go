package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/dataflows"
	"github.com/dyike/FinScopeGo/internal/jsonrepair"
)

const entitySystemPrompt = `You are a financial entity resolver. Given a free-form user request
about a financial instrument, identify the instrument it refers to.

Respond with a single JSON object and nothing else:
{"ticker": "<exchange ticker if you are confident, else empty>",
 "query": "<company or instrument name to search for>"}`

// EntityCollaborator resolves which instrument the prompt talks about
// and fills the identity fields of the record from the provider
// profile.
type EntityCollaborator struct {
	cm model.BaseChatModel
}

func NewEntityCollaborator(cm model.BaseChatModel) *EntityCollaborator {
	return &EntityCollaborator{cm: cm}
}

func (a *EntityCollaborator) Name() string { return consts.StepEntity }

func (a *EntityCollaborator) Invoke(ctx context.Context, guid string, caps *Toolbox) (string, error) {
	rec, err := caps.MustLoad(guid)
	if err != nil {
		return "", err
	}

	ticker := rec.Ticker
	if ticker == "" {
		ticker, err = a.resolveTicker(ctx, rec.Prompt, caps)
		if err != nil {
			return "", fmt.Errorf("entity resolution: %w", err)
		}
	}

	profile, err := caps.Data.Profile(ticker)
	if err != nil {
		return "", fmt.Errorf("profile lookup for %s: %w", ticker, err)
	}

	rec.Ticker = profile.Symbol
	if rec.Description == "" {
		rec.Description = profileDescription(profile)
	}
	if rec.Currency == "" {
		rec.Currency = profile.Currency
	}
	if rec.ISIN == "" {
		rec.ISIN = profile.ISIN
	}
	if rec.Price == nil && profile.Price.IsPositive() {
		p := profile.Price.InexactFloat64()
		rec.Price = &p
	}
	if rec.Sector == "" {
		rec.Sector = profile.Sector
	}
	if rec.Industry == "" {
		rec.Industry = profile.Industry
	}
	if rec.Exchange == "" {
		rec.Exchange = profile.Exchange
	}

	if raw, merr := json.Marshal(profile); merr == nil {
		if aerr := caps.SaveArtifactOnce(guid, consts.ArtifactProfile, raw); aerr != nil {
			caps.Logger.Warn("profile artifact not stored", zap.String("guid", guid), zap.Error(aerr))
		}
	}

	if _, err := caps.Records.Save(rec); err != nil {
		return "", fmt.Errorf("save record after entity step: %w", err)
	}

	return statusJSON(map[string]any{
		"guid":   guid,
		"ticker": rec.Ticker,
		"source": profile.Source,
	}), nil
}

// resolveTicker asks the model for a ticker or a search query, then
// settles ambiguity through symbol search.
func (a *EntityCollaborator) resolveTicker(ctx context.Context, prompt string, caps *Toolbox) (string, error) {
	raw, err := generate(ctx, a.cm, entitySystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	fields, _, err := jsonrepair.Normalize(consts.StepEntity, raw)
	if err != nil {
		return "", err
	}

	if t, ok := fields["ticker"].(string); ok && strings.TrimSpace(t) != "" {
		t = dataflows.NormalizeSymbol(t)
		if dataflows.ValidateSymbol(t) == nil {
			return t, nil
		}
	}

	query, _ := fields["query"].(string)
	if strings.TrimSpace(query) == "" {
		query = prompt
	}
	matches, err := caps.Data.SearchSymbol(query)
	if err != nil {
		return "", err
	}
	return matches[0].Symbol, nil
}

func profileDescription(p *dataflows.CompanyProfile) string {
	if p.Description != "" {
		return p.Description
	}
	return p.CompanyName
}
