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
	"github.com/dyike/FinScopeGo/internal/models"
)

const sentimentSystemPrompt = `You are a financial news sentiment analyst. You receive recent
headlines and excerpts about one instrument.

Classify the overall sentiment as exactly one of Positive, Neutral or
Negative and summarize the drivers in at most five short bullets.

Respond with a single JSON object and nothing else:
{"sentiment": "Positive|Neutral|Negative", "summary": ["...", "..."]}`

const maxDigestArticles = 10

// SentimentCollaborator classifies the stored article feed and writes
// the label back onto the record. An empty feed short-circuits to
// Neutral without a model call.
type SentimentCollaborator struct {
	cm model.BaseChatModel
}

func NewSentimentCollaborator(cm model.BaseChatModel) *SentimentCollaborator {
	return &SentimentCollaborator{cm: cm}
}

func (a *SentimentCollaborator) Name() string { return consts.StepSentiment }

func (a *SentimentCollaborator) Invoke(ctx context.Context, guid string, caps *Toolbox) (string, error) {
	rec, err := caps.MustLoad(guid)
	if err != nil {
		return "", err
	}

	articles, err := loadArticles(caps, guid)
	if err != nil {
		return "", err
	}

	var summary models.SentimentSummary
	if len(articles) == 0 {
		summary = models.SentimentSummary{
			Guid:           guid,
			Sentiment:      consts.SentimentNeutral,
			SummaryBullets: []string{"No recent news available"},
		}
	} else {
		fillMissingBodies(caps, articles)
		summary, err = a.classify(ctx, rec, articles)
		if err != nil {
			return "", err
		}
		summary.Guid = guid
	}

	if raw, merr := json.Marshal(summary); merr == nil {
		if aerr := caps.SaveArtifactOnce(guid, consts.ArtifactSentiment, raw); aerr != nil {
			caps.Logger.Warn("sentiment artifact not stored", zap.String("guid", guid), zap.Error(aerr))
		}
	}

	rec.NewsSentiment = summary.Sentiment
	if _, err := caps.Records.Save(rec); err != nil {
		return "", fmt.Errorf("save record after sentiment step: %w", err)
	}

	return statusJSON(map[string]any{
		"guid":      guid,
		"sentiment": summary.Sentiment,
		"bullets":   len(summary.SummaryBullets),
	}), nil
}

func (a *SentimentCollaborator) classify(ctx context.Context, rec *models.Instrument, articles []dataflows.NewsArticle) (models.SentimentSummary, error) {
	user := fmt.Sprintf("Instrument: %s (%s)\n\nRecent news:\n%s",
		rec.Description, rec.Ticker, articleDigest(articles))

	raw, err := generate(ctx, a.cm, sentimentSystemPrompt, user)
	if err != nil {
		return models.SentimentSummary{}, err
	}
	fields, _, err := jsonrepair.Normalize(consts.StepSentiment, raw)
	if err != nil {
		return models.SentimentSummary{}, err
	}

	rawLabel, _ := fields["sentiment"].(string)
	var label string
	switch strings.ToLower(strings.TrimSpace(rawLabel)) {
	case "positive":
		label = consts.SentimentPositive
	case "neutral":
		label = consts.SentimentNeutral
	case "negative":
		label = consts.SentimentNegative
	default:
		return models.SentimentSummary{}, fmt.Errorf("model returned sentiment %q, want Positive, Neutral or Negative", rawLabel)
	}

	var bullets []string
	if items, ok := fields["summary"].([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				bullets = append(bullets, strings.TrimSpace(s))
			}
		}
	}
	return models.SentimentSummary{Sentiment: label, SummaryBullets: bullets}, nil
}

// fillMissingBodies scrapes article pages whose feed entry carried no
// text. Best effort and bounded; a failed fetch leaves the headline.
func fillMissingBodies(caps *Toolbox, articles []dataflows.NewsArticle) {
	if caps.Scraper == nil {
		return
	}
	scraped := 0
	for i := range articles {
		if scraped >= 3 || i >= maxDigestArticles {
			break
		}
		if articles[i].Text != "" || articles[i].URL == "" {
			continue
		}
		page, err := caps.Scraper.Fetch(articles[i].URL)
		if err != nil {
			caps.Logger.Debug("article scrape failed",
				zap.String("url", articles[i].URL), zap.Error(err))
			continue
		}
		articles[i].Text = page.Text
		scraped++
	}
}

func loadArticles(caps *Toolbox, guid string) ([]dataflows.NewsArticle, error) {
	raw, found, err := caps.Artifacts.Load(guid, consts.ArtifactArticles)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var articles []dataflows.NewsArticle
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, fmt.Errorf("decode articles artifact for %s: %w", guid, err)
	}
	return articles, nil
}

// articleDigest renders a bounded headline-plus-excerpt digest.
func articleDigest(articles []dataflows.NewsArticle) string {
	if len(articles) > maxDigestArticles {
		articles = articles[:maxDigestArticles]
	}
	var b strings.Builder
	for i, art := range articles {
		fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, art.Title, art.Site, art.PublishedAt)
		text := art.Text
		if runes := []rune(text); len(runes) > 300 {
			text = string(runes[:300])
		}
		if text != "" {
			b.WriteString("   " + text + "\n")
		}
	}
	return b.String()
}
