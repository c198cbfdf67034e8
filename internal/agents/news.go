package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/consts"
)

const newsArticleLimit = 15

// NewsCollaborator gathers recent articles for the record's ticker and
// stores them as the articles artifact. It needs no model; an empty
// feed is still a completed step, the sentiment step handles "no news".
type NewsCollaborator struct{}

func NewNewsCollaborator() *NewsCollaborator {
	return &NewsCollaborator{}
}

func (a *NewsCollaborator) Name() string { return consts.StepNews }

func (a *NewsCollaborator) Invoke(ctx context.Context, guid string, caps *Toolbox) (string, error) {
	rec, err := caps.MustLoad(guid)
	if err != nil {
		return "", err
	}
	if rec.Ticker == "" {
		return "", fmt.Errorf("news step needs a ticker, record %s has none", guid)
	}

	articles, err := caps.Data.StockNews(rec.Ticker, newsArticleLimit)
	if err != nil {
		return "", fmt.Errorf("fetch news for %s: %w", rec.Ticker, err)
	}

	raw, err := json.Marshal(articles)
	if err != nil {
		return "", err
	}
	if err := caps.SaveArtifactOnce(guid, consts.ArtifactArticles, raw); err != nil {
		return "", fmt.Errorf("store articles artifact: %w", err)
	}

	urls := make([]string, 0, len(articles))
	for _, art := range articles {
		if art.URL != "" {
			urls = append(urls, art.URL)
		}
	}
	if len(urls) > 0 && len(rec.Urls) == 0 {
		rec.Urls = urls
		if _, err := caps.Records.Save(rec); err != nil {
			return "", fmt.Errorf("save record after news step: %w", err)
		}
	}

	caps.Logger.Info("news gathered",
		zap.String("guid", guid),
		zap.String("ticker", rec.Ticker),
		zap.Int("articles", len(articles)))

	return statusJSON(map[string]any{
		"guid":          guid,
		"stored":        consts.ArtifactArticles,
		"article_count": len(articles),
	}), nil
}
