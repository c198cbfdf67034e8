package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/models"
)

// FinDataCollaborator runs after the core loop finishes. It pulls
// fundamentals from the primary provider, stores each payload as an
// artifact and copies headline metrics onto the record. It is not part
// of the guard chain; the driver invokes it once when a ticker exists.
type FinDataCollaborator struct{}

func NewFinDataCollaborator() *FinDataCollaborator {
	return &FinDataCollaborator{}
}

func (a *FinDataCollaborator) Name() string { return "findata" }

func (a *FinDataCollaborator) Invoke(ctx context.Context, guid string, caps *Toolbox) (string, error) {
	rec, err := caps.MustLoad(guid)
	if err != nil {
		return "", err
	}
	if rec.Ticker == "" {
		return "", fmt.Errorf("financial data step needs a ticker, record %s has none", guid)
	}
	fmp := caps.Data.FMP()

	stored := make([]string, 0, 4)

	statements, err := fmp.Financials(rec.Ticker, "annual", 5)
	if err != nil {
		return "", fmt.Errorf("fetch financial statements for %s: %w", rec.Ticker, err)
	}
	raw, err := json.Marshal(statements)
	if err != nil {
		return "", err
	}
	if err := caps.SaveArtifactOnce(guid, consts.ArtifactFinancials, raw); err != nil {
		return "", fmt.Errorf("store financials artifact: %w", err)
	}
	stored = append(stored, consts.ArtifactFinancials)

	// Key metrics, ratios and prices are enrichment on top of the
	// statements; their failure is logged, not fatal.
	if raw, err := fmp.KeyMetrics(rec.Ticker, "annual", 5); err == nil {
		if err := caps.SaveArtifactOnce(guid, consts.ArtifactKeyMetrics, raw); err == nil {
			stored = append(stored, consts.ArtifactKeyMetrics)
		}
	} else {
		caps.Logger.Warn("key metrics unavailable", zap.String("ticker", rec.Ticker), zap.Error(err))
	}
	if raw, err := fmp.Ratios(rec.Ticker, "annual", 5); err == nil {
		if err := caps.SaveArtifactOnce(guid, consts.ArtifactRatios, raw); err == nil {
			stored = append(stored, consts.ArtifactRatios)
		}
	} else {
		caps.Logger.Warn("ratios unavailable", zap.String("ticker", rec.Ticker), zap.Error(err))
	}
	if raw, err := fmp.HistoricalPrices(rec.Ticker, time.Time{}, time.Time{}); err == nil {
		if err := caps.SaveArtifactOnce(guid, consts.ArtifactPrices, raw); err == nil {
			stored = append(stored, consts.ArtifactPrices)
		}
	} else {
		caps.Logger.Warn("price history unavailable", zap.String("ticker", rec.Ticker), zap.Error(err))
	}

	a.fillHeadlineMetrics(rec, caps)

	if _, err := caps.Records.Save(rec); err != nil {
		return "", fmt.Errorf("save record after financial data step: %w", err)
	}

	return statusJSON(map[string]any{
		"guid":   guid,
		"stored": stored,
	}), nil
}

// fillHeadlineMetrics copies quote-level fundamentals onto the record.
// A failed quote leaves the fields absent.
func (a *FinDataCollaborator) fillHeadlineMetrics(rec *models.Instrument, caps *Toolbox) {
	quote, err := caps.Data.Quote(rec.Ticker)
	if err != nil {
		caps.Logger.Warn("quote unavailable for headline metrics",
			zap.String("ticker", rec.Ticker), zap.Error(err))
		return
	}
	if rec.EPS == nil && !quote.EPS.IsZero() {
		v := quote.EPS.InexactFloat64()
		rec.EPS = &v
	}
	if rec.PERatio == nil && !quote.PE.IsZero() {
		v := quote.PE.InexactFloat64()
		rec.PERatio = &v
	}
	if rec.Price == nil && quote.Price.IsPositive() {
		v := quote.Price.InexactFloat64()
		rec.Price = &v
	}
}
