package dataflows

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider bundles the three data sources behind a fallback chain:
// FMP first, Alpha Vantage second, Yahoo as a keyless last resort for
// quotes.
type Provider struct {
	fmp    *FMPClient
	av     *AlphaVantageClient
	yahoo  *YahooClient
	logger *zap.Logger
}

func NewProvider(fmp *FMPClient, av *AlphaVantageClient, yahoo *YahooClient, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{fmp: fmp, av: av, yahoo: yahoo, logger: logger}
}

// FMP exposes the primary client for endpoints without a fallback
// (news, fundamentals, history).
func (p *Provider) FMP() *FMPClient {
	return p.fmp
}

// Profile tries FMP then Alpha Vantage.
func (p *Provider) Profile(symbol string) (*CompanyProfile, error) {
	profile, err := p.fmp.Profile(symbol)
	if err == nil {
		return profile, nil
	}
	p.logger.Warn("fmp profile failed, trying alphavantage",
		zap.String("symbol", symbol), zap.Error(err))

	profile, avErr := p.av.CompanyOverview(symbol)
	if avErr == nil {
		return profile, nil
	}
	return nil, fmt.Errorf("profile for %s: fmp: %v; alphavantage: %w", symbol, err, avErr)
}

// Quote tries FMP, Alpha Vantage, then Yahoo.
func (p *Provider) Quote(symbol string) (*Quote, error) {
	q, err := p.fmp.Quote(symbol)
	if err == nil {
		return q, nil
	}
	p.logger.Warn("fmp quote failed, trying alphavantage",
		zap.String("symbol", symbol), zap.Error(err))

	q, avErr := p.av.Quote(symbol)
	if avErr == nil {
		return q, nil
	}
	p.logger.Warn("alphavantage quote failed, trying yahoo",
		zap.String("symbol", symbol), zap.Error(avErr))

	q, yErr := p.yahoo.Quote(symbol)
	if yErr == nil {
		return q, nil
	}
	return nil, fmt.Errorf("quote for %s: fmp: %v; alphavantage: %v; yahoo: %w", symbol, err, avErr, yErr)
}

// SearchSymbol tries FMP then Alpha Vantage.
func (p *Provider) SearchSymbol(query string) ([]SymbolMatch, error) {
	matches, err := p.fmp.SearchSymbol(query, 5)
	if err == nil && len(matches) > 0 {
		return matches, nil
	}
	if err != nil {
		p.logger.Warn("fmp symbol search failed, trying alphavantage",
			zap.String("query", query), zap.Error(err))
	}
	matches, avErr := p.av.SearchSymbol(query)
	if avErr == nil && len(matches) > 0 {
		return matches, nil
	}
	if avErr != nil {
		return nil, fmt.Errorf("symbol search %q: fmp: %v; alphavantage: %w", query, err, avErr)
	}
	return nil, fmt.Errorf("no symbol matches for %q", query)
}

// StockNews goes to FMP only; the other providers have no comparable
// endpoint.
func (p *Provider) StockNews(symbol string, limit int) ([]NewsArticle, error) {
	return p.fmp.StockNews(symbol, limit)
}
