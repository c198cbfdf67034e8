package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const fmpBaseURL = "https://financialmodelingprep.com/stable"

// FMPClient talks to the Financial Modeling Prep API, the primary data
// provider for entity profiles, quotes, news and fundamentals.
type FMPClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

func NewFMPClient(apiKey, cacheDir string, cacheEnabled bool, retry *RetryConfig) *FMPClient {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	client := resty.New()
	client.SetBaseURL(fmpBaseURL)
	client.SetTimeout(30 * time.Second)

	return &FMPClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cacheDir, "fmp"), 6*time.Hour, cacheEnabled),
		retry:  retry,
		apiKey: apiKey,
	}
}

func (c *FMPClient) get(path string, params map[string]string, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("FMP API key not configured")
	}
	params["apikey"] = c.apiKey
	return WithRetry(c.retry, func() error {
		resp, err := c.client.R().SetQueryParams(params).Get(path)
		if err != nil {
			return fmt.Errorf("fmp %s: %w", path, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("fmp %s: API error %d: %s", path, resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("fmp %s: parse response: %w", path, err)
		}
		return nil
	})
}

// Profile returns the company profile for a symbol.
func (c *FMPClient) Profile(symbol string) (*CompanyProfile, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached CompanyProfile
	if c.cache.Get("fmp", "profile", symbol, &cached) {
		return &cached, nil
	}

	var raw []CompanyProfile
	if err := c.get("/profile", map[string]string{"symbol": symbol}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no profile found for %s", symbol)
	}
	profile := raw[0]
	profile.Source = "fmp"
	c.cache.Set("fmp", "profile", symbol, &profile)
	return &profile, nil
}

// Quote returns the current quote for a symbol.
func (c *FMPClient) Quote(symbol string) (*Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var raw []Quote
	if err := c.get("/quote", map[string]string{"symbol": symbol}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no quote found for %s", symbol)
	}
	quote := raw[0]
	quote.Source = "fmp"
	return &quote, nil
}

// SearchSymbol resolves a company name or partial ticker to candidate
// symbols.
func (c *FMPClient) SearchSymbol(query string, limit int) ([]SymbolMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 5
	}
	var matches []SymbolMatch
	err := c.get("/search-symbol", map[string]string{
		"query": query,
		"limit": strconv.Itoa(limit),
	}, &matches)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// StockNews fetches recent articles for a symbol.
func (c *FMPClient) StockNews(symbol string, limit int) ([]NewsArticle, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if limit <= 0 {
		limit = 20
	}

	cacheKey := map[string]any{"symbol": symbol, "limit": limit}
	var cached []NewsArticle
	if c.cache.Get("fmp", "stock_news", cacheKey, &cached) {
		return cached, nil
	}

	var articles []NewsArticle
	err := c.get("/stock_news", map[string]string{
		"symbols": symbol,
		"limit":   strconv.Itoa(limit),
	}, &articles)
	if err != nil {
		return nil, err
	}
	c.cache.Set("fmp", "stock_news", cacheKey, articles)
	return articles, nil
}

// Financials returns income statement, balance sheet and cash flow as
// raw provider JSON, keyed by statement name. The payload is stored as
// an artifact verbatim; only the analysis collaborator interprets it.
func (c *FMPClient) Financials(symbol, period string, limit int) (map[string]json.RawMessage, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if period == "" {
		period = "annual"
	}
	if limit <= 0 {
		limit = 5
	}

	endpoints := map[string]string{
		"income_statement": "/income-statement",
		"balance_sheet":    "/balance-sheet-statement",
		"cash_flow":        "/cash-flow-statement",
	}
	statements := make(map[string]json.RawMessage, len(endpoints))
	for name, path := range endpoints {
		var raw json.RawMessage
		err := c.get(path, map[string]string{
			"symbol": symbol,
			"period": period,
			"limit":  strconv.Itoa(limit),
		}, &raw)
		if err != nil {
			return nil, err
		}
		statements[name] = raw
	}
	return statements, nil
}

// KeyMetrics returns key metric rows as raw provider JSON.
func (c *FMPClient) KeyMetrics(symbol, period string, limit int) (json.RawMessage, error) {
	return c.rawRows("/key-metrics", symbol, period, limit)
}

// Ratios returns financial ratio rows as raw provider JSON.
func (c *FMPClient) Ratios(symbol, period string, limit int) (json.RawMessage, error) {
	return c.rawRows("/ratios", symbol, period, limit)
}

func (c *FMPClient) rawRows(path, symbol, period string, limit int) (json.RawMessage, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if period == "" {
		period = "annual"
	}
	if limit <= 0 {
		limit = 5
	}
	var raw json.RawMessage
	err := c.get(path, map[string]string{
		"symbol": NormalizeSymbol(symbol),
		"period": period,
		"limit":  strconv.Itoa(limit),
	}, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// HistoricalPrices returns daily price history between from and to.
func (c *FMPClient) HistoricalPrices(symbol string, from, to time.Time) (json.RawMessage, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if from.IsZero() {
		from = time.Now().AddDate(-1, 0, 0)
	}
	if to.IsZero() {
		to = time.Now()
	}
	var raw json.RawMessage
	err := c.get("/historical-price-full/"+symbol, map[string]string{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
	}, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
