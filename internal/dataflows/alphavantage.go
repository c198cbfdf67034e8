package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageClient is the secondary provider, used when FMP is
// unavailable or returns nothing for a symbol.
type AlphaVantageClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

func NewAlphaVantageClient(apiKey, cacheDir string, cacheEnabled bool, retry *RetryConfig) *AlphaVantageClient {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	client := resty.New()
	client.SetBaseURL(alphaVantageBaseURL)
	client.SetTimeout(30 * time.Second)

	return &AlphaVantageClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cacheDir, "alphavantage"), 6*time.Hour, cacheEnabled),
		retry:  retry,
		apiKey: apiKey,
	}
}

func (c *AlphaVantageClient) query(function string, params map[string]string, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("Alpha Vantage API key not configured")
	}
	params["function"] = function
	params["apikey"] = c.apiKey
	return WithRetry(c.retry, func() error {
		resp, err := c.client.R().SetQueryParams(params).Get("/query")
		if err != nil {
			return fmt.Errorf("alphavantage %s: %w", function, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("alphavantage %s: API error %d", function, resp.StatusCode())
		}
		// The API reports rate limits and bad symbols with a 200 and a
		// note in the body.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(resp.Body(), &probe); err == nil {
			for _, key := range []string{"Error Message", "Note", "Information"} {
				if msg, ok := probe[key]; ok {
					return fmt.Errorf("alphavantage %s: %s", function, string(msg))
				}
			}
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("alphavantage %s: parse response: %w", function, err)
		}
		return nil
	})
}

type avGlobalQuote struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		PreviousClose string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// Quote returns the current quote for a symbol.
func (c *AlphaVantageClient) Quote(symbol string) (*Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var raw avGlobalQuote
	if err := c.query("GLOBAL_QUOTE", map[string]string{"symbol": symbol}, &raw); err != nil {
		return nil, err
	}
	if raw.GlobalQuote.Symbol == "" {
		return nil, fmt.Errorf("no quote found for %s", symbol)
	}

	price, err := decimal.NewFromString(raw.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("alphavantage quote for %s: bad price %q", symbol, raw.GlobalQuote.Price)
	}
	change, _ := decimal.NewFromString(raw.GlobalQuote.Change)
	prevClose, _ := decimal.NewFromString(raw.GlobalQuote.PreviousClose)

	return &Quote{
		Symbol:        raw.GlobalQuote.Symbol,
		Price:         price,
		Change:        change,
		PreviousClose: prevClose,
		Source:        "alphavantage",
	}, nil
}

type avOverview struct {
	Symbol         string `json:"Symbol"`
	Name           string `json:"Name"`
	Description    string `json:"Description"`
	Currency       string `json:"Currency"`
	Exchange       string `json:"Exchange"`
	Sector         string `json:"Sector"`
	Industry       string `json:"Industry"`
	Country        string `json:"Country"`
	MarketCap      string `json:"MarketCapitalization"`
	Beta           string `json:"Beta"`
	PERatio        string `json:"PERatio"`
	EPS            string `json:"EPS"`
	DividendYield  string `json:"DividendYield"`
	FiftyTwoWkHigh string `json:"52WeekHigh"`
}

// CompanyOverview returns a profile built from the OVERVIEW endpoint.
// Alpha Vantage does not carry an ISIN, so that field stays empty.
func (c *AlphaVantageClient) CompanyOverview(symbol string) (*CompanyProfile, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached CompanyProfile
	if c.cache.Get("alphavantage", "overview", symbol, &cached) {
		return &cached, nil
	}

	var raw avOverview
	if err := c.query("OVERVIEW", map[string]string{"symbol": symbol}, &raw); err != nil {
		return nil, err
	}
	if raw.Symbol == "" {
		return nil, fmt.Errorf("no overview found for %s", symbol)
	}

	marketCap, _ := decimal.NewFromString(raw.MarketCap)
	beta, _ := decimal.NewFromString(raw.Beta)

	profile := CompanyProfile{
		Symbol:      raw.Symbol,
		CompanyName: raw.Name,
		Description: raw.Description,
		Currency:    raw.Currency,
		Exchange:    raw.Exchange,
		Sector:      raw.Sector,
		Industry:    raw.Industry,
		Country:     raw.Country,
		MarketCap:   marketCap,
		Beta:        beta,
		Source:      "alphavantage",
	}
	c.cache.Set("alphavantage", "overview", symbol, &profile)
	return &profile, nil
}

type avSearchResult struct {
	BestMatches []struct {
		Symbol   string `json:"1. symbol"`
		Name     string `json:"2. name"`
		Region   string `json:"4. region"`
		Currency string `json:"8. currency"`
	} `json:"bestMatches"`
}

// SearchSymbol resolves a free-text query to candidate symbols.
func (c *AlphaVantageClient) SearchSymbol(query string) ([]SymbolMatch, error) {
	var raw avSearchResult
	if err := c.query("SYMBOL_SEARCH", map[string]string{"keywords": query}, &raw); err != nil {
		return nil, err
	}
	matches := make([]SymbolMatch, 0, len(raw.BestMatches))
	for _, m := range raw.BestMatches {
		matches = append(matches, SymbolMatch{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Exchange: m.Region,
			Currency: m.Currency,
		})
	}
	return matches, nil
}
