package dataflows

import (
	"fmt"

	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// YahooClient is the keyless last-resort quote source. It only serves
// price data; profiles and news still need FMP or Alpha Vantage.
type YahooClient struct{}

func NewYahooClient() *YahooClient {
	return &YahooClient{}
}

// Quote returns the current quote for a symbol. The equity endpoint is
// used because EPS and trailing PE only exist at the equity level.
func (c *YahooClient) Quote(symbol string) (*Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	q, err := equity.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("yahoo quote for %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("no quote found for %s", symbol)
	}
	return &Quote{
		Symbol:        q.Symbol,
		Name:          q.ShortName,
		Price:         decimal.NewFromFloat(q.RegularMarketPrice),
		Currency:      q.CurrencyID,
		Change:        decimal.NewFromFloat(q.RegularMarketChange),
		ChangePercent: decimal.NewFromFloat(q.RegularMarketChangePercent),
		Volume:        int64(q.RegularMarketVolume),
		PreviousClose: decimal.NewFromFloat(q.RegularMarketPreviousClose),
		EPS:           decimal.NewFromFloat(q.EpsTrailingTwelveMonths),
		PE:            decimal.NewFromFloat(q.TrailingPE),
		Source:        "yahoo",
	}, nil
}

// MarketState reports whether the exchange for a symbol is currently
// trading.
func (c *YahooClient) MarketState(symbol string) (string, error) {
	q, err := quote.Get(NormalizeSymbol(symbol))
	if err != nil {
		return "", fmt.Errorf("yahoo market state for %s: %w", symbol, err)
	}
	if q == nil {
		return "", fmt.Errorf("no quote found for %s", symbol)
	}
	return string(q.MarketState), nil
}
