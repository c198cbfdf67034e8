package dataflows

import (
	"github.com/shopspring/decimal"
)

// CompanyProfile is the provider-neutral company descriptor the entity
// step maps onto the record. Monetary fields stay decimal until they
// land on the record.
type CompanyProfile struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ISIN        string          `json:"isin"`
	Description string          `json:"description"`
	Sector      string          `json:"sector"`
	Industry    string          `json:"industry"`
	Exchange    string          `json:"exchange"`
	MarketCap   decimal.Decimal `json:"marketCap"`
	Beta        decimal.Decimal `json:"beta"`
	Website     string          `json:"website"`
	Country     string          `json:"country"`
	Source      string          `json:"source,omitempty"`
}

// Quote is a point-in-time price snapshot.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercentage"`
	Volume        int64           `json:"volume"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	EPS           decimal.Decimal `json:"eps"`
	PE            decimal.Decimal `json:"pe"`
	Source        string          `json:"source,omitempty"`
}

// NewsArticle is one story attached to a symbol.
type NewsArticle struct {
	Symbol      string `json:"symbol"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	Site        string `json:"site"`
	PublishedAt string `json:"publishedDate"`
}

// SymbolMatch is one search hit when resolving a free-text name to a
// ticker.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// PageContent is the bounded text extraction of a scraped web page.
type PageContent struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}
