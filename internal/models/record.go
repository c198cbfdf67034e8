package models

// Instrument is the shared enrichment record. It is created once with
// only guid/date/prompt populated and then mutated by every pipeline
// step through load-modify-save. The guid never changes after creation.
//
// Optional numeric attributes are pointers so "absent" is
// distinguishable from zero; string attributes treat "" as absent.
// JSON field names follow the persisted record format.
type Instrument struct {
	Prompt      string `json:"prompt,omitempty"`
	Guid        string `json:"guid,omitempty"`
	Ticker      string `json:"ticker,omitempty"`
	Date        string `json:"date,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
	ISIN        string `json:"isin,omitempty"`
	Position    string `json:"Position,omitempty"`

	Value    *float64 `json:"value,omitempty"`
	Quantity *int     `json:"Quantity,omitempty"`
	Price    *float64 `json:"Price,omitempty"`

	NewsSentiment string   `json:"News_Sentiment,omitempty"`
	Urls          []string `json:"Urls,omitempty"`

	// Extended fundamentals filled by the financial data stage.
	MarketCap     *float64 `json:"marketCap,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
	PERatio       *float64 `json:"peRatio,omitempty"`
	EPS           *float64 `json:"eps,omitempty"`
	DividendYield *float64 `json:"dividendYield,omitempty"`
	Sector        string   `json:"sector,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`

	// Version is the optimistic-concurrency counter maintained by the
	// record store. Zero means the caller never loaded the record; the
	// store then performs an unconditional overwrite.
	Version int64 `json:"version,omitempty"`
}

// FieldSet reports whether the named attribute carries a value. Names
// match the persisted JSON keys.
func (r *Instrument) FieldSet(name string) bool {
	switch name {
	case "prompt":
		return r.Prompt != ""
	case "guid":
		return r.Guid != ""
	case "ticker":
		return r.Ticker != ""
	case "date":
		return r.Date != ""
	case "currency":
		return r.Currency != ""
	case "description":
		return r.Description != ""
	case "isin":
		return r.ISIN != ""
	case "Position":
		return r.Position != ""
	case "value":
		return r.Value != nil
	case "Quantity":
		return r.Quantity != nil
	case "Price":
		return r.Price != nil
	case "News_Sentiment":
		return r.NewsSentiment != ""
	case "Urls":
		return len(r.Urls) > 0
	case "marketCap":
		return r.MarketCap != nil
	case "beta":
		return r.Beta != nil
	case "peRatio":
		return r.PERatio != nil
	case "eps":
		return r.EPS != nil
	case "dividendYield":
		return r.DividendYield != nil
	case "sector":
		return r.Sector != ""
	case "industry":
		return r.Industry != ""
	case "exchange":
		return r.Exchange != ""
	}
	return false
}

// MissingOf returns the subset of required field names the record does
// not carry, preserving the configured order.
func (r *Instrument) MissingOf(required []string) []string {
	var missing []string
	for _, name := range required {
		if !r.FieldSet(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
