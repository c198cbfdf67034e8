package models

// SentimentSummary is the recomputed sentiment digest attached to the
// final pipeline result.
type SentimentSummary struct {
	Guid           string   `json:"guid"`
	Sentiment      string   `json:"sentiment"`
	SummaryBullets []string `json:"summary_bullets"`
}

// PipelineResult is the aggregate returned by a full pipeline run.
// ExtendedData and Analysis stay nil when their stages were skipped.
// Analysis may carry an "error" key when the analysis stage failed and
// was downgraded to a partial result.
type PipelineResult struct {
	Guid             string            `json:"guid"`
	LastStep         string            `json:"last_step"`
	Record           *Instrument       `json:"finance"`
	SentimentSummary *SentimentSummary `json:"summary_sentiment,omitempty"`
	ExtendedData     map[string]any    `json:"financial_data,omitempty"`
	Analysis         map[string]any    `json:"analysis,omitempty"`
}
