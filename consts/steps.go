package consts

// Enrichment pipeline step names. The guard chain walks them in this
// priority order; "decide" and "final" only ever come out of the
// escalation branch.
const (
	StepInit      = "init"
	StepEntity    = "entity"
	StepNews      = "news"
	StepSentiment = "sentiment"
	StepDecide    = "decide"
	StepFinal     = "final"
)

// Artifact kinds stored per record guid.
const (
	ArtifactArticles   = "articles"
	ArtifactProfile    = "profile"
	ArtifactFinancials = "financials"
	ArtifactKeyMetrics = "key_metrics"
	ArtifactRatios     = "ratios"
	ArtifactPrices     = "historical_prices"
	ArtifactSentiment  = "sentiment_summary"
)

// Sentiment labels accepted on a record.
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// DispatchableStep reports whether s is a step the loop can execute as
// the delegate's next action. "final" is dispatchable (it ends the run);
// "init" and "decide" are not.
func DispatchableStep(s string) bool {
	switch s {
	case StepEntity, StepNews, StepSentiment, StepFinal:
		return true
	}
	return false
}

// ValidSentiment reports whether s is one of the three accepted labels.
func ValidSentiment(s string) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}
