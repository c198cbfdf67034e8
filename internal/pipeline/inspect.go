// Package pipeline holds the enrichment control plane: record
// inspection, the guard chain, the bounded loop and the run driver.
package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/models"
)

// Inspect derives the validity report for a record against the
// configured required fields. Missing lists required fields the record
// lacks; Invalid lists content-rule violations on fields that are
// present. Records may arrive here before ever hitting the store, so
// the numeric positivity rules are checked again even though the store
// enforces them on save.
func Inspect(rec *models.Instrument, required []string) models.InspectionReport {
	report := models.InspectionReport{
		Missing: rec.MissingOf(required),
	}

	if rec.Guid == "" {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "guid", Reason: "must not be empty",
		})
	}
	if rec.Ticker != "" && strings.IndexFunc(rec.Ticker, unicode.IsSpace) >= 0 {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "ticker", Reason: "must not contain whitespace",
		})
	}
	if rec.ISIN != "" && len(rec.ISIN) != 12 {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "isin", Reason: fmt.Sprintf("must be 12 characters, got %d", len(rec.ISIN)),
		})
	}
	if rec.Currency != "" && len(rec.Currency) != 3 {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "currency", Reason: fmt.Sprintf("must be a 3-letter code, got %q", rec.Currency),
		})
	}
	if rec.Price != nil && *rec.Price <= 0 {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "Price", Reason: "must be strictly positive",
		})
	}
	if rec.Value != nil && *rec.Value <= 0 {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "value", Reason: "must be strictly positive",
		})
	}
	if rec.NewsSentiment != "" && !consts.ValidSentiment(rec.NewsSentiment) {
		report.Invalid = append(report.Invalid, models.FieldIssue{
			Field: "News_Sentiment", Reason: fmt.Sprintf("%q is not Positive, Neutral or Negative", rec.NewsSentiment),
		})
	}

	report.OK = len(report.Missing) == 0 && len(report.Invalid) == 0
	if !report.OK {
		report.SuggestedFix = suggestFix(report)
	}
	return report
}

// suggestFix names the step most likely to cure the first problem, as
// a hint for the delegate.
func suggestFix(report models.InspectionReport) string {
	problem := ""
	if len(report.Missing) > 0 {
		problem = report.Missing[0]
	} else {
		problem = report.Invalid[0].Field
	}
	switch problem {
	case "ticker", "description", "currency", "isin", "guid":
		return consts.StepEntity
	case "Urls":
		return consts.StepNews
	case "News_Sentiment":
		return consts.StepSentiment
	}
	return consts.StepEntity
}
