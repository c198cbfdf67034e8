package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/config"
	"github.com/dyike/FinScopeGo/internal/history"
	"github.com/dyike/FinScopeGo/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(80)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(18)

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	neutralStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

// RenderRunHeader renders the banner shown before a run starts.
func RenderRunHeader(prompt string) string {
	return titleStyle.Render("FinScope") + "  " + prompt
}

// RenderResult renders the compiled pipeline result.
func RenderResult(result *models.PipelineResult) string {
	var b strings.Builder

	b.WriteString(row("Guid", result.Guid))
	b.WriteString(row("Last step", result.LastStep))

	rec := result.Record
	if rec != nil {
		b.WriteString(row("Ticker", rec.Ticker))
		b.WriteString(row("Description", rec.Description))
		b.WriteString(row("Currency", rec.Currency))
		b.WriteString(row("ISIN", rec.ISIN))
		if rec.Price != nil {
			b.WriteString(row("Price", fmt.Sprintf("%.2f", *rec.Price)))
		}
		b.WriteString(row("Sentiment", renderSentiment(rec.NewsSentiment)))
	}

	if result.SentimentSummary != nil && len(result.SentimentSummary.SummaryBullets) > 0 {
		b.WriteString("\nNews drivers:\n")
		for _, bullet := range result.SentimentSummary.SummaryBullets {
			b.WriteString("  - " + bullet + "\n")
		}
	}

	if len(result.ExtendedData) > 0 {
		kinds := make([]string, 0, len(result.ExtendedData))
		for kind := range result.ExtendedData {
			kinds = append(kinds, kind)
		}
		b.WriteString(row("Financial data", strings.Join(kinds, ", ")))
	}

	if result.Analysis != nil {
		if errMsg, ok := result.Analysis["error"].(string); ok {
			b.WriteString(row("Analysis", errorStyle.Render("failed: "+errMsg)))
		} else if summary, ok := result.Analysis["summary"].(string); ok {
			b.WriteString(row("Analysis", summary))
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderSentiment(s string) string {
	switch s {
	case consts.SentimentPositive:
		return positiveStyle.Render(s)
	case consts.SentimentNegative:
		return negativeStyle.Render(s)
	case consts.SentimentNeutral:
		return neutralStyle.Render(s)
	}
	return s
}

func row(label, value string) string {
	if value == "" {
		return ""
	}
	return labelStyle.Render(label) + value + "\n"
}

// RenderRuns renders the run history listing.
func RenderRuns(runs []history.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Enrichment runs") + "\n")
	for _, r := range runs {
		prompt := r.Prompt
		if runes := []rune(prompt); len(runes) > 50 {
			prompt = string(runes[:50]) + "..."
		}
		fmt.Fprintf(&b, "%4d  %-8s  %-9s  %s  %s\n",
			r.ID, r.Status, r.LastStep, r.CreatedAt, prompt)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSteps renders the per-iteration trace of one run.
func RenderSteps(runID int64, steps []history.StepRecord) string {
	if len(steps) == 0 {
		return fmt.Sprintf("No steps recorded for run %d.", runID)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %d", runID)) + "\n")
	for _, s := range steps {
		line := fmt.Sprintf("%3d  %-9s", s.Iteration, s.Step)
		if s.Error != "" {
			line += "  " + errorStyle.Render(s.Error)
		} else if s.Output != "" {
			out := s.Output
			if runes := []rune(out); len(runes) > 70 {
				out = string(runes[:70]) + "..."
			}
			line += "  " + out
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderConfig renders the non-secret configuration values.
func RenderConfig(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("FinScope configuration") + "\n")
	b.WriteString(row("Project dir", cfg.ProjectDir))
	b.WriteString(row("State dir", cfg.StateDir))
	b.WriteString(row("Articles dir", cfg.ArticlesDir))
	b.WriteString(row("Cache dir", cfg.DataCacheDir))
	b.WriteString(row("History DB", cfg.HistoryDBPath))
	b.WriteString(row("Max loops", fmt.Sprintf("%d", cfg.MaxLoops)))
	b.WriteString(row("Required fields", strings.Join(cfg.RequiredFields, ", ")))
	b.WriteString(row("Agent timeout", fmt.Sprintf("%ds", cfg.AgentTimeoutSec)))
	b.WriteString(row("LLM provider", cfg.LLMProvider))
	b.WriteString(row("Chat model", cfg.ChatModel))
	b.WriteString(row("FMP key", configured(cfg.FMPAPIKey)))
	b.WriteString(row("Alpha Vantage key", configured(cfg.AlphaVantageAPIKey)))
	b.WriteString(row("Cache enabled", fmt.Sprintf("%t", cfg.CacheEnabled)))
	b.WriteString(row("Debug", fmt.Sprintf("%t", cfg.Debug)))
	return strings.TrimRight(b.String(), "\n")
}

func configured(key string) string {
	if key == "" {
		return "not configured"
	}
	return "configured"
}
