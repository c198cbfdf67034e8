package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/agents"
)

type scriptedAnalyzer struct {
	result map[string]any
	err    error
	calls  int
}

func (a *scriptedAnalyzer) Analyze(_ context.Context, _ string, _ *agents.Toolbox) (map[string]any, error) {
	a.calls++
	return a.result, a.err
}

func TestDriverAnalysisFailureDowngrades(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(5)

	delegate := &scriptedDelegate{reply: `{"next_step": "final"}`}
	loop := NewLoop(cfg, caps, nil, delegate, nil, nil)
	analyzer := &scriptedAnalyzer{err: errors.New("model unavailable")}
	driver := NewDriver(cfg, caps, loop, nil, analyzer, nil)

	guid := completeRecord(t, caps)
	result, err := driver.Resume(context.Background(), guid, RunOptions{WithAnalysis: true})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.LastStep != consts.StepFinal {
		t.Fatalf("LastStep = %q, want final", result.LastStep)
	}
	if result.Analysis == nil {
		t.Fatal("Analysis is nil, want downgraded error entry")
	}
	if result.Analysis["error"] == "" || result.Analysis["error"] == nil {
		t.Fatalf("Analysis[error] missing: %v", result.Analysis)
	}
	if result.Analysis["message"] != "analysis unavailable" {
		t.Fatalf("Analysis[message] = %v", result.Analysis["message"])
	}
}

func TestDriverAnalysisSuccess(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(5)

	delegate := &scriptedDelegate{reply: `{"next_step": "final"}`}
	loop := NewLoop(cfg, caps, nil, delegate, nil, nil)
	analyzer := &scriptedAnalyzer{result: map[string]any{"summary": "healthy"}}
	driver := NewDriver(cfg, caps, loop, nil, analyzer, nil)

	guid := completeRecord(t, caps)
	result, err := driver.Resume(context.Background(), guid, RunOptions{WithAnalysis: true})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.Analysis["summary"] != "healthy" {
		t.Fatalf("Analysis = %v", result.Analysis)
	}
	if analyzer.calls != 1 {
		t.Fatalf("analyzer called %d times, want 1", analyzer.calls)
	}
}

func TestDriverSkipsExtendedDataWithoutTicker(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(1)

	// Record stays ticker-less: the lone entity worker is a noop.
	entity := &scriptedWorker{name: consts.StepEntity}
	loop := NewLoop(cfg, caps, []agents.Collaborator{entity}, nil, nil, nil)

	findata := &scriptedWorker{
		name: "findata",
		fn: func(string, *agents.Toolbox) (string, error) {
			t.Fatal("findata invoked for ticker-less record")
			return "", nil
		},
	}
	driver := NewDriver(cfg, caps, loop, findata, nil, nil)

	result, err := driver.Run(context.Background(), "analyze something unresolvable", RunOptions{WithExtendedData: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExtendedData != nil {
		t.Fatalf("ExtendedData = %v, want nil", result.ExtendedData)
	}
	if findata.calls != 0 {
		t.Fatalf("findata called %d times, want 0", findata.calls)
	}
}

func TestDriverExtendedDataFailurePropagates(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(5)

	delegate := &scriptedDelegate{reply: `{"next_step": "final"}`}
	loop := NewLoop(cfg, caps, nil, delegate, nil, nil)

	findata := &scriptedWorker{
		name: "findata",
		fn: func(string, *agents.Toolbox) (string, error) {
			return "", errors.New("income statement fetch failed")
		},
	}
	driver := NewDriver(cfg, caps, loop, findata, nil, nil)

	guid := completeRecord(t, caps)
	result, err := driver.Resume(context.Background(), guid, RunOptions{WithExtendedData: true})
	if err == nil {
		t.Fatal("Resume returned nil error after extended-data failure")
	}
	if result != nil {
		t.Fatalf("result = %+v, want nil", result)
	}
	if findata.calls != 1 {
		t.Fatalf("findata called %d times, want 1", findata.calls)
	}
}

func TestDriverCompilesSentimentSummary(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(5)

	delegate := &scriptedDelegate{reply: `{"next_step": "final"}`}
	loop := NewLoop(cfg, caps, nil, delegate, nil, nil)
	driver := NewDriver(cfg, caps, loop, nil, nil, nil)

	guid := completeRecord(t, caps)
	summary := []byte(`{"guid": "` + guid + `", "sentiment": "Neutral", "summary_bullets": ["No recent news available"]}`)
	if err := caps.Artifacts.Save(guid, consts.ArtifactSentiment, summary); err != nil {
		t.Fatalf("Save sentiment artifact: %v", err)
	}

	result, err := driver.Resume(context.Background(), guid, RunOptions{})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.SentimentSummary == nil {
		t.Fatal("SentimentSummary is nil")
	}
	if result.SentimentSummary.Sentiment != consts.SentimentNeutral {
		t.Fatalf("Sentiment = %q", result.SentimentSummary.Sentiment)
	}
	if result.Record == nil || result.Record.Guid != guid {
		t.Fatalf("Record not compiled: %+v", result.Record)
	}
}
