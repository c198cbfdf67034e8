package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/dyike/FinScopeGo/consts"
	"github.com/dyike/FinScopeGo/internal/agents"
	"github.com/dyike/FinScopeGo/internal/config"
	"github.com/dyike/FinScopeGo/internal/jsonrepair"
	"github.com/dyike/FinScopeGo/internal/models"
	"github.com/dyike/FinScopeGo/internal/store"
)

func newTestToolbox(t *testing.T) *agents.Toolbox {
	t.Helper()
	records, err := store.NewRecordStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewRecordStore: %v", err)
	}
	artifacts, err := store.NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	return agents.NewToolbox(records, artifacts, nil, nil, nil)
}

func newTestConfig(maxLoops int) *config.Config {
	return &config.Config{
		MaxLoops:       maxLoops,
		RequiredFields: config.DefaultRequiredFields(),
	}
}

type scriptedWorker struct {
	name  string
	calls int
	fn    func(guid string, caps *agents.Toolbox) (string, error)
}

func (w *scriptedWorker) Name() string { return w.name }

func (w *scriptedWorker) Invoke(_ context.Context, guid string, caps *agents.Toolbox) (string, error) {
	w.calls++
	if w.fn != nil {
		return w.fn(guid, caps)
	}
	return "{}", nil
}

type scriptedDelegate struct {
	reply string
	err   error
	calls int
}

func (d *scriptedDelegate) Decide(_ context.Context, _, _ string, _ *agents.Toolbox) (string, error) {
	d.calls++
	return d.reply, d.err
}

// completeRecord creates a record that satisfies every guard: identity
// fields, sentiment and the articles artifact.
func completeRecord(t *testing.T, caps *agents.Toolbox) string {
	t.Helper()
	guid, err := caps.Records.Create("analyze ACME")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec, err := caps.MustLoad(guid)
	if err != nil {
		t.Fatalf("MustLoad: %v", err)
	}
	rec.Ticker = "ACME"
	rec.Description = "Acme Corp"
	rec.Currency = "USD"
	rec.ISIN = "US0000000001"
	rec.NewsSentiment = consts.SentimentNeutral
	if _, err := caps.Records.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := caps.Artifacts.Save(guid, consts.ArtifactArticles, []byte("[]")); err != nil {
		t.Fatalf("Save artifact: %v", err)
	}
	return guid
}

func TestGuardChainPriority(t *testing.T) {
	caps := newTestToolbox(t)
	required := config.DefaultRequiredFields()

	guid, err := caps.Records.Create("analyze ACME")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec, _ := caps.MustLoad(guid)

	// Fresh record misses identity fields.
	if got := NextStep(rec, required, caps.Artifacts); got != consts.StepEntity {
		t.Fatalf("fresh record: got %q, want entity", got)
	}

	rec.Ticker = "ACME"
	rec.Description = "Acme Corp"
	rec.Currency = "USD"
	rec.ISIN = "US0000000001"
	if got := NextStep(rec, required, caps.Artifacts); got != consts.StepNews {
		t.Fatalf("identity complete, no articles: got %q, want news", got)
	}

	if err := caps.Artifacts.Save(guid, consts.ArtifactArticles, []byte("[]")); err != nil {
		t.Fatalf("Save artifact: %v", err)
	}
	if got := NextStep(rec, required, caps.Artifacts); got != consts.StepSentiment {
		t.Fatalf("articles present, no sentiment: got %q, want sentiment", got)
	}

	rec.NewsSentiment = consts.SentimentNegative
	if got := NextStep(rec, required, caps.Artifacts); got != consts.StepDecide {
		t.Fatalf("everything present: got %q, want decide", got)
	}
}

func TestGuardEntityBeatsLaterSteps(t *testing.T) {
	caps := newTestToolbox(t)
	required := config.DefaultRequiredFields()

	// Sentiment already set but ticker missing: entity still wins.
	rec := &models.Instrument{
		Guid:          "g-1",
		Date:          "2026-01-02",
		Description:   "Acme Corp",
		Currency:      "USD",
		ISIN:          "US0000000001",
		NewsSentiment: consts.SentimentPositive,
	}
	if got := NextStep(rec, required, caps.Artifacts); got != consts.StepEntity {
		t.Fatalf("got %q, want entity", got)
	}
}

func TestGuardValuationFieldsEscalate(t *testing.T) {
	caps := newTestToolbox(t)

	// A missing valuation field is not identity work: the guard must
	// escalate to the delegate instead of looping back to entity.
	guid := completeRecord(t, caps)
	rec, err := caps.MustLoad(guid)
	if err != nil {
		t.Fatalf("MustLoad: %v", err)
	}
	for _, field := range []string{"value", "Price"} {
		if got := NextStep(rec, []string{field}, caps.Artifacts); got != consts.StepDecide {
			t.Fatalf("required=%q: got %q, want decide", field, got)
		}
	}
}

func TestInspectContentRules(t *testing.T) {
	required := config.DefaultRequiredFields()

	rec := &models.Instrument{
		Guid:          "g-1",
		Date:          "2026-01-02",
		Ticker:        "AC ME",
		Description:   "Acme Corp",
		Currency:      "DOLLARS",
		ISIN:          "SHORT",
		NewsSentiment: "meh",
	}
	report := Inspect(rec, required)
	if report.OK {
		t.Fatal("report.OK = true for invalid record")
	}
	want := map[string]bool{
		"ticker":         true,
		"currency":       true,
		"isin":           true,
		"News_Sentiment": true,
	}
	for _, issue := range report.Invalid {
		if !want[issue.Field] {
			t.Errorf("unexpected issue on field %q: %s", issue.Field, issue.Reason)
		}
		delete(want, issue.Field)
	}
	for field := range want {
		t.Errorf("no issue reported for field %q", field)
	}
	if report.SuggestedFix == "" {
		t.Error("invalid report carries no suggested fix")
	}
}

func TestInspectNonPositiveNumbers(t *testing.T) {
	price := 0.0
	value := -12.5
	rec := &models.Instrument{
		Guid:          "g-1",
		Date:          "2026-01-02",
		Ticker:        "ACME",
		Description:   "Acme Corp",
		Currency:      "USD",
		ISIN:          "US0000000001",
		NewsSentiment: consts.SentimentNeutral,
		Price:         &price,
		Value:         &value,
	}
	report := Inspect(rec, config.DefaultRequiredFields())
	if report.OK {
		t.Fatal("report.OK = true with non-positive price and value")
	}
	want := map[string]bool{"Price": true, "value": true}
	for _, issue := range report.Invalid {
		if !want[issue.Field] {
			t.Errorf("unexpected issue on field %q: %s", issue.Field, issue.Reason)
		}
		delete(want, issue.Field)
	}
	for field := range want {
		t.Errorf("no issue reported for field %q", field)
	}
}

func TestInspectCleanRecord(t *testing.T) {
	rec := &models.Instrument{
		Guid:          "g-1",
		Date:          "2026-01-02",
		Ticker:        "ACME",
		Description:   "Acme Corp",
		Currency:      "USD",
		ISIN:          "US0000000001",
		NewsSentiment: consts.SentimentNeutral,
	}
	report := Inspect(rec, config.DefaultRequiredFields())
	if !report.OK {
		t.Fatalf("report not OK: missing=%v invalid=%v", report.Missing, report.Invalid)
	}
	if report.SuggestedFix != "" {
		t.Fatalf("clean report suggests %q", report.SuggestedFix)
	}
}

func TestLoopCapIsNormalTermination(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(3)

	guid, err := caps.Records.Create("analyze ACME")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Entity worker that never fixes anything; the guard keeps picking
	// it until the cap is exhausted.
	entity := &scriptedWorker{name: consts.StepEntity}
	loop := NewLoop(cfg, caps, []agents.Collaborator{entity}, nil, nil, nil)

	lastStep, err := loop.Run(context.Background(), guid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastStep != consts.StepEntity {
		t.Fatalf("lastStep = %q, want entity", lastStep)
	}
	if entity.calls != cfg.MaxLoops {
		t.Fatalf("entity ran %d times, want %d", entity.calls, cfg.MaxLoops)
	}
}

func TestLoopStepFailureAbortsRun(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(4)

	guid, err := caps.Records.Create("analyze ACME")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entity := &scriptedWorker{
		name: consts.StepEntity,
		fn: func(string, *agents.Toolbox) (string, error) {
			return "", &jsonrepair.ParseError{Step: consts.StepEntity, Snippet: "not json"}
		},
	}
	loop := NewLoop(cfg, caps, []agents.Collaborator{entity}, nil, nil, nil)

	lastStep, err := loop.Run(context.Background(), guid)
	if err == nil {
		t.Fatal("Run returned nil error after step failure")
	}
	var perr *jsonrepair.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error %v does not wrap the parse failure", err)
	}
	if lastStep != consts.StepEntity {
		t.Fatalf("lastStep = %q, want entity", lastStep)
	}
	if entity.calls != 1 {
		t.Fatalf("entity ran %d times after failing, want 1", entity.calls)
	}
}

func TestLoopDelegateEndsRun(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(5)
	guid := completeRecord(t, caps)

	delegate := &scriptedDelegate{reply: `{"next_step": "final", "note": "record complete"}`}
	loop := NewLoop(cfg, caps, nil, delegate, nil, nil)

	lastStep, err := loop.Run(context.Background(), guid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastStep != consts.StepFinal {
		t.Fatalf("lastStep = %q, want final", lastStep)
	}
	if delegate.calls != 1 {
		t.Fatalf("delegate called %d times, want 1", delegate.calls)
	}
}

func TestLoopDelegateGarbageDefaultsToEntity(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(2)
	guid := completeRecord(t, caps)

	delegate := &scriptedDelegate{reply: "I cannot comply."}
	entity := &scriptedWorker{name: consts.StepEntity}
	loop := NewLoop(cfg, caps, []agents.Collaborator{entity}, delegate, nil, nil)

	lastStep, err := loop.Run(context.Background(), guid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastStep != consts.StepEntity {
		t.Fatalf("lastStep = %q, want entity", lastStep)
	}
	if entity.calls == 0 {
		t.Fatal("entity never dispatched after garbage delegate reply")
	}
}

func TestLoopWithoutDelegateEndsRun(t *testing.T) {
	caps := newTestToolbox(t)
	cfg := newTestConfig(5)
	guid := completeRecord(t, caps)

	loop := NewLoop(cfg, caps, nil, nil, nil, nil)
	lastStep, err := loop.Run(context.Background(), guid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastStep != consts.StepFinal {
		t.Fatalf("lastStep = %q, want final", lastStep)
	}
}

func TestNormalizeDecision(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"explicit final", `{"next_step": "final"}`, consts.StepFinal},
		{"fenced news", "```json\n{\"next_step\": \"news\"}\n```", consts.StepNews},
		{"unknown step", `{"next_step": "reconcile"}`, consts.StepEntity},
		{"decide is not dispatchable", `{"next_step": "decide"}`, consts.StepEntity},
		{"refusal text", "I cannot comply.", consts.StepEntity},
		{"case folded", `{"next_step": "Sentiment"}`, consts.StepSentiment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeDecision(tc.raw); got.NextStep != tc.want {
				t.Fatalf("normalizeDecision(%q).NextStep = %q, want %q", tc.raw, got.NextStep, tc.want)
			}
		})
	}
}
