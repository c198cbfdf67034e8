package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, "guid-1", "analyze ACME")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if err := s.AppendStep(ctx, runID, 1, "entity", `{"ticker":"ACME"}`, ""); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := s.AppendStep(ctx, runID, 2, "news", "", "fetch failed"); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := s.FinishRun(ctx, runID, StatusDone, "news"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Guid != "guid-1" || runs[0].Status != StatusDone || runs[0].LastStep != "news" {
		t.Fatalf("unexpected run row: %+v", runs[0])
	}

	steps, err := s.ListSteps(ctx, runID)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[0].Step != "entity" || steps[1].Step != "news" {
		t.Fatalf("steps out of order: %+v", steps)
	}
	if steps[1].Error != "fetch failed" {
		t.Fatalf("step error not recorded: %+v", steps[1])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.StartRun(ctx, "guid-1", "first")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	second, err := s.StartRun(ctx, "guid-2", "second")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if second <= first {
		t.Fatalf("run ids not increasing: %d then %d", first, second)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if runs[0].Guid != "guid-2" {
		t.Fatalf("newest run first, got %q", runs[0].Guid)
	}
}
