package store

import (
	"errors"
	"testing"

	"github.com/dyike/FinScopeGo/internal/models"
)

func TestCreateAndLoad(t *testing.T) {
	s, err := NewRecordStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewRecordStore: %v", err)
	}

	guid, err := s.Create("Analyze Apple Inc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if guid == "" {
		t.Fatal("expected non-empty guid")
	}

	rec, found, err := s.Load(guid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("record not found after create")
	}
	if rec.Guid != guid || rec.Prompt != "Analyze Apple Inc" || rec.Date == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestLoadNotFoundIsValue(t *testing.T) {
	s, _ := NewRecordStore(t.TempDir())
	rec, found, err := s.Load("no-such-guid")
	if err != nil {
		t.Fatalf("Load returned error for missing record: %v", err)
	}
	if found || rec != nil {
		t.Fatal("expected not-found value")
	}
}

func TestSaveFullOverwrite(t *testing.T) {
	s, _ := NewRecordStore(t.TempDir())

	price := 191.5
	first := &models.Instrument{
		Guid:        "g1",
		Ticker:      "ACME",
		Description: "Acme Corp",
		Currency:    "USD",
		Price:       &price,
	}
	if _, err := s.Save(first); err != nil {
		t.Fatalf("Save first: %v", err)
	}

	second := &models.Instrument{Guid: "g1", Ticker: "ACME"}
	if _, err := s.Save(second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	rec, _, err := s.Load("g1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Ticker != "ACME" {
		t.Fatalf("expected ticker ACME, got %q", rec.Ticker)
	}
	if rec.Description != "" || rec.Currency != "" || rec.Price != nil {
		t.Fatalf("fields from prior version survived overwrite: %+v", rec)
	}
}

func TestSaveMintsGuidAndDate(t *testing.T) {
	s, _ := NewRecordStore(t.TempDir())
	guid, err := s.Save(&models.Instrument{Ticker: "MSFT"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, found, _ := s.Load(guid)
	if !found || rec.Date == "" {
		t.Fatalf("expected minted guid and date, got %+v", rec)
	}
}

func TestSaveValidationError(t *testing.T) {
	s, _ := NewRecordStore(t.TempDir())
	bad := -3.0
	_, err := s.Save(&models.Instrument{Guid: "g2", Price: &bad})
	var ferr *FieldError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FieldError, got %v", err)
	}
	if ferr.Field != "Price" {
		t.Fatalf("expected Price violation, got %s", ferr.Field)
	}
}

func TestSaveStaleVersionConflicts(t *testing.T) {
	s, _ := NewRecordStore(t.TempDir())
	guid, err := s.Create("prompt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, _, _ := s.Load(guid)
	b, _, _ := s.Load(guid)

	a.Ticker = "AAPL"
	if _, err := s.Save(a); err != nil {
		t.Fatalf("Save a: %v", err)
	}

	b.Ticker = "GOOG"
	_, err = s.Save(b)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}

	rec, _, _ := s.Load(guid)
	if rec.Ticker != "AAPL" {
		t.Fatalf("conflicting save overwrote earlier writer: %+v", rec)
	}
}

func TestArtifactsWriteOnce(t *testing.T) {
	s, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}

	if s.Has("g1", "articles") {
		t.Fatal("artifact should not exist yet")
	}
	if err := s.Save("g1", "articles", []byte(`[{"title":"x"}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Has("g1", "articles") {
		t.Fatal("artifact missing after save")
	}
	if err := s.Save("g1", "articles", []byte(`[]`)); !errors.Is(err, ErrArtifactExists) {
		t.Fatalf("expected ErrArtifactExists, got %v", err)
	}

	data, found, err := s.Load("g1", "articles")
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if len(data) == 0 {
		t.Fatal("empty artifact payload")
	}

	infos, err := s.List("g1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Kind != "articles" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestArtifactRejectsInvalidJSON(t *testing.T) {
	s, _ := NewArtifactStore(t.TempDir())
	if err := s.Save("g1", "articles", []byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON payload")
	}
}
