// Package store persists the shared instrument record and its
// guid-keyed artifacts as JSON files, one file per record.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/FinScopeGo/internal/models"
)

// FieldError is a value-level validation failure: the record could not
// be persisted because one field violates its shape contract.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// ConflictError reports an optimistic-concurrency failure: the caller
// saved a record loaded at an older version than the one on disk.
type ConflictError struct {
	Guid   string
	Stored int64
	Given  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stale save of %s: stored version %d, given %d", e.Guid, e.Stored, e.Given)
}

// RecordStore keeps one JSON file per instrument record under dir.
// A process-wide mutex serializes save cycles so the version check and
// the write are atomic with respect to each other.
type RecordStore struct {
	dir string
	mu  sync.Mutex
}

func NewRecordStore(dir string) (*RecordStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &RecordStore{dir: dir}, nil
}

func (s *RecordStore) path(guid string) string {
	return filepath.Join(s.dir, guid+".json")
}

// Create mints a fresh guid, stamps the creation date and persists the
// initial record carrying only guid, date and the originating prompt.
func (s *RecordStore) Create(prompt string) (string, error) {
	rec := &models.Instrument{
		Prompt: prompt,
		Guid:   uuid.NewString(),
		Date:   time.Now().UTC().Format("2006-01-02"),
	}
	if _, err := s.Save(rec); err != nil {
		return "", err
	}
	return rec.Guid, nil
}

// Load returns the record for guid. A missing record is reported by the
// bool, not by an error.
func (s *RecordStore) Load(guid string) (*models.Instrument, bool, error) {
	data, err := os.ReadFile(s.path(guid))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read record %s: %w", guid, err)
	}
	var rec models.Instrument
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("decode record %s: %w", guid, err)
	}
	return &rec, true, nil
}

// Save validates and fully replaces the record under its guid; there is
// no field-level merge. A record without a guid gets one minted, a
// record without a date gets today. Validation failures come back as a
// *FieldError value; a stale version comes back as *ConflictError.
//
// Version zero means the caller never loaded the record and asks for an
// unconditional overwrite. A non-zero version must match what is on
// disk, which protects two concurrent enrichment runs against silently
// discarding each other's writes.
func (s *RecordStore) Save(rec *models.Instrument) (string, error) {
	if rec.Guid == "" {
		rec.Guid = uuid.NewString()
	}
	if rec.Date == "" {
		rec.Date = time.Now().UTC().Format("2006-01-02")
	}
	if ferr := validateRecord(rec); ferr != nil {
		return "", ferr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.Load(rec.Guid)
	if err != nil {
		return "", err
	}
	if found && rec.Version != 0 && rec.Version != current.Version {
		return "", &ConflictError{Guid: rec.Guid, Stored: current.Version, Given: rec.Version}
	}
	if found {
		rec.Version = current.Version + 1
	} else {
		rec.Version = 1
	}

	if err := writeJSONFile(s.path(rec.Guid), rec); err != nil {
		return "", fmt.Errorf("write record %s: %w", rec.Guid, err)
	}
	return rec.Guid, nil
}

// validateRecord checks every field against its shape contract before
// anything touches disk. Content-level rules (ISIN length, sentiment
// vocabulary and so on) belong to inspection, not to the store.
func validateRecord(rec *models.Instrument) *FieldError {
	if _, err := time.Parse("2006-01-02", rec.Date); err != nil {
		return &FieldError{Field: "date", Reason: fmt.Sprintf("not a YYYY-MM-DD date: %q", rec.Date)}
	}
	if rec.Price != nil && *rec.Price <= 0 {
		return &FieldError{Field: "Price", Reason: "must be strictly positive"}
	}
	if rec.Value != nil && *rec.Value <= 0 {
		return &FieldError{Field: "value", Reason: "must be strictly positive"}
	}
	if rec.Quantity != nil && *rec.Quantity < 0 {
		return &FieldError{Field: "Quantity", Reason: "must not be negative"}
	}
	for i, u := range rec.Urls {
		if u == "" {
			return &FieldError{Field: "Urls", Reason: fmt.Sprintf("entry %d is empty", i)}
		}
	}
	return nil
}

// writeJSONFile writes via a temp file and rename so readers never see a
// partial record.
func writeJSONFile(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "rec-*.tmp")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
