package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactInfo describes one stored artifact of a record.
type ArtifactInfo struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// ErrArtifactExists reports a second save of the same (guid, kind).
// Artifacts are write-once: the guard chain keys off their presence, so
// mutating one after creation would silently change past decisions.
var ErrArtifactExists = errors.New("artifact already exists")

// ArtifactStore keeps named JSON blobs keyed by record guid, one file
// per (guid, kind) pair.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

func (s *ArtifactStore) path(guid, kind string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", guid, kind))
}

// Save stores raw JSON under (guid, kind). The payload must be valid
// JSON of any shape; articles feeds are arrays, provider payloads are
// objects.
func (s *ArtifactStore) Save(guid, kind string, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("artifact %s/%s is not valid JSON: %w", guid, kind, err)
	}
	path := s.path(guid, kind)
	if _, err := os.Stat(path); err == nil {
		return ErrArtifactExists
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pretty, 0o644); err != nil {
		return fmt.Errorf("write artifact %s/%s: %w", guid, kind, err)
	}
	return nil
}

// Has reports artifact presence without loading its content.
func (s *ArtifactStore) Has(guid, kind string) bool {
	_, err := os.Stat(s.path(guid, kind))
	return err == nil
}

// Load returns the raw artifact JSON; absence is the bool, not an error.
func (s *ArtifactStore) Load(guid, kind string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(guid, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read artifact %s/%s: %w", guid, kind, err)
	}
	return data, true, nil
}

// List enumerates all artifacts stored for guid, sorted by kind.
func (s *ArtifactStore) List(guid string) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	prefix := guid + "_"
	var out []ArtifactInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		kind := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		out = append(out, ArtifactInfo{Kind: kind, Path: filepath.Join(s.dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}
