package agents

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/FinScopeGo/internal/dataflows"
	"github.com/dyike/FinScopeGo/internal/models"
	"github.com/dyike/FinScopeGo/internal/store"
)

// Toolbox is the capability set handed to every collaborator: the two
// stores, the market data provider chain and the page scraper.
// Collaborators never construct their own clients.
type Toolbox struct {
	Records   *store.RecordStore
	Artifacts *store.ArtifactStore
	Data      *dataflows.Provider
	Scraper   *dataflows.Scraper
	Logger    *zap.Logger
}

func NewToolbox(records *store.RecordStore, artifacts *store.ArtifactStore, data *dataflows.Provider, scraper *dataflows.Scraper, logger *zap.Logger) *Toolbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolbox{
		Records:   records,
		Artifacts: artifacts,
		Data:      data,
		Scraper:   scraper,
		Logger:    logger,
	}
}

// MustLoad fetches the record for guid, turning absence into an error.
// Every collaborator starts here.
func (t *Toolbox) MustLoad(guid string) (*models.Instrument, error) {
	rec, found, err := t.Records.Load(guid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("record %s not found", guid)
	}
	return rec, nil
}

// SaveArtifactOnce stores raw JSON under (guid, kind) and treats an
// already-present artifact as success. Steps can be re-entered after a
// partial failure; the first write wins.
func (t *Toolbox) SaveArtifactOnce(guid, kind string, raw []byte) error {
	err := t.Artifacts.Save(guid, kind, raw)
	if errors.Is(err, store.ErrArtifactExists) {
		t.Logger.Debug("artifact already present, keeping first write",
			zap.String("guid", guid), zap.String("kind", kind))
		return nil
	}
	return err
}

// ArtifactSummary renders a compact listing of the artifacts stored for
// guid, suitable for inclusion in a delegate prompt.
func (t *Toolbox) ArtifactSummary(guid string) string {
	infos, err := t.Artifacts.List(guid)
	if err != nil {
		return statusJSON(map[string]any{"error": err.Error()})
	}
	kinds := make([]string, 0, len(infos))
	for _, info := range infos {
		kinds = append(kinds, info.Kind)
	}
	b, _ := json.Marshal(map[string]any{"guid": guid, "artifacts": kinds})
	return string(b)
}
