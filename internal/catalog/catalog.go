// Package catalog loads and serves the scenario catalog: the immutable set
// of bilingual role-play scenarios, validated once at startup.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/samber/lo"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

//go:embed scenarios/*.json
var scenarioFS embed.FS

// ErrNotFound is returned by Get for an unknown scenario id.
var ErrNotFound = errors.New("scenario not found")

// Catalog is a read-only scenario collection. Safe for concurrent use
// after construction.
type Catalog struct {
	byID    map[int]model.Scenario
	byBatch map[int][]model.Scenario
}

// Load reads and validates scenarios from the embedded default asset.
func Load() (*Catalog, error) {
	return loadFS(scenarioFS, "scenarios/scenarios.json")
}

// LoadFile reads and validates scenarios from an external JSON file,
// overriding the embedded asset.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios file: %w", err)
	}
	return parse(data)
}

func loadFS(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read embedded scenarios: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var scenarios []model.Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}

	c := &Catalog{
		byID:    make(map[int]model.Scenario, len(scenarios)),
		byBatch: make(map[int][]model.Scenario),
	}
	for _, sc := range scenarios {
		if err := validate(sc); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", sc.ID, err)
		}
		if _, dup := c.byID[sc.ID]; dup {
			return nil, fmt.Errorf("scenario %d: duplicate id", sc.ID)
		}
		c.byID[sc.ID] = sc
		c.byBatch[sc.Batch] = append(c.byBatch[sc.Batch], sc)
	}

	for batch := 1; batch <= 2; batch++ {
		if len(c.byBatch[batch]) == 0 {
			return nil, fmt.Errorf("batch %d has no scenarios", batch)
		}
		sort.Slice(c.byBatch[batch], func(i, j int) bool {
			return c.byBatch[batch][i].ID < c.byBatch[batch][j].ID
		})
	}

	return c, nil
}

func validate(sc model.Scenario) error {
	if sc.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", sc.ID)
	}
	if sc.Batch != 1 && sc.Batch != 2 {
		return fmt.Errorf("batch must be 1 or 2, got %d", sc.Batch)
	}
	switch sc.Orientation {
	case model.OrientationStrategic, model.OrientationUnderstanding:
	default:
		return fmt.Errorf("unknown orientation %q", sc.Orientation)
	}
	for _, txt := range []struct {
		name string
		t    model.Text
	}{
		{"title", sc.Title},
		{"briefing", sc.Briefing},
		{"persona", sc.Persona},
	} {
		if txt.t.EN == "" || txt.t.DE == "" {
			return fmt.Errorf("%s must be set in both languages", txt.name)
		}
	}
	return nil
}

// Get returns the scenario with the given id.
func (c *Catalog) Get(id int) (model.Scenario, error) {
	sc, ok := c.byID[id]
	if !ok {
		return model.Scenario{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return sc, nil
}

// ListByBatch returns the scenarios of a batch in ascending id order.
func (c *Catalog) ListByBatch(batch int) []model.Scenario {
	return c.byBatch[batch]
}

// IDsByBatch returns the scenario ids of a batch in ascending order.
func (c *Catalog) IDsByBatch(batch int) []int {
	return lo.Map(c.byBatch[batch], func(sc model.Scenario, _ int) int {
		return sc.ID
	})
}

// Len returns the total number of scenarios.
func (c *Catalog) Len() int {
	return len(c.byID)
}
