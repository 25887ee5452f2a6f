package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("embedded catalog is empty")
	}

	// Batch lists must partition the catalog.
	total := len(c.ListByBatch(1)) + len(c.ListByBatch(2))
	if total != c.Len() {
		t.Errorf("batches hold %d scenarios, catalog has %d", total, c.Len())
	}
}

func TestBatchMembership(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, batch := range []int{1, 2} {
		ids := c.IDsByBatch(batch)
		if len(ids) == 0 {
			t.Fatalf("batch %d is empty", batch)
		}
		for i, id := range ids {
			sc, err := c.Get(id)
			if err != nil {
				t.Fatalf("Get(%d): %v", id, err)
			}
			if sc.Batch != batch {
				t.Errorf("Get(%d).Batch = %d, want %d", id, sc.Batch, batch)
			}
			if i > 0 && ids[i-1] >= id {
				t.Errorf("batch %d ids not ascending: %v", batch, ids)
			}
		}
	}
}

func TestGetUnknownID(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = c.Get(999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(999) error = %v, want ErrNotFound", err)
	}
}

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test catalog: %v", err)
	}
	return path
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			"not json",
			"{{",
			"parse scenarios",
		},
		{
			"duplicate id",
			`[{"id":1,"batch":1,"orientation":"strategic","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}},
			  {"id":1,"batch":2,"orientation":"understanding","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}}]`,
			"duplicate id",
		},
		{
			"bad batch",
			`[{"id":1,"batch":3,"orientation":"strategic","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}}]`,
			"batch must be 1 or 2",
		},
		{
			"bad orientation",
			`[{"id":1,"batch":1,"orientation":"aggressive","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}}]`,
			"unknown orientation",
		},
		{
			"missing german persona",
			`[{"id":1,"batch":1,"orientation":"strategic","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":""}}]`,
			"both languages",
		},
		{
			"empty batch 2",
			`[{"id":1,"batch":1,"orientation":"strategic","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}}]`,
			"batch 2 has no scenarios",
		},
		{
			"non-positive id",
			`[{"id":0,"batch":1,"orientation":"strategic","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}}]`,
			"must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalogFile(t, tt.json)
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected load error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileOverride(t *testing.T) {
	path := writeCatalogFile(t, `[
		{"id":10,"batch":1,"orientation":"strategic","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}},
		{"id":20,"batch":2,"orientation":"understanding","title":{"en":"t","de":"t"},"briefing":{"en":"b","de":"b"},"persona":{"en":"p","de":"p"}}
	]`)

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	sc, err := c.Get(20)
	if err != nil {
		t.Fatalf("Get(20): %v", err)
	}
	if sc.Orientation != model.OrientationUnderstanding {
		t.Errorf("orientation = %q", sc.Orientation)
	}
}
