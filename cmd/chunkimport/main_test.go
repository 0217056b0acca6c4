package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/terrain"
)

func writeJSON(t *testing.T, dir, name string, def protocol.ChunkDef) {
	t.Helper()
	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func def(id, x, y int) protocol.ChunkDef {
	return protocol.ChunkDef{ID: id, X: x, Y: y, Heights: make([]float64, terrain.Verts*terrain.Verts)}
}

func TestLoadDefsSortsAndPublishes(t *testing.T) {
	src := t.TempDir()
	writeJSON(t, src, "b.json", def(2, 1, 0))
	writeJSON(t, src, "a.json", def(1, 0, 0))

	defs, err := loadDefs(src)
	if err != nil {
		t.Fatalf("loadDefs: %v", err)
	}
	if len(defs) != 2 || defs[0].ID != 1 || defs[1].ID != 2 {
		t.Fatalf("defs not sorted by id")
	}

	out := t.TempDir()
	if err := writeFiles(out, defs); err != nil {
		t.Fatalf("writeFiles: %v", err)
	}
	dir, err := terrain.NewDir(out)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	defer dir.Close()
	got, err := dir.Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.X != 1 || got.Y != 0 {
		t.Fatalf("chunk 2 at %d,%d, want 1,0", got.X, got.Y)
	}
}

func TestLoadDefsRejects(t *testing.T) {
	tests := []struct {
		name  string
		defs  []protocol.ChunkDef
		match string
	}{
		{"duplicate id", []protocol.ChunkDef{def(1, 0, 0), def(1, 1, 0)}, "chunk id 1"},
		{"duplicate cell", []protocol.ChunkDef{def(1, 0, 0), def(2, 0, 0)}, "grid cell 0,0"},
		{"short heights", []protocol.ChunkDef{{ID: 1, Heights: []float64{0}}}, "validate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := t.TempDir()
			for i, d := range tt.defs {
				writeJSON(t, src, string(rune('a'+i))+".json", d)
			}
			_, err := loadDefs(src)
			if err == nil || !strings.Contains(err.Error(), tt.match) {
				t.Fatalf("err = %v, want mention of %q", err, tt.match)
			}
		})
	}
}

func TestLoadDefsEmptyDir(t *testing.T) {
	if _, err := loadDefs(t.TempDir()); err == nil {
		t.Fatalf("empty dir accepted")
	}
}
