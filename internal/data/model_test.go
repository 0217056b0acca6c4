package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadModelTable(t *testing.T) {
	p := filepath.Join(t.TempDir(), "model_list.yaml")
	yml := `root: res/models
placeholder: missing.glb
models:
  - name: goblin
    path: monsters/goblin.glb
    scale: 1.2
  - name: human
`
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadModelTable(p)
	if err != nil {
		t.Fatalf("LoadModelTable: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("Count = %d, want 2", tbl.Count())
	}
	if got := tbl.Path("goblin"); got != "res/models/monsters/goblin.glb" {
		t.Fatalf("Path(goblin) = %q", got)
	}
	if got := tbl.Get("human"); got == nil || got.Scale != 1 || got.Path != "res/models/human" {
		t.Fatalf("Get(human) = %+v", got)
	}
	if got := tbl.Path("tree.glb"); got != "res/models/tree.glb" {
		t.Fatalf("unlisted Path = %q", got)
	}
	if got := tbl.Placeholder(); got != "res/models/missing.glb" {
		t.Fatalf("Placeholder = %q", got)
	}
}

func TestLoadModelTableRejectsDuplicates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "model_list.yaml")
	yml := "models:\n  - name: a\n  - name: a\n"
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModelTable(p); err == nil {
		t.Fatal("duplicate model accepted")
	}
}

func TestNewModelTableDefaults(t *testing.T) {
	tbl := NewModelTable("")
	if got := tbl.Path("rock.glb"); got != "assets/models/rock.glb" {
		t.Fatalf("Path = %q", got)
	}
}
