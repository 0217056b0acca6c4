package data

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// ModelEntry maps a model name used on the wire to an asset on disk.
type ModelEntry struct {
	Name   string  `yaml:"name"`
	Path   string  `yaml:"path"`
	Scale  float64 `yaml:"scale"`
	Height float64 `yaml:"height"` // nameplate offset above the model origin
}

type modelListFile struct {
	Root        string       `yaml:"root"`
	Placeholder string       `yaml:"placeholder"`
	Models      []ModelEntry `yaml:"models"`
}

// ModelTable resolves model names. Names without an entry resolve to
// <root>/<name>.
type ModelTable struct {
	root        string
	placeholder string
	models      map[string]*ModelEntry
}

const (
	defaultModelRoot   = "assets/models"
	defaultPlaceholder = "placeholder.glb"
)

// NewModelTable returns an empty table rooted at root.
func NewModelTable(root string) *ModelTable {
	if root == "" {
		root = defaultModelRoot
	}
	return &ModelTable{
		root:        root,
		placeholder: path.Join(root, defaultPlaceholder),
		models:      make(map[string]*ModelEntry),
	}
}

// LoadModelTable loads the model list from a YAML file.
func LoadModelTable(p string) (*ModelTable, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read model_list: %w", err)
	}
	var f modelListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model_list: %w", err)
	}
	t := NewModelTable(f.Root)
	if f.Placeholder != "" {
		t.placeholder = t.resolve(f.Placeholder)
	}
	for i := range f.Models {
		m := &f.Models[i]
		if m.Name == "" {
			return nil, fmt.Errorf("model_list entry %d: missing name", i)
		}
		if _, dup := t.models[m.Name]; dup {
			return nil, fmt.Errorf("model_list: duplicate model %q", m.Name)
		}
		if m.Path == "" {
			m.Path = m.Name
		}
		m.Path = t.resolve(m.Path)
		if m.Scale == 0 {
			m.Scale = 1
		}
		t.models[m.Name] = m
	}
	return t, nil
}

func (t *ModelTable) resolve(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(t.root, p)
}

// Get returns the entry for name, or nil.
func (t *ModelTable) Get(name string) *ModelEntry {
	return t.models[name]
}

// Path returns the asset path for a model name.
func (t *ModelTable) Path(name string) string {
	if m, ok := t.models[name]; ok {
		return m.Path
	}
	return t.resolve(name)
}

// Placeholder is the asset shown when a model fails to load.
func (t *ModelTable) Placeholder() string { return t.placeholder }

// Count returns the number of listed models.
func (t *ModelTable) Count() int { return len(t.models) }
