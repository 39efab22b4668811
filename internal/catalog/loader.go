// Package catalog loads the component palette and serves it from a
// registry that can be swapped atomically on reload.
package catalog

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pitabwire/studio/model"
)

//go:embed catalog.yaml
var builtin []byte

// Item describes one palette entry.
type Item struct {
	Type     string         `yaml:"type" json:"type"`
	Title    string         `yaml:"title" json:"title"`
	Icon     string         `yaml:"icon,omitempty" json:"icon,omitempty"`
	Category string         `yaml:"category" json:"category"`
	Defaults map[string]any `yaml:"defaults" json:"defaults"`
}

// File is the on-disk catalog format.
type File struct {
	Items    []Item `yaml:"items"`
	Checksum string `yaml:"-"`
	Source   string `yaml:"-"`
}

// LoadBuiltin parses the embedded catalog.
func LoadBuiltin() (File, error) {
	f, err := parse(builtin)
	if err != nil {
		return File{}, fmt.Errorf("catalog: builtin: %w", err)
	}
	f.Source = "builtin"
	return f, nil
}

// LoadFile reads and parses a catalog override file and records its
// SHA-256 checksum.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	f, err := parse(data)
	if err != nil {
		return File{}, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}
	f.Source = path
	return f, nil
}

// Load returns the builtin catalog merged with the override file at path.
// An empty path yields the builtin catalog alone.
func Load(path string) (File, error) {
	base, err := LoadBuiltin()
	if err != nil {
		return File{}, err
	}
	if path == "" {
		return base, nil
	}
	override, err := LoadFile(path)
	if err != nil {
		return File{}, err
	}
	merged := Merge(base, override)
	return merged, nil
}

// Merge overlays items from override onto base. Items with a type already in
// base replace it in place; new types are appended in override order.
func Merge(base, override File) File {
	items := append([]Item(nil), base.Items...)
	index := make(map[string]int, len(items))
	for i, it := range items {
		index[it.Type] = i
	}
	for _, it := range override.Items {
		if i, ok := index[it.Type]; ok {
			items[i] = it
			continue
		}
		index[it.Type] = len(items)
		items = append(items, it)
	}
	return File{
		Items:    items,
		Checksum: fmt.Sprintf("%x", sha256.Sum256([]byte(base.Checksum+":"+override.Checksum))),
		Source:   override.Source,
	}
}

func parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	for i, it := range f.Items {
		if it.Type == "" {
			return File{}, fmt.Errorf("item %d: type is required", i)
		}
		if it.Title == "" {
			f.Items[i].Title = it.Type
		}
		if it.Defaults == nil {
			f.Items[i].Defaults = map[string]any{}
		}
	}
	f.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	return f, nil
}

// cloneValue deep-copies maps and lists so that callers can never alias
// registry data.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

func cloneDefaults(d map[string]any) model.Props {
	out := make(model.Props, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}
