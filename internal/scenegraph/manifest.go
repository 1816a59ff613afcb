package scenegraph

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrEmptyManifest = errors.New("scenegraph: manifest has no usable icons")

// NodeSpec is the YAML form of a node. A node with geometry is a mesh.
type NodeSpec struct {
	Name     string     `yaml:"name"`
	Geometry string     `yaml:"geometry,omitempty"`
	Material string     `yaml:"material,omitempty"`
	Children []NodeSpec `yaml:"children,omitempty"`
}

// Manifest lists the icon assets of a scene and how to prepare them.
type Manifest struct {
	Material  string     `yaml:"material"`
	Overrides Overrides  `yaml:"overrides"`
	Strip     []string   `yaml:"strip"`
	Icons     []NodeSpec `yaml:"icons"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

func (s NodeSpec) Build() Node {
	children := make([]Node, len(s.Children))
	for i, c := range s.Children {
		children[i] = c.Build()
	}
	if s.Geometry != "" {
		return NewMesh(s.Name, s.Geometry, s.Material, children...)
	}
	return NewGroup(s.Name, children...)
}

// Icon is one prepared icon asset.
type Icon struct {
	Name    string
	Root    *Group
	Removed int
	Meshes  int
}

// Prepare builds every icon, strips planes and the manifest's extra name
// markers, and assigns the shared material. Icons left without a mesh are
// dropped.
func (m *Manifest) Prepare() ([]Icon, error) {
	strip := Any(IsPlane, NameContains(m.Strip...))
	icons := make([]Icon, 0, len(m.Icons))
	for _, spec := range m.Icons {
		// Wrap each icon so a root mesh can be stripped too.
		root := NewGroup(spec.Name, spec.Build())
		removed, kept := PrepareIcon(root, m.Material, m.Overrides, strip)
		if kept == 0 {
			continue
		}
		icons = append(icons, Icon{Name: spec.Name, Root: root, Removed: removed, Meshes: kept})
	}
	if len(icons) == 0 {
		return nil, ErrEmptyManifest
	}
	return icons, nil
}

// IconCount loads and prepares a manifest and returns how many icons the
// cluster can cycle through.
func IconCount(path string) (int, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return 0, err
	}
	icons, err := m.Prepare()
	if err != nil {
		return 0, err
	}
	return len(icons), nil
}
