// Package scenegraph prepares icon assets for the cluster renderer.
//
// Assets are trees of nodes. Only nodes with the [Mesh] capability carry
// geometry and a material; traversal dispatches on that capability rather
// than on concrete types, so any host engine can adapt its own nodes.
package scenegraph

import "strings"

// Node is any element of an asset tree.
type Node interface {
	Name() string
	Children() []Node
}

// Mesh is a node that draws geometry with a material.
type Mesh interface {
	Node
	Geometry() string
	Material() string
	SetMaterial(name string)
	SetShadows(cast, receive bool)
}

// Parent is a node whose children can be detached.
type Parent interface {
	Node
	RemoveChild(child Node) bool
}

// Group is a plain transform node.
type Group struct {
	name     string
	children []Node
}

func NewGroup(name string, children ...Node) *Group {
	return &Group{name: name, children: children}
}

func (g *Group) Name() string         { return g.name }
func (g *Group) Children() []Node     { return g.children }
func (g *Group) Add(children ...Node) { g.children = append(g.children, children...) }

func (g *Group) RemoveChild(child Node) bool {
	for i, c := range g.children {
		if c == child {
			g.children = append(g.children[:i], g.children[i+1:]...)
			return true
		}
	}
	return false
}

// MeshNode is a mesh that may itself have children.
type MeshNode struct {
	Group
	geometry      string
	material      string
	CastShadow    bool
	ReceiveShadow bool
}

func NewMesh(name, geometry, material string, children ...Node) *MeshNode {
	return &MeshNode{Group: Group{name: name, children: children}, geometry: geometry, material: material}
}

func (m *MeshNode) Geometry() string        { return m.geometry }
func (m *MeshNode) Material() string        { return m.material }
func (m *MeshNode) SetMaterial(name string) { m.material = name }

func (m *MeshNode) SetShadows(cast, receive bool) {
	m.CastShadow, m.ReceiveShadow = cast, receive
}

// Visitor is called for every node with its parent; the root has a nil
// parent. Returning false skips the node's children.
type Visitor func(n Node, parent Node) bool

// Walk visits the tree depth first, parents before children. The child
// list is copied before descending so a visitor may detach nodes.
func Walk(root Node, visit Visitor) {
	walk(root, nil, visit)
}

func walk(n, parent Node, visit Visitor) {
	if n == nil || !visit(n, parent) {
		return
	}
	children := append([]Node(nil), n.Children()...)
	for _, c := range children {
		walk(c, n, visit)
	}
}

// IsMesh reports whether n has the mesh capability.
func IsMesh(n Node) (Mesh, bool) {
	m, ok := n.(Mesh)
	return m, ok
}

// Meshes lists every mesh in the tree.
func Meshes(root Node) []Mesh {
	var out []Mesh
	Walk(root, func(n, _ Node) bool {
		if m, ok := IsMesh(n); ok {
			out = append(out, m)
		}
		return true
	})
	return out
}

// Find returns the meshes whose name contains substr.
func Find(root Node, substr string) []Mesh {
	var out []Mesh
	for _, m := range Meshes(root) {
		if strings.Contains(m.Name(), substr) {
			out = append(out, m)
		}
	}
	return out
}
