package scenegraph

import "strings"

// Matcher decides whether a mesh should be removed.
type Matcher func(m Mesh) bool

// IsPlane matches backdrop planes: a name containing "plane" in any case,
// or plane geometry.
func IsPlane(m Mesh) bool {
	return strings.Contains(strings.ToLower(m.Name()), "plane") ||
		strings.Contains(m.Geometry(), "Plane")
}

// NameContains matches meshes whose name contains any of markers.
func NameContains(markers ...string) Matcher {
	return func(m Mesh) bool {
		for _, mk := range markers {
			if mk != "" && strings.Contains(m.Name(), mk) {
				return true
			}
		}
		return false
	}
}

// Any matches when at least one matcher does.
func Any(ms ...Matcher) Matcher {
	return func(m Mesh) bool {
		for _, match := range ms {
			if match(m) {
				return true
			}
		}
		return false
	}
}

// Strip detaches every mesh that strip matches and returns how many were
// removed. Matches are collected first and detached afterwards.
func Strip(root Node, strip Matcher) int {
	type hit struct {
		node   Node
		parent Parent
	}
	var hits []hit
	Walk(root, func(n, parent Node) bool {
		m, ok := IsMesh(n)
		if !ok || !strip(m) {
			return true
		}
		if p, ok := parent.(Parent); ok {
			hits = append(hits, hit{n, p})
		}
		return false
	})

	removed := 0
	for _, h := range hits {
		if h.parent.RemoveChild(h.node) {
			removed++
		}
	}
	return removed
}

// Overrides maps a name marker to the material used by meshes whose name
// contains it. The longest matching marker wins.
type Overrides map[string]string

func (o Overrides) lookup(name, fallback string) string {
	best := ""
	for marker := range o {
		if marker != "" && len(marker) > len(best) && strings.Contains(name, marker) {
			best = marker
		}
	}
	if best == "" {
		return fallback
	}
	return o[best]
}

// AssignMaterial gives every mesh the material, or its override, and turns
// shadows on.
func AssignMaterial(root Node, material string, overrides Overrides) int {
	meshes := Meshes(root)
	for _, m := range meshes {
		m.SetMaterial(overrides.lookup(m.Name(), material))
		m.SetShadows(true, true)
	}
	return len(meshes)
}

// PrepareIcon strips the icon's backdrop meshes and assigns materials to
// what remains.
func PrepareIcon(root Node, material string, overrides Overrides, strip Matcher) (removed, kept int) {
	removed = Strip(root, strip)
	kept = AssignMaterial(root, material, overrides)
	return removed, kept
}
