// ABOUTME: Business object graph keyed by (id, kind) pairs
// ABOUTME: Tracks registration, lookup and parent/child traversal

package object

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateObject indicates re-registration of an (id, kind) pair
	ErrDuplicateObject = errors.New("object: duplicate registration")

	// ErrNotFound indicates a lookup for an unregistered object
	ErrNotFound = errors.New("object: not found")
)

type graphKey struct {
	id   string
	kind Kind
}

// Graph holds every business object built for one deposit plus its
// parent/child edges. A graph is scoped to a single deposit and built
// once; it is not safe for concurrent mutation.
type Graph struct {
	objects    map[graphKey]*BusinessObject
	byResource map[string]*BusinessObject
}

// NewGraph creates an empty business object graph
func NewGraph() *Graph {
	return &Graph{
		objects:    make(map[graphKey]*BusinessObject),
		byResource: make(map[string]*BusinessObject),
	}
}

// Register adds an object under its (ID, Kind) pair. Registering the same
// pair twice fails: two distinct resource-map records must never claim the
// same minted identity.
func (g *Graph) Register(o *BusinessObject) error {
	key := graphKey{id: o.ID, kind: o.Kind}
	if _, ok := g.objects[key]; ok {
		return fmt.Errorf("%w: %s %s", ErrDuplicateObject, o.Kind, o.ID)
	}
	g.objects[key] = o
	if o.ResourceID != "" {
		g.byResource[o.ResourceID] = o
	}
	return nil
}

// Lookup returns the object registered under (id, kind)
func (g *Graph) Lookup(id string, kind Kind) (*BusinessObject, bool) {
	o, ok := g.objects[graphKey{id: id, kind: kind}]
	return o, ok
}

// ByResourceID returns the object derived from the given resource identifier
func (g *Graph) ByResourceID(resourceID string) (*BusinessObject, bool) {
	o, ok := g.byResource[resourceID]
	return o, ok
}

// Len returns the number of registered objects
func (g *Graph) Len() int {
	return len(g.objects)
}

// All returns every registered object. No ordering is guaranteed.
func (g *Graph) All() []*BusinessObject {
	objs := make([]*BusinessObject, 0, len(g.objects))
	for _, o := range g.objects {
		objs = append(objs, o)
	}
	return objs
}

// OfKind returns every registered object of the given kind
func (g *Graph) OfKind(kind Kind) []*BusinessObject {
	var objs []*BusinessObject
	for key, o := range g.objects {
		if key.kind == kind {
			objs = append(objs, o)
		}
	}
	return objs
}

// Roots returns objects with no local parent edge. Objects with an
// external parent reference count as roots of the local graph.
func (g *Graph) Roots() []*BusinessObject {
	var roots []*BusinessObject
	for _, o := range g.objects {
		if !o.HasParent() {
			roots = append(roots, o)
		}
	}
	return roots
}

// Parent returns the local parent of o, following ParentProjectID for
// project-owned collections. A ParentID may name any kind: metadata
// files are parented under the object they describe, including files.
func (g *Graph) Parent(o *BusinessObject) (*BusinessObject, bool) {
	if o.ParentID != "" {
		for _, kind := range []Kind{KindProject, KindCollection, KindDataItem, KindFile, KindMetadataFile} {
			if p, ok := g.Lookup(o.ParentID, kind); ok {
				return p, true
			}
		}
	}
	if o.ParentProjectID != "" {
		if p, ok := g.Lookup(o.ParentProjectID, KindProject); ok {
			return p, true
		}
	}
	return nil, false
}

// Children returns every object whose parent edge points at o,
// including project-owned collections and member files.
func (g *Graph) Children(o *BusinessObject) []*BusinessObject {
	var children []*BusinessObject
	for _, c := range g.objects {
		if c == o {
			continue
		}
		if c.ParentID == o.ID || c.ParentProjectID == o.ID {
			children = append(children, c)
		}
	}
	return children
}

// IsAcyclic reports whether no path following parent edges returns to its
// starting object. Resolution from declared aggregation attributes never
// constructs a cycle, so a false result indicates a builder defect.
func (g *Graph) IsAcyclic() bool {
	for _, o := range g.objects {
		seen := map[graphKey]bool{{id: o.ID, kind: o.Kind}: true}
		cur := o
		for {
			p, ok := g.Parent(cur)
			if !ok {
				break
			}
			key := graphKey{id: p.ID, kind: p.Kind}
			if seen[key] {
				return false
			}
			seen[key] = true
			cur = p
		}
	}
	return true
}
