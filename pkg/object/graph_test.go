// ABOUTME: Tests for the business object graph
// ABOUTME: Verifies registration, duplicate detection and traversal

package object

import (
	"errors"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	g := NewGraph()

	coll := &BusinessObject{ID: "id-1", Kind: KindCollection, ResourceID: "C1", Title: "C1"}
	if err := g.Register(coll); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	got, ok := g.Lookup("id-1", KindCollection)
	if !ok {
		t.Fatal("Expected collection to be registered")
	}
	if got.Title != "C1" {
		t.Errorf("Expected title 'C1', got %q", got.Title)
	}

	byRes, ok := g.ByResourceID("C1")
	if !ok || byRes.ID != "id-1" {
		t.Error("Expected resource id lookup to find the collection")
	}

	if _, ok := g.Lookup("id-1", KindProject); ok {
		t.Error("Lookup with wrong kind should miss")
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	g := NewGraph()

	o := &BusinessObject{ID: "id-1", Kind: KindDataItem}
	if err := g.Register(o); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	err := g.Register(&BusinessObject{ID: "id-1", Kind: KindDataItem})
	if !errors.Is(err, ErrDuplicateObject) {
		t.Errorf("Expected ErrDuplicateObject, got %v", err)
	}

	// Same id under a different kind is a distinct identity
	if err := g.Register(&BusinessObject{ID: "id-1", Kind: KindFile}); err != nil {
		t.Errorf("Different kind should register: %v", err)
	}
}

func TestRootsAndParents(t *testing.T) {
	g := NewGraph()

	proj := &BusinessObject{ID: "p", Kind: KindProject, ResourceID: "P1"}
	coll := &BusinessObject{ID: "c", Kind: KindCollection, ResourceID: "C1", ParentProjectID: "p"}
	item := &BusinessObject{ID: "d", Kind: KindDataItem, ResourceID: "D1", ParentID: "c"}
	ext := &BusinessObject{ID: "x", Kind: KindCollection, ResourceID: "C2", ExternalParent: "http://elsewhere/c9"}

	for _, o := range []*BusinessObject{proj, coll, item, ext} {
		if err := g.Register(o); err != nil {
			t.Fatalf("Failed to register %s: %v", o.ResourceID, err)
		}
	}

	roots := g.Roots()
	if len(roots) != 2 {
		t.Errorf("Expected 2 roots (project and externally parented collection), got %d", len(roots))
	}

	p, ok := g.Parent(item)
	if !ok || p.ID != "c" {
		t.Error("Expected data item parent to be the collection")
	}
	p, ok = g.Parent(coll)
	if !ok || p.ID != "p" {
		t.Error("Expected collection parent to be the project")
	}
	if _, ok := g.Parent(ext); ok {
		t.Error("External parent must not resolve locally")
	}
}

func TestParentResolvesFileKinds(t *testing.T) {
	g := NewGraph()

	file := &BusinessObject{ID: "f", Kind: KindFile}
	md := &BusinessObject{ID: "m", Kind: KindMetadataFile, ParentID: "f", MetadataTargetID: "f"}
	for _, o := range []*BusinessObject{file, md} {
		if err := g.Register(o); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
	}

	p, ok := g.Parent(md)
	if !ok || p.ID != "f" {
		t.Error("Expected metadata file's parent to be the described file")
	}
}

func TestAcyclicitySeesMetadataFileParents(t *testing.T) {
	g := NewGraph()

	a := &BusinessObject{ID: "a", Kind: KindMetadataFile, ParentID: "b"}
	b := &BusinessObject{ID: "b", Kind: KindMetadataFile, ParentID: "a"}
	for _, o := range []*BusinessObject{a, b} {
		if err := g.Register(o); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
	}

	if g.IsAcyclic() {
		t.Error("Expected metadata file parent cycle to be detected")
	}
}

func TestChildren(t *testing.T) {
	g := NewGraph()

	proj := &BusinessObject{ID: "p", Kind: KindProject}
	coll := &BusinessObject{ID: "c", Kind: KindCollection, ParentProjectID: "p"}
	item := &BusinessObject{ID: "d", Kind: KindDataItem, ParentID: "c"}
	file := &BusinessObject{ID: "f", Kind: KindFile, ParentID: "d"}
	for _, o := range []*BusinessObject{proj, coll, item, file} {
		if err := g.Register(o); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
	}

	kids := g.Children(proj)
	if len(kids) != 1 || kids[0].ID != "c" {
		t.Errorf("Expected project child to be the collection, got %v", kids)
	}
	kids = g.Children(item)
	if len(kids) != 1 || kids[0].ID != "f" {
		t.Errorf("Expected data item child to be the file, got %v", kids)
	}
	if kids = g.Children(file); len(kids) != 0 {
		t.Errorf("Expected file to have no children, got %d", len(kids))
	}
}

func TestAcyclicity(t *testing.T) {
	g := NewGraph()

	a := &BusinessObject{ID: "a", Kind: KindCollection}
	b := &BusinessObject{ID: "b", Kind: KindCollection, ParentID: "a"}
	c := &BusinessObject{ID: "c", Kind: KindDataItem, ParentID: "b"}
	for _, o := range []*BusinessObject{a, b, c} {
		if err := g.Register(o); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
	}

	if !g.IsAcyclic() {
		t.Error("Expected chain graph to be acyclic")
	}

	// Force a cycle to prove the check detects builder defects
	a.ParentID = "b"
	if g.IsAcyclic() {
		t.Error("Expected cycle to be detected")
	}
}

func TestChildAndFileDeduplication(t *testing.T) {
	o := &BusinessObject{ID: "d", Kind: KindDataItem}

	o.AddFile("f1")
	o.AddFile("f1")
	o.AddFile("f2")
	if len(o.FileIDs) != 2 {
		t.Errorf("Expected 2 file ids, got %d", len(o.FileIDs))
	}

	c := &BusinessObject{ID: "c", Kind: KindCollection}
	c.AddChild("d")
	c.AddChild("d")
	if len(c.ChildIDs) != 1 {
		t.Errorf("Expected 1 child id, got %d", len(c.ChildIDs))
	}
}
