// ABOUTME: Shared fixtures for ingest stage tests
// ABOUTME: Builds deposit states over temp-dir exploded bags

package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/bag"
	"github.com/nainya/depot/pkg/event"
	"github.com/nainya/depot/pkg/ident"
)

func newTestBag(t *testing.T) *bag.ExplodedBag {
	t.Helper()

	extract := t.TempDir()
	if err := os.MkdirAll(filepath.Join(extract, "testbag", "data"), 0755); err != nil {
		t.Fatalf("Failed to create payload dir: %v", err)
	}
	return bag.NewExplodedBag(extract, "testbag")
}

func writePayload(t *testing.T, b *bag.ExplodedBag, rel, content string) string {
	t.Helper()

	full := filepath.Join(b.PayloadDir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write payload %s: %v", rel, err)
	}
	return full
}

func newTestState(t *testing.T) (*State, *event.MemoryLog, *bag.ExplodedBag) {
	t.Helper()

	log := event.NewMemoryLog(nil)
	b := newTestBag(t)
	st := &State{
		Attributes:  attribute.NewStore(),
		Events:      log,
		Package:     b,
		Identifiers: ident.NewSequenceService(),
	}
	return st, log, b
}

func strAttr(name, value string) attribute.Attribute {
	return attribute.Attribute{Name: name, Type: attribute.TypeString, Value: value}
}

// addRM stores a resource-map record under its conventional key
func addRM(t *testing.T, st *State, setName, resourceID string, attrs ...attribute.Attribute) {
	t.Helper()

	all := append([]attribute.Attribute{strAttr(attribute.AttrResourceID, resourceID)}, attrs...)
	set := attribute.NewSet(setName, all...)
	if err := st.Attributes.Add(attribute.SetKey(setName, resourceID), set); err != nil {
		t.Fatalf("Failed to add %s record %s: %v", setName, resourceID, err)
	}
}

// addRawFile stores a raw per-file metadata set keyed by absolute path
func addRawFile(t *testing.T, st *State, path string, attrs ...attribute.Attribute) {
	t.Helper()

	if err := st.Attributes.Add(path, attribute.NewSet(attribute.SetFile, attrs...)); err != nil {
		t.Fatalf("Failed to add raw file set for %s: %v", path, err)
	}
}
