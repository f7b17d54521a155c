// ABOUTME: Business object data model for the ingest graph
// ABOUTME: Defines typed nodes for projects, collections, data items and files

package object

import "time"

// Kind discriminates business object types. It replaces runtime type
// dispatch with a closed enumeration carried alongside each object.
type Kind int

// Business object kinds
const (
	KindProject Kind = iota
	KindCollection
	KindDataItem
	KindFile
	KindMetadataFile
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindProject:
		return "Project"
	case KindCollection:
		return "Collection"
	case KindDataItem:
		return "DataItem"
	case KindFile:
		return "File"
	case KindMetadataFile:
		return "MetadataFile"
	}
	return "Unknown"
}

// BusinessObject is a typed node in the ingest graph. Identity is the
// (ID, Kind) pair; ID is minted locally and distinct from the resource-map
// resource identifier it was derived from.
type BusinessObject struct {
	ID         string // Minted local identifier
	Kind       Kind   // Object type discriminator
	ResourceID string // Declared resource-map identifier

	Title       string    // Title or name
	Description string    // Free-text description
	Creators    []string  // Creator names, ordered as declared
	Created     time.Time // Creation timestamp (zero if undeclared)
	Published   time.Time // Publication timestamp (zero if undeclared)

	Format    string            // Resolved format (detected wins over asserted)
	Size      int64             // Payload size in bytes (files only)
	Source    string            // Resolved payload path (files only)
	Checksums map[string]string // Algorithm name to hex digest

	ParentID         string   // Local parent id ("" for roots and external parents)
	ParentProjectID  string   // Owning project (collections only)
	ExternalParent   string   // Unresolved parent reference, stored verbatim
	ExternalRefs     []string // Unresolved aggregation targets, stored verbatim
	ChildIDs         []string // Child collection/data item ids (containers)
	FileIDs          []string // Member file ids (data items)
	MetadataTargetID string   // Described object id (metadata files only)
}

// HasParent reports whether the object resolved a local parent edge
func (o *BusinessObject) HasParent() bool {
	return o.ParentID != "" || o.ParentProjectID != ""
}

// AddChild appends a child id, skipping duplicates
func (o *BusinessObject) AddChild(id string) {
	for _, c := range o.ChildIDs {
		if c == id {
			return
		}
	}
	o.ChildIDs = append(o.ChildIDs, id)
}

// AddFile appends a member file id, skipping duplicates
func (o *BusinessObject) AddFile(id string) {
	for _, f := range o.FileIDs {
		if f == id {
			return
		}
	}
	o.FileIDs = append(o.FileIDs, id)
}

// SetChecksum records a digest for the named algorithm
func (o *BusinessObject) SetChecksum(alg, digest string) {
	if o.Checksums == nil {
		o.Checksums = make(map[string]string)
	}
	o.Checksums[alg] = digest
}
