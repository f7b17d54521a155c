// ABOUTME: Graph builder stage materializing the business object graph
// ABOUTME: Resolves resource-map relationships and merges raw file metadata

package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/bag"
	"github.com/nainya/depot/pkg/event"
	"github.com/nainya/depot/pkg/object"
)

// kindForSet maps a resource-map set name to its business object kind.
// Non-resource-map sets (BagIt, raw File records) report false.
func kindForSet(name string) (object.Kind, bool) {
	switch name {
	case attribute.SetProjectRM:
		return object.KindProject, true
	case attribute.SetCollectionRM:
		return object.KindCollection, true
	case attribute.SetDataItemRM:
		return object.KindDataItem, true
	case attribute.SetFileRM:
		return object.KindFile, true
	case attribute.SetMetadataFileRM:
		return object.KindMetadataFile, true
	}
	return 0, false
}

// GraphBuilder turns the deposit's flat attribute sets into the typed
// business object graph. On failure no partial graph is exposed.
type GraphBuilder struct{}

// NewGraphBuilder creates the graph builder stage
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// Name returns the stage name
func (b *GraphBuilder) Name() string { return "graph-builder" }

// record pairs a resource-map attribute set with its declared identity
type record struct {
	key        string
	set        *attribute.Set
	kind       object.Kind
	resourceID string
}

// Execute builds the graph from every resource-map record in the store
func (b *GraphBuilder) Execute(depositID string, st *State) error {
	if err := st.check(); err != nil {
		return err
	}
	if st.Package == nil {
		return ErrMissingPackage
	}
	if st.Identifiers == nil {
		return ErrMissingIdentifierService
	}

	records, err := b.collect(depositID, st)
	if err != nil {
		return err
	}

	objects, order, err := b.create(st, records)
	if err != nil {
		return err
	}

	if err := b.link(depositID, st, records, objects); err != nil {
		return err
	}

	if err := b.mergeFileMetadata(depositID, st, records, objects); err != nil {
		return err
	}

	graph := object.NewGraph()
	for _, rid := range order {
		if err := graph.Register(objects[rid]); err != nil {
			return fmt.Errorf("ingest: registering %s: %w", rid, err)
		}
	}

	st.Graph = graph

	e := st.Events.New(event.BusinessObjectBuilt)
	e.Target = depositID
	e.Detail = "business object graph built"
	e.Outcome = strconv.Itoa(graph.Len())
	st.Events.Add(depositID, e)

	return nil
}

// collect gathers every resource-map record, skipping BagIt, BagIt-Profile
// and raw per-file sets. A record without a resource id fails the deposit.
func (b *GraphBuilder) collect(depositID string, st *State) ([]record, error) {
	keys := st.Attributes.Keys()
	sort.Strings(keys)

	var records []record
	for _, key := range keys {
		set, ok := st.Attributes.Get(key)
		if !ok {
			continue
		}
		kind, ok := kindForSet(set.Name)
		if !ok {
			continue
		}

		rid, ok := set.First(attribute.AttrResourceID)
		if !ok || rid == "" {
			reportFail(depositID, st, key, "resource-map record declares no resource identifier")
			return nil, &StageError{Stage: b.Name(), Failures: 1, Reason: "missing resource identifier"}
		}
		records = append(records, record{key: key, set: set, kind: kind, resourceID: rid})
	}
	return records, nil
}

// create mints one business object per distinct resource id. A later
// record referencing an already-seen resource id reuses the object and
// merges descriptive fields instead of duplicating it.
func (b *GraphBuilder) create(st *State, records []record) (map[string]*object.BusinessObject, []string, error) {
	objects := make(map[string]*object.BusinessObject)
	var order []string

	for _, r := range records {
		o, ok := objects[r.resourceID]
		if !ok {
			id, err := st.Identifiers.Create(r.kind.String())
			if err != nil {
				return nil, nil, fmt.Errorf("ingest: minting identifier for %s: %w", r.resourceID, err)
			}
			o = &object.BusinessObject{ID: id, Kind: r.kind, ResourceID: r.resourceID}
			objects[r.resourceID] = o
			order = append(order, r.resourceID)
		}
		mergeDescriptive(o, r.set)
	}
	return objects, order, nil
}

// mergeDescriptive fills empty descriptive fields from the record
func mergeDescriptive(o *object.BusinessObject, set *attribute.Set) {
	if o.Title == "" {
		o.Title, _ = set.First(attribute.AttrTitle)
	}
	if o.Description == "" {
		o.Description, _ = set.First(attribute.AttrDescription)
	}
	for _, c := range set.Values(attribute.AttrCreator) {
		seen := false
		for _, have := range o.Creators {
			if have == c {
				seen = true
				break
			}
		}
		if !seen {
			o.Creators = append(o.Creators, c)
		}
	}
	if o.Created.IsZero() {
		if v, ok := set.First(attribute.AttrCreated); ok {
			o.Created = parseTimestamp(v)
		}
	}
	if o.Published.IsZero() {
		if v, ok := set.First(attribute.AttrPublished); ok {
			o.Published = parseTimestamp(v)
		}
	}
	if o.Format == "" {
		o.Format, _ = set.First(attribute.AttrFormat)
	}
}

// parseTimestamp parses declared DateTime values, accepting RFC 3339 and
// bare dates. Unparseable values yield the zero time; missing or bad
// timestamps are not fatal.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// link resolves every relationship attribute. Targets present in the
// deposit become parent/child edges; absent targets are recorded verbatim
// as external references, which is a first-class outcome.
func (b *GraphBuilder) link(depositID string, st *State, records []record, objects map[string]*object.BusinessObject) error {
	byID := make(map[string]*object.BusinessObject, len(objects))
	for _, o := range objects {
		byID[o.ID] = o
	}

	for _, r := range records {
		o := objects[r.resourceID]

		for _, a := range r.set.Attributes {
			switch a.Name {
			case attribute.AttrAggregatesCollection,
				attribute.AttrAggregatesDataItem,
				attribute.AttrAggregatesFile,
				attribute.AttrIsPartOfCollection,
				attribute.AttrAggregatedByProject,
				attribute.AttrIsMetadataFor:
			default:
				continue
			}

			// Self-dependency is rejected before any edge is added
			if a.Value == r.resourceID {
				reportFail(depositID, st, r.key,
					fmt.Sprintf("record %s declares a dependency on itself via %s", r.resourceID, a.Name))
				return &StageError{Stage: b.Name(), Failures: 1, Reason: "self-referential relationship"}
			}

			target, local := objects[a.Value]
			if !local {
				b.recordExternal(o, a)
				continue
			}

			// An edge whose parent already reaches the child through the
			// resolved parent chain would close a cycle; reject it before
			// it is added.
			child, parent := edgeOrientation(o, target, a.Name)
			if linksBack(byID, parent, child) {
				reportFail(depositID, st, r.key, fmt.Sprintf(
					"relationship %s from %s to %s closes a dependency cycle", a.Name, r.resourceID, a.Value))
				return &StageError{Stage: b.Name(), Failures: 1, Reason: "cyclic relationship"}
			}
			b.attach(o, target, a.Name)
		}
	}
	return nil
}

// edgeOrientation reports which end of a relationship becomes the child.
// Aggregation attributes parent the target under the declaring record;
// the remaining attributes parent the declaring record under the target.
func edgeOrientation(o, target *object.BusinessObject, rel string) (child, parent *object.BusinessObject) {
	switch rel {
	case attribute.AttrIsPartOfCollection,
		attribute.AttrAggregatedByProject,
		attribute.AttrIsMetadataFor:
		return o, target
	}
	return target, o
}

// linksBack reports whether target is reachable from start by following
// already-resolved parent edges.
func linksBack(byID map[string]*object.BusinessObject, start, target *object.BusinessObject) bool {
	seen := make(map[string]bool)
	stack := []*object.BusinessObject{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil || seen[cur.ID] {
			continue
		}
		if cur == target {
			return true
		}
		seen[cur.ID] = true
		if cur.ParentID != "" {
			stack = append(stack, byID[cur.ParentID])
		}
		if cur.ParentProjectID != "" {
			stack = append(stack, byID[cur.ParentProjectID])
		}
	}
	return false
}

// recordExternal stores an unresolved relationship target verbatim
func (b *GraphBuilder) recordExternal(o *object.BusinessObject, a attribute.Attribute) {
	switch a.Name {
	case attribute.AttrIsPartOfCollection,
		attribute.AttrAggregatedByProject,
		attribute.AttrIsMetadataFor:
		// Parent-direction reference: the object is externally parented
		o.ExternalParent = a.Value
	default:
		o.ExternalRefs = append(o.ExternalRefs, a.Value)
	}
}

// attach adds one resolved parent/child edge
func (b *GraphBuilder) attach(o, target *object.BusinessObject, rel string) {
	switch rel {
	case attribute.AttrAggregatesCollection:
		if o.Kind == object.KindProject {
			target.ParentProjectID = o.ID
		} else {
			target.ParentID = o.ID
		}
		o.AddChild(target.ID)

	case attribute.AttrAggregatesDataItem:
		target.ParentID = o.ID
		o.AddChild(target.ID)

	case attribute.AttrAggregatesFile:
		if o.Kind == object.KindProject || o.Kind == object.KindCollection {
			// A bytestream aggregated directly by a container describes
			// that container: promote it to a metadata file.
			target.Kind = object.KindMetadataFile
			target.MetadataTargetID = o.ID
			target.ParentID = o.ID
			o.AddChild(target.ID)
		} else {
			target.ParentID = o.ID
			o.AddFile(target.ID)
		}

	case attribute.AttrIsPartOfCollection:
		o.ParentID = target.ID
		target.AddChild(o.ID)

	case attribute.AttrAggregatedByProject:
		o.ParentProjectID = target.ID
		target.AddChild(o.ID)

	case attribute.AttrIsMetadataFor:
		o.MetadataTargetID = target.ID
		o.ParentID = target.ID
	}
}

// mergeFileMetadata resolves each file record's payload path and merges
// the sibling raw File set (size, detected format, checksums) into the
// business object. A malformed path fails the deposit.
func (b *GraphBuilder) mergeFileMetadata(depositID string, st *State, records []record, objects map[string]*object.BusinessObject) error {
	for _, r := range records {
		if r.kind != object.KindFile && r.kind != object.KindMetadataFile {
			continue
		}
		o := objects[r.resourceID]

		rel, ok := r.set.First(attribute.AttrPath)
		if !ok {
			continue
		}

		full, err := bag.PayloadPath(st.Package, rel)
		if err != nil {
			reportFail(depositID, st, r.key,
				fmt.Sprintf("payload path %q cannot be resolved against the package", rel))
			return &StageError{Stage: b.Name(), Failures: 1, Reason: "malformed payload path"}
		}
		o.Source = full

		raw, ok := st.Attributes.Get(full)
		if !ok {
			continue
		}

		if v, ok := raw.First(attribute.AttrSize); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				o.Size = n
			}
		}

		// Detected format wins over the asserted one: it comes from
		// content inspection and is considered authoritative.
		if detected, ok := raw.First(attribute.AttrDetectedFormat); ok && detected != "" {
			o.Format = detected
		}

		if v, ok := raw.First(attribute.AttrChecksumMD5); ok {
			o.SetChecksum("md5", v)
		}
		if v, ok := raw.First(attribute.AttrChecksumSHA256); ok {
			o.SetChecksum("sha256", v)
		}
	}
	return nil
}
