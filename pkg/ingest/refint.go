// ABOUTME: Referential integrity checker over declared relationships
// ABOUTME: Locally absent targets pass as external references, with two exceptions

package ingest

import (
	"fmt"
	"os"
	"sort"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/bag"
)

// resourceMapSets lists the five resource-map set names
var resourceMapSets = []string{
	attribute.SetProjectRM,
	attribute.SetCollectionRM,
	attribute.SetDataItemRM,
	attribute.SetFileRM,
	attribute.SetMetadataFileRM,
}

// expectedTargetSets maps each relationship attribute to the set names a
// locally resolved target may belong to
var expectedTargetSets = map[string][]string{
	attribute.AttrAggregatesCollection: {attribute.SetCollectionRM},
	attribute.AttrAggregatesDataItem:   {attribute.SetDataItemRM},
	attribute.AttrAggregatesFile:       {attribute.SetFileRM, attribute.SetMetadataFileRM},
	attribute.AttrIsPartOfCollection:   {attribute.SetCollectionRM},
	attribute.AttrAggregatedByProject:  {attribute.SetProjectRM},
	attribute.AttrIsMetadataFor:        resourceMapSets,
}

// localSetName returns the resource-map set name a target resolves to
// within the store, reconstructing keys by convention.
func localSetName(store *attribute.Store, target string) (string, bool) {
	for _, name := range resourceMapSets {
		if store.Contains(attribute.SetKey(name, target)) {
			return name, true
		}
	}
	return "", false
}

// RefIntegrityCheck verifies that every declared relationship target
// either resolves to a local record of the expected type or is an
// external reference. It inspects every record before failing with an
// aggregate count; it never mutates store or graph.
type RefIntegrityCheck struct{}

// NewRefIntegrityCheck creates the referential integrity stage
func NewRefIntegrityCheck() *RefIntegrityCheck {
	return &RefIntegrityCheck{}
}

// Name returns the stage name
func (c *RefIntegrityCheck) Name() string { return "referential-integrity" }

// Execute checks every resource-map record in the store
func (c *RefIntegrityCheck) Execute(depositID string, st *State) error {
	if err := st.check(); err != nil {
		return err
	}
	if st.Package == nil {
		return ErrMissingPackage
	}

	keys := st.Attributes.Keys()
	sort.Strings(keys)

	failures := 0
	for _, key := range keys {
		set, ok := st.Attributes.Get(key)
		if !ok {
			continue
		}
		if _, isRM := kindForSet(set.Name); !isRM {
			continue
		}

		for _, a := range set.Attributes {
			expected, isRel := expectedTargetSets[a.Name]
			if !isRel {
				continue
			}

			targetSet, local := localSetName(st.Attributes, a.Value)
			if local {
				if !setNameIn(targetSet, expected) {
					reportFail(depositID, st, key, fmt.Sprintf(
						"relationship %s targets %q which resolves to a %s record",
						a.Name, a.Value, targetSet))
					failures++
				}
				continue
			}

			// Locally absent. An is-metadata-for target must describe
			// something within the package; everything else passes as an
			// external reference.
			if a.Name == attribute.AttrIsMetadataFor {
				reportFail(depositID, st, key, fmt.Sprintf(
					"is-metadata-for targets %q which is not present in the package", a.Value))
				failures++
			}
		}

		// A file's path must resolve to an actual extracted payload file
		if set.Name == attribute.SetFileRM || set.Name == attribute.SetMetadataFileRM {
			failures += c.checkPath(depositID, st, key, set)
		}
	}

	if failures > 0 {
		return &StageError{Stage: c.Name(), Failures: failures, Reason: "unresolved required references"}
	}
	return nil
}

// checkPath verifies the record's declared payload path exists on disk
func (c *RefIntegrityCheck) checkPath(depositID string, st *State, key string, set *attribute.Set) int {
	rel, ok := set.First(attribute.AttrPath)
	if !ok {
		reportFail(depositID, st, key, "file record declares no payload path")
		return 1
	}

	full, err := bag.PayloadPath(st.Package, rel)
	if err != nil {
		reportFail(depositID, st, key, fmt.Sprintf("payload path %q is malformed", rel))
		return 1
	}
	if _, err := os.Stat(full); err != nil {
		reportFail(depositID, st, key, fmt.Sprintf("payload file %q is missing from the package", rel))
		return 1
	}
	return 0
}

func setNameIn(name string, names []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
