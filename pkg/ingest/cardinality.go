// ABOUTME: Relationship cardinality verifier for resource-map records
// ABOUTME: Enforces fixed per-type bounds regardless of target resolution

package ingest

import (
	"fmt"
	"sort"

	"github.com/nainya/depot/pkg/attribute"
)

// CardinalityCheck enforces per-type upper and lower bounds on
// relationship attributes. Every violation is reported before the stage
// fails; nothing is mutated.
type CardinalityCheck struct{}

// NewCardinalityCheck creates the cardinality verifier stage
func NewCardinalityCheck() *CardinalityCheck {
	return &CardinalityCheck{}
}

// Name returns the stage name
func (c *CardinalityCheck) Name() string { return "relationship-cardinality" }

// Execute verifies every resource-map record in the store
func (c *CardinalityCheck) Execute(depositID string, st *State) error {
	if err := st.check(); err != nil {
		return err
	}

	keys := st.Attributes.Keys()
	sort.Strings(keys)

	// Collections aggregating each data item, for the ambiguity cross-check
	aggregators := c.dataItemAggregators(keys, st)

	failures := 0
	for _, key := range keys {
		set, ok := st.Attributes.Get(key)
		if !ok {
			continue
		}

		switch set.Name {
		case attribute.SetCollectionRM:
			failures += c.checkCollection(depositID, st, key, set)
		case attribute.SetDataItemRM:
			failures += c.checkDataItem(depositID, st, key, set, aggregators)
		case attribute.SetMetadataFileRM:
			failures += c.checkMetadataFile(depositID, st, key, set)
		}
	}

	if failures > 0 {
		return &StageError{Stage: c.Name(), Failures: failures, Reason: "relationship cardinality violations"}
	}
	return nil
}

// checkCollection enforces at most one parent declaration of either kind,
// and that the two kinds are mutually exclusive on one record. A
// collection with neither declaration is a root of the local graph and is
// permitted; parentage by a container's aggregation alone is also fine.
func (c *CardinalityCheck) checkCollection(depositID string, st *State, key string, set *attribute.Set) int {
	failures := 0

	byProject := set.Count(attribute.AttrAggregatedByProject)
	partOf := set.Count(attribute.AttrIsPartOfCollection)

	if byProject > 1 {
		reportFail(depositID, st, key, fmt.Sprintf(
			"collection declares aggregated-by-project %d times", byProject))
		failures++
	}
	if partOf > 1 {
		reportFail(depositID, st, key, fmt.Sprintf(
			"collection declares is-part-of-collection %d times", partOf))
		failures++
	}
	if byProject >= 1 && partOf >= 1 {
		reportFail(depositID, st, key,
			"collection declares both aggregated-by-project and is-part-of-collection")
		failures++
	}
	return failures
}

// checkDataItem enforces exactly one owning collection and at least one
// aggregated file, and that the owner is derivable from exactly one
// direction: an is-part-of declaration must not contradict an aggregating
// collection's own declaration.
func (c *CardinalityCheck) checkDataItem(depositID string, st *State, key string, set *attribute.Set, aggregators map[string][]string) int {
	failures := 0

	partOf := set.Count(attribute.AttrIsPartOfCollection)
	if partOf != 1 {
		reportFail(depositID, st, key, fmt.Sprintf(
			"data item declares is-part-of-collection %d times, expected exactly one", partOf))
		failures++
	}
	if set.Count(attribute.AttrAggregatesFile) < 1 {
		reportFail(depositID, st, key, "data item aggregates no files")
		failures++
	}

	rid, _ := set.First(attribute.AttrResourceID)
	owner, _ := set.First(attribute.AttrIsPartOfCollection)
	if partOf == 1 && rid != "" {
		for _, agg := range aggregators[rid] {
			if agg != owner {
				reportFail(depositID, st, key, fmt.Sprintf(
					"data item %s is owned by %q but aggregated by %q; parent is ambiguous",
					rid, owner, agg))
				failures++
			}
		}
	}
	return failures
}

// checkMetadataFile enforces exactly one is-metadata-for target
func (c *CardinalityCheck) checkMetadataFile(depositID string, st *State, key string, set *attribute.Set) int {
	n := set.Count(attribute.AttrIsMetadataFor)
	if n != 1 {
		reportFail(depositID, st, key, fmt.Sprintf(
			"metadata file declares is-metadata-for %d times, expected exactly one", n))
		return 1
	}
	return 0
}

// dataItemAggregators maps each data item resource id to the collections
// declaring it as an aggregates-dataitem target
func (c *CardinalityCheck) dataItemAggregators(keys []string, st *State) map[string][]string {
	aggregators := make(map[string][]string)
	for _, key := range keys {
		set, ok := st.Attributes.Get(key)
		if !ok || set.Name != attribute.SetCollectionRM {
			continue
		}
		rid, _ := set.First(attribute.AttrResourceID)
		for _, target := range set.Values(attribute.AttrAggregatesDataItem) {
			aggregators[target] = append(aggregators[target], rid)
		}
	}
	return aggregators
}
