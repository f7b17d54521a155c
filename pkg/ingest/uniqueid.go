// ABOUTME: Unique identifier verifier across the whole attribute store
// ABOUTME: Detects duplicate and cross-type identifier collisions within one deposit

package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nainya/depot/pkg/attribute"
)

// identifierAttrs lists the per-type declared identifier attribute names
var identifierAttrs = []string{
	attribute.AttrProjectIdentifier,
	attribute.AttrCollectionIdentifier,
	attribute.AttrDataItemIdentifier,
	attribute.AttrFileIdentifier,
	attribute.AttrMetadataFileIdentifier,
}

// UniqueIDCheck verifies no literal identifier value is declared more
// than once under the same attribute name, or under two different
// identifier attribute names. Uniqueness is scoped to one deposit.
type UniqueIDCheck struct{}

// NewUniqueIDCheck creates the unique identifier verifier stage
func NewUniqueIDCheck() *UniqueIDCheck {
	return &UniqueIDCheck{}
}

// Name returns the stage name
func (c *UniqueIDCheck) Name() string { return "unique-identifier" }

// Execute collects every declared identifier and reports collisions
func (c *UniqueIDCheck) Execute(depositID string, st *State) error {
	if err := st.check(); err != nil {
		return err
	}

	// value -> identifier attribute name -> occurrence count
	declared := make(map[string]map[string]int)

	for _, key := range st.Attributes.Keys() {
		set, ok := st.Attributes.Get(key)
		if !ok {
			continue
		}
		for _, name := range identifierAttrs {
			for _, value := range set.Values(name) {
				if declared[value] == nil {
					declared[value] = make(map[string]int)
				}
				declared[value][name]++
			}
		}
	}

	values := make([]string, 0, len(declared))
	for v := range declared {
		values = append(values, v)
	}
	sort.Strings(values)

	failures := 0
	for _, value := range values {
		names := declared[value]

		for _, name := range identifierAttrs {
			if names[name] > 1 {
				reportFail(depositID, st, value, fmt.Sprintf(
					"identifier %q is declared %d times under %s", value, names[name], name))
				failures++
			}
		}

		if len(names) > 1 {
			var under []string
			for _, name := range identifierAttrs {
				if names[name] > 0 {
					under = append(under, name)
				}
			}
			reportFail(depositID, st, value, fmt.Sprintf(
				"identifier %q collides across types: %s", value, strings.Join(under, ", ")))
			failures++
		}
	}

	if failures > 0 {
		return &StageError{Stage: c.Name(), Failures: failures, Reason: "identifier collisions"}
	}
	return nil
}
