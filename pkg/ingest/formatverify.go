// ABOUTME: Format verification stage comparing asserted and detected formats
// ABOUTME: Mismatches are per-record anomalies reported with an aggregate count

package ingest

import (
	"fmt"
	"sort"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/bag"
	"github.com/nainya/depot/pkg/event"
)

// FormatVerifyStage compares the format a file record asserts with the
// format content inspection detected. Disagreements are reported per
// record and do not abort the stage; the detected format remains
// authoritative downstream.
type FormatVerifyStage struct{}

// NewFormatVerifyStage creates the format verification stage
func NewFormatVerifyStage() *FormatVerifyStage {
	return &FormatVerifyStage{}
}

// Name returns the stage name
func (f *FormatVerifyStage) Name() string { return "format-verify" }

// Execute verifies every file resource-map record carrying a format
func (f *FormatVerifyStage) Execute(depositID string, st *State) error {
	if err := st.check(); err != nil {
		return err
	}
	if st.Package == nil {
		return ErrMissingPackage
	}

	keys := st.Attributes.Keys()
	sort.Strings(keys)

	mismatches := 0
	for _, key := range keys {
		set, ok := st.Attributes.Get(key)
		if !ok {
			continue
		}
		if set.Name != attribute.SetFileRM && set.Name != attribute.SetMetadataFileRM {
			continue
		}

		rel, ok := set.First(attribute.AttrPath)
		if !ok {
			continue
		}
		full, err := bag.PayloadPath(st.Package, rel)
		if err != nil {
			continue
		}

		raw, ok := st.Attributes.Get(full)
		if !ok {
			continue
		}
		detected, hasDetected := raw.First(attribute.AttrDetectedFormat)
		if !hasDetected || detected == "" {
			continue
		}

		// Report what content inspection found
		ce := st.Events.New(event.CharacterizationFormat)
		ce.Target = full
		ce.Outcome = detected
		st.Events.Add(depositID, ce)

		asserted, hasAsserted := set.First(attribute.AttrFormat)
		if !hasAsserted || asserted == "" {
			continue
		}

		if asserted == detected {
			e := st.Events.New(event.FormatVerified)
			e.Target = full
			e.Outcome = detected
			e.Detail = "asserted format confirmed by content inspection"
			st.Events.Add(depositID, e)
		} else {
			e := st.Events.New(event.FormatVerificationFailed)
			e.Target = full
			e.Outcome = detected
			e.Detail = fmt.Sprintf("asserted format %q disagrees with detected format %q", asserted, detected)
			st.Events.Add(depositID, e)
			mismatches++
		}
	}

	if mismatches > 0 {
		e := st.Events.New(event.FormatVerificationFailed)
		e.Target = depositID
		e.Detail = fmt.Sprintf("%d files failed format verification", mismatches)
		st.Events.Add(depositID, e)
	}
	return nil
}
