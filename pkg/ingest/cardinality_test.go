// ABOUTME: Tests for the relationship cardinality verifier
// ABOUTME: Covers per-type bounds, mutual exclusion and parent ambiguity

package ingest

import (
	"testing"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/event"
)

func TestCardinalityCollectionMutualExclusion(t *testing.T) {
	st, log, _ := newTestState(t)
	addRM(t, st, attribute.SetCollectionRM, "C1",
		strAttr(attribute.AttrAggregatedByProject, "P1"),
		strAttr(attribute.AttrIsPartOfCollection, "C2"),
	)

	err := NewCardinalityCheck().Execute("dep-1", st)
	if !IsStageError(err) {
		t.Fatalf("Expected checked stage failure, got %v", err)
	}
	if fails := log.Events("dep-1", event.IngestFail); len(fails) != 1 {
		t.Errorf("Expected 1 INGEST_FAIL event, got %d", len(fails))
	}
}

func TestCardinalityRootCollectionAllowed(t *testing.T) {
	st, log, _ := newTestState(t)
	addRM(t, st, attribute.SetCollectionRM, "C1",
		strAttr(attribute.AttrTitle, "root collection"),
	)

	if err := NewCardinalityCheck().Execute("dep-1", st); err != nil {
		t.Fatalf("Parentless collection must be allowed as a root: %v", err)
	}
	if fails := log.Events("dep-1", event.IngestFail); len(fails) != 0 {
		t.Errorf("Expected no failures, got %d", len(fails))
	}
}

func TestCardinalityCollectionRepeatedParent(t *testing.T) {
	st, _, _ := newTestState(t)
	addRM(t, st, attribute.SetCollectionRM, "C1",
		strAttr(attribute.AttrIsPartOfCollection, "C2"),
		strAttr(attribute.AttrIsPartOfCollection, "C3"),
	)

	err := NewCardinalityCheck().Execute("dep-1", st)
	if !IsStageError(err) {
		t.Fatalf("Expected checked stage failure, got %v", err)
	}
}

func TestCardinalityDataItemBounds(t *testing.T) {
	st, log, _ := newTestState(t)

	// No owning collection and no files: two violations on one record
	addRM(t, st, attribute.SetDataItemRM, "D1")

	err := NewCardinalityCheck().Execute("dep-1", st)
	se, ok := err.(*StageError)
	if !ok {
		t.Fatalf("Expected *StageError, got %v", err)
	}
	if se.Failures != 2 {
		t.Errorf("Expected 2 violations, got %d", se.Failures)
	}
	if fails := log.Events("dep-1", event.IngestFail); len(fails) != 2 {
		t.Errorf("Expected 2 INGEST_FAIL events, got %d", len(fails))
	}
}

func TestCardinalityDataItemValid(t *testing.T) {
	st, _, _ := newTestState(t)
	addRM(t, st, attribute.SetDataItemRM, "D1",
		strAttr(attribute.AttrIsPartOfCollection, "C1"),
		strAttr(attribute.AttrAggregatesFile, "F1"),
	)

	if err := NewCardinalityCheck().Execute("dep-1", st); err != nil {
		t.Fatalf("Valid data item must pass: %v", err)
	}
}

func TestCardinalityAmbiguousDataItemParent(t *testing.T) {
	st, log, _ := newTestState(t)

	// D1 declares C1 as its owner while C2 independently aggregates it:
	// its parent is not derivable from exactly one direction.
	addRM(t, st, attribute.SetDataItemRM, "D1",
		strAttr(attribute.AttrIsPartOfCollection, "C1"),
		strAttr(attribute.AttrAggregatesFile, "F1"),
	)
	addRM(t, st, attribute.SetCollectionRM, "C2",
		strAttr(attribute.AttrAggregatesDataItem, "D1"),
	)

	err := NewCardinalityCheck().Execute("dep-1", st)
	if !IsStageError(err) {
		t.Fatalf("Expected checked stage failure, got %v", err)
	}
	if fails := log.Events("dep-1", event.IngestFail); len(fails) != 1 {
		t.Errorf("Expected 1 INGEST_FAIL event, got %d", len(fails))
	}
}

func TestCardinalityConsistentAggregationPasses(t *testing.T) {
	st, _, _ := newTestState(t)

	// Both directions agree on the same owner
	addRM(t, st, attribute.SetDataItemRM, "D1",
		strAttr(attribute.AttrIsPartOfCollection, "C1"),
		strAttr(attribute.AttrAggregatesFile, "F1"),
	)
	addRM(t, st, attribute.SetCollectionRM, "C1",
		strAttr(attribute.AttrAggregatesDataItem, "D1"),
	)

	if err := NewCardinalityCheck().Execute("dep-1", st); err != nil {
		t.Fatalf("Consistent declarations must pass: %v", err)
	}
}

func TestCardinalityMetadataFileExactlyOnce(t *testing.T) {
	st, _, _ := newTestState(t)
	addRM(t, st, attribute.SetMetadataFileRM, "M1",
		strAttr(attribute.AttrIsMetadataFor, "C1"),
		strAttr(attribute.AttrIsMetadataFor, "C2"),
	)
	addRM(t, st, attribute.SetMetadataFileRM, "M2")

	err := NewCardinalityCheck().Execute("dep-1", st)
	se, ok := err.(*StageError)
	if !ok {
		t.Fatalf("Expected *StageError, got %v", err)
	}
	if se.Failures != 2 {
		t.Errorf("Expected 2 violations, got %d", se.Failures)
	}
}

func TestCardinalityReportsEveryViolation(t *testing.T) {
	st, log, _ := newTestState(t)

	addRM(t, st, attribute.SetCollectionRM, "C1",
		strAttr(attribute.AttrAggregatedByProject, "P1"),
		strAttr(attribute.AttrIsPartOfCollection, "C9"),
	)
	addRM(t, st, attribute.SetDataItemRM, "D1")
	addRM(t, st, attribute.SetMetadataFileRM, "M1")

	err := NewCardinalityCheck().Execute("dep-1", st)
	se, ok := err.(*StageError)
	if !ok {
		t.Fatalf("Expected *StageError, got %v", err)
	}
	// 1 mutual exclusion + 2 data item bounds + 1 metadata file
	if se.Failures != 4 {
		t.Errorf("Expected 4 violations, got %d", se.Failures)
	}
	if fails := log.Events("dep-1", event.IngestFail); len(fails) != 4 {
		t.Errorf("Expected 4 INGEST_FAIL events, got %d", len(fails))
	}
}
