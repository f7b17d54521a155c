// ABOUTME: Shared deposit state and the stage contract
// ABOUTME: Defines the checked stage failure used by all validators

package ingest

import (
	"errors"
	"fmt"

	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/bag"
	"github.com/nainya/depot/pkg/event"
	"github.com/nainya/depot/pkg/ident"
	"github.com/nainya/depot/pkg/object"
)

var (
	// ErrMissingAttributeStore indicates a deposit state without a store
	ErrMissingAttributeStore = errors.New("ingest: missing attribute store")

	// ErrMissingEventLog indicates a deposit state without an event log
	ErrMissingEventLog = errors.New("ingest: missing event log")

	// ErrMissingPackage indicates a stage that needs the package got none
	ErrMissingPackage = errors.New("ingest: missing package")

	// ErrMissingIdentifierService indicates a stage that mints ids got no service
	ErrMissingIdentifierService = errors.New("ingest: missing identifier service")
)

// State is one deposit's shared mutable ingest state. Every stage reads
// and writes the same State; it is never shared across deposits.
type State struct {
	Attributes  *attribute.Store // Extracted package metadata
	Graph       *object.Graph    // Built business object graph (nil until built)
	Events      event.Log        // Lifecycle event log
	Package     bag.Package      // Extracted bag
	Identifiers ident.Service    // Identifier minting
}

// check verifies the structural invariants every stage relies on.
// A violation is a configuration fault, not a validation failure.
func (s *State) check() error {
	if s == nil || s.Attributes == nil {
		return ErrMissingAttributeStore
	}
	if s.Events == nil {
		return ErrMissingEventLog
	}
	return nil
}

// Stage is one unit of validation or transformation run by the
// orchestrator. A stage reports outcomes through the deposit's event log;
// a returned *StageError is a checked failure already reported there,
// any other error is an unrecoverable fault.
type Stage interface {
	Name() string
	Execute(depositID string, st *State) error
}

// StageError is a checked ingest failure. The owning stage has already
// reported every violation through the event log before raising it.
type StageError struct {
	Stage    string // Stage that failed
	Failures int    // Number of reported violations
	Reason   string // Aggregate description
}

// Error returns the failure description
func (e *StageError) Error() string {
	return fmt.Sprintf("ingest: stage %s failed: %s (%d failures)", e.Stage, e.Reason, e.Failures)
}

// IsStageError reports whether err is (or wraps) a checked stage failure
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// reportFail records one INGEST_FAIL event for the deposit
func reportFail(depositID string, st *State, target, detail string) {
	e := st.Events.New(event.IngestFail)
	e.Target = target
	e.Detail = detail
	st.Events.Add(depositID, e)
}
