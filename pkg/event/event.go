// ABOUTME: Lifecycle event model for ingest reporting
// ABOUTME: Every stage reports outcomes exclusively through the event log

package event

import "time"

// Type identifies a lifecycle event kind
type Type string

// Lifecycle event types
const (
	BusinessObjectBuilt      Type = "BUSINESS_OBJECT_BUILT"
	IngestFail               Type = "INGEST_FAIL"
	IngestSuccess            Type = "INGEST_SUCCESS"
	FormatVerified           Type = "FORMAT_VERIFIED"
	FormatVerificationFailed Type = "FORMAT_VERIFICATION_FAILED"
	FixityCalculated         Type = "FIXITY_CALCULATED"
	CharacterizationFormat   Type = "CHARACTERIZATION_FORMAT"
	Transform                Type = "TRANSFORM"
	TransformFail            Type = "TRANSFORM_FAIL"
)

// Event is a single lifecycle record. Detail carries descriptive text;
// Outcome carries the machine-readable result (a count, an identifier).
type Event struct {
	Type    Type      // Event kind
	Target  string    // Subject of the event (deposit id, record key, path)
	Detail  string    // Descriptive text
	Outcome string    // Result value
	At      time.Time // When the event was recorded
}

// Log records and retrieves lifecycle events per deposit
type Log interface {
	// New creates an event record of the given type, stamped with the
	// current time. The caller fills in target/detail/outcome before Add.
	New(t Type) Event

	// Add appends an event to the deposit's ordered log
	Add(depositID string, e Event)

	// Events returns the deposit's events of the given type, in the order
	// they were added. An empty type returns every event.
	Events(depositID string, t Type) []Event
}
