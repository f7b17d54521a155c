// ABOUTME: In-memory lifecycle event log
// ABOUTME: Per-deposit ordered event slices guarded by a mutex

package event

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryLog is an in-memory Log implementation. Events are held per
// deposit in insertion order. Safe for concurrent use.
type MemoryLog struct {
	mu     sync.RWMutex
	events map[string][]Event
	zlog   *zerolog.Logger
}

// NewMemoryLog creates an empty in-memory event log. A non-nil logger
// mirrors every added event as a structured log line.
func NewMemoryLog(zlog *zerolog.Logger) *MemoryLog {
	return &MemoryLog{
		events: make(map[string][]Event),
		zlog:   zlog,
	}
}

// New creates an event of the given type stamped with the current time
func (l *MemoryLog) New(t Type) Event {
	return Event{Type: t, At: time.Now()}
}

// Add appends an event to the deposit's ordered log
func (l *MemoryLog) Add(depositID string, e Event) {
	l.mu.Lock()
	l.events[depositID] = append(l.events[depositID], e)
	l.mu.Unlock()

	if l.zlog != nil {
		l.zlog.Info().
			Str("deposit", depositID).
			Str("event", string(e.Type)).
			Str("target", e.Target).
			Str("outcome", e.Outcome).
			Msg(e.Detail)
	}
}

// Events returns the deposit's events of the given type in insertion
// order. An empty type returns every event.
func (l *MemoryLog) Events(depositID string, t Type) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.events[depositID]
	if t == "" {
		out := make([]Event, len(all))
		copy(out, all)
		return out
	}

	var out []Event
	for _, e := range all {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Drop discards a deposit's events once the deposit is discarded
func (l *MemoryLog) Drop(depositID string) {
	l.mu.Lock()
	delete(l.events, depositID)
	l.mu.Unlock()
}
