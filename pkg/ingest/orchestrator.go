// ABOUTME: Phased ingest orchestrator with per-deposit serialization
// ABOUTME: Runs stage sequences, honors pause points and cleans up on failure

package ingest

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/nainya/depot/internal/logger"
	"github.com/nainya/depot/internal/metrics"
	"github.com/nainya/depot/pkg/event"
)

var (
	// ErrNoPhases indicates an orchestrator configured without phases
	ErrNoPhases = errors.New("ingest: no phases configured")
)

// Status describes a deposit's lifecycle state
type Status int

// Deposit lifecycle states
const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusFailed
	StatusSucceeded
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusPaused:
		return "Paused"
	case StatusFailed:
		return "Failed"
	case StatusSucceeded:
		return "Succeeded"
	}
	return "Unknown"
}

// Phase is an ordered group of stages executed atomically with respect
// to pause points. Phases are totally ordered by Number.
type Phase struct {
	Number     int     // Total order across phases
	PauseAfter bool    // Pause the deposit once this phase completes
	Stages     []Stage // Executed sequentially, in declared order
}

// Config configures the orchestrator
type Config struct {
	Phases  []Phase
	Events  event.Log
	Log     *logger.Logger   // Defaults to the global logger
	Metrics *metrics.Metrics // Optional
	Workers int              // Bounded worker pool size, defaults to 4
}

// depositEntry serializes Start calls for one live deposit id
type depositEntry struct {
	mu        sync.Mutex
	cond      *sync.Cond
	running   bool
	gone      bool // entry reclaimed after a terminal state
	cancelled bool
	cursor    int // next phase index
	status    Status
}

func newDepositEntry() *depositEntry {
	e := &depositEntry{status: StatusIdle}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Orchestrator runs the ordered phase list against deposits. Start calls
// for the same deposit id are serialized; cross-deposit concurrency is
// bounded by the worker pool.
type Orchestrator struct {
	phases  []Phase
	events  event.Log
	log     *logger.Logger
	metrics *metrics.Metrics
	workers chan struct{}

	mu       sync.Mutex
	deposits map[string]*depositEntry
}

// NewOrchestrator creates an orchestrator over the configured phases,
// sorted by phase number.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if len(cfg.Phases) == 0 {
		return nil, ErrNoPhases
	}
	if cfg.Events == nil {
		return nil, ErrMissingEventLog
	}

	phases := make([]Phase, len(cfg.Phases))
	copy(phases, cfg.Phases)
	sort.Slice(phases, func(i, j int) bool { return phases[i].Number < phases[j].Number })

	log := cfg.Log
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	return &Orchestrator{
		phases:   phases,
		events:   cfg.Events,
		log:      log,
		metrics:  cfg.Metrics,
		workers:  make(chan struct{}, workers),
		deposits: make(map[string]*depositEntry),
	}, nil
}

// Start runs the deposit from its phase cursor to the next pause point or
// a terminal state. If another Start for the same deposit id is running,
// the call blocks until it yields. Checked validation failures surface
// through the event log and a Failed status; only structural faults are
// returned as errors.
func (o *Orchestrator) Start(depositID string, st *State) (Status, error) {
	if err := st.check(); err != nil {
		return StatusFailed, err
	}

	entry := o.acquire(depositID)

	if o.metrics != nil {
		o.metrics.DepositsStartedTotal.Inc()
		o.metrics.DepositsActive.Inc()
		defer o.metrics.DepositsActive.Dec()
	}

	for entry.cursor < len(o.phases) {
		if o.consumeCancel(entry) {
			// Cancellation leaves the deposit paused without error
			if o.metrics != nil {
				o.metrics.DepositsCancelledTotal.Inc()
			}
			return o.yield(depositID, entry, StatusPaused), nil
		}

		phase := o.phases[entry.cursor]
		if err := o.runPhase(depositID, st, phase); err != nil {
			o.failDeposit(depositID, st, err)
			o.yield(depositID, entry, StatusFailed)
			if IsStageError(err) {
				return StatusFailed, nil
			}
			return StatusFailed, err
		}
		entry.cursor++

		if phase.PauseAfter {
			// Pausing after the final phase still yields; the next Start
			// finds no phases left and completes the deposit.
			return o.yield(depositID, entry, StatusPaused), nil
		}
	}

	e := o.events.New(event.IngestSuccess)
	e.Target = depositID
	e.Detail = "all ingest phases completed"
	o.events.Add(depositID, e)
	if o.metrics != nil {
		o.metrics.DepositsSucceededTotal.Inc()
		o.metrics.RecordEvent(string(event.IngestSuccess))
		if st.Graph != nil {
			o.metrics.ObjectsBuiltTotal.Add(float64(st.Graph.Len()))
			for _, obj := range st.Graph.All() {
				o.metrics.ExternalRefsTotal.Add(float64(len(obj.ExternalRefs)))
				if obj.ExternalParent != "" {
					o.metrics.ExternalRefsTotal.Inc()
				}
			}
		}
	}

	return o.yield(depositID, entry, StatusSucceeded), nil
}

// Cancel marks the deposit cancelled. The orchestrator observes the flag
// between phases; there is no mid-stage cancellation point. Unknown
// deposit ids are ignored.
func (o *Orchestrator) Cancel(depositID string) {
	o.mu.Lock()
	entry, ok := o.deposits[depositID]
	o.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	entry.cancelled = true
	entry.mu.Unlock()
}

// Status reports the deposit's current lifecycle state. Deposits that
// reached a terminal state have been reclaimed and report Idle.
func (o *Orchestrator) Status(depositID string) Status {
	o.mu.Lock()
	entry, ok := o.deposits[depositID]
	o.mu.Unlock()
	if !ok {
		return StatusIdle
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.status
}

// runPhase executes the phase's stages sequentially on one worker.
// Any stage error aborts the remaining stages of this phase.
func (o *Orchestrator) runPhase(depositID string, st *State, phase Phase) error {
	o.workers <- struct{}{}
	defer func() { <-o.workers }()

	for _, stage := range phase.Stages {
		start := time.Now()
		err := stage.Execute(depositID, st)
		elapsed := time.Since(start)

		o.log.LogStageRun(depositID, stage.Name(), elapsed, err)
		if o.metrics != nil {
			status := "success"
			if err != nil {
				status = "failure"
			}
			o.metrics.RecordStageRun(stage.Name(), status, elapsed)
		}

		if err != nil {
			if o.metrics != nil {
				o.metrics.RecordPhaseRun("failure")
				if IsStageError(err) {
					o.metrics.ValidationFailsTotal.WithLabelValues(stage.Name()).Inc()
				}
			}
			return fmt.Errorf("phase %d: %w", phase.Number, err)
		}
	}

	if o.metrics != nil {
		o.metrics.RecordPhaseRun("success")
	}
	return nil
}

// failDeposit emits the failure event and removes the package's extracted
// working directory. Cleanup happens on failure only; a succeeded
// deposit's directory is a later stage's responsibility.
func (o *Orchestrator) failDeposit(depositID string, st *State, cause error) {
	e := o.events.New(event.IngestFail)
	e.Target = depositID
	e.Detail = cause.Error()
	o.events.Add(depositID, e)

	if o.metrics != nil {
		o.metrics.DepositsFailedTotal.Inc()
		o.metrics.RecordEvent(string(event.IngestFail))
	}

	if st.Package != nil && st.Package.ExtractDir() != "" {
		if err := os.RemoveAll(st.Package.ExtractDir()); err != nil {
			o.log.Error("Cleanup failed").
				Str("deposit", depositID).
				Str("dir", st.Package.ExtractDir()).
				Err(err).
				Send()
		} else if o.metrics != nil {
			o.metrics.CleanupRunsTotal.Inc()
		}
	}
}

// acquire blocks until no other Start call is running for the deposit id
// and marks the entry running.
func (o *Orchestrator) acquire(depositID string) *depositEntry {
	for {
		o.mu.Lock()
		entry, ok := o.deposits[depositID]
		if !ok {
			entry = newDepositEntry()
			o.deposits[depositID] = entry
		}
		o.mu.Unlock()

		entry.mu.Lock()
		for entry.running && !entry.gone {
			entry.cond.Wait()
		}
		if entry.gone {
			// Entry was reclaimed at a terminal state; fetch a fresh one
			entry.mu.Unlock()
			continue
		}
		entry.running = true
		entry.status = StatusRunning
		entry.mu.Unlock()
		return entry
	}
}

// yield releases the entry at the given status, reclaiming it once the
// deposit reaches a terminal state so the registry cannot grow unbounded.
func (o *Orchestrator) yield(depositID string, entry *depositEntry, status Status) Status {
	terminal := status == StatusFailed || status == StatusSucceeded
	if terminal {
		o.mu.Lock()
		delete(o.deposits, depositID)
		o.mu.Unlock()
	}

	entry.mu.Lock()
	entry.running = false
	entry.status = status
	if terminal {
		entry.gone = true
	}
	entry.cond.Broadcast()
	cursor := entry.cursor
	entry.mu.Unlock()

	o.log.LogDepositOutcome(depositID, status.String(), cursor)
	return status
}

// consumeCancel reports and clears a pending cancellation
func (o *Orchestrator) consumeCancel(entry *depositEntry) bool {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.cancelled {
		entry.cancelled = false
		return true
	}
	return false
}
