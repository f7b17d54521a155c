// ABOUTME: Tests for the phased ingest orchestrator
// ABOUTME: Covers ordering, pause/resume, cancellation, cleanup and serialization

package ingest

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nainya/depot/internal/logger"
	"github.com/nainya/depot/pkg/event"
)

type runLog struct {
	mu    sync.Mutex
	names []string
}

func (r *runLog) record(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *runLog) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

type fakeStage struct {
	name string
	err  error
	log  *runLog
	hook func()
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) Execute(depositID string, st *State) error {
	if s.log != nil {
		s.log.record(s.name)
	}
	if s.hook != nil {
		s.hook()
	}
	return s.err
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(logger.Config{Level: "error", Output: io.Discard})
}

func newOrchestrator(t *testing.T, log event.Log, phases ...Phase) *Orchestrator {
	t.Helper()

	o, err := NewOrchestrator(Config{
		Phases: phases,
		Events: log,
		Log:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}
	return o
}

func TestOrchestratorStageOrdering(t *testing.T) {
	st, log, _ := newTestState(t)
	runs := &runLog{}

	o := newOrchestrator(t, log,
		Phase{Number: 1, Stages: []Stage{
			&fakeStage{name: "s1", log: runs},
			&fakeStage{name: "s2", log: runs},
		}},
		Phase{Number: 2, Stages: []Stage{
			&fakeStage{name: "s3", log: runs},
		}},
	)

	status, err := o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status != StatusSucceeded {
		t.Errorf("Expected Succeeded, got %s", status)
	}

	got := runs.snapshot()
	want := []string{"s1", "s2", "s3"}
	if len(got) != len(want) {
		t.Fatalf("Expected runs %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected runs %v, got %v", want, got)
		}
	}

	if n := len(log.Events("dep-1", event.IngestSuccess)); n != 1 {
		t.Errorf("Expected 1 INGEST_SUCCESS event, got %d", n)
	}
}

func TestOrchestratorFailureStopsPipeline(t *testing.T) {
	st, log, _ := newTestState(t)
	runs := &runLog{}

	o := newOrchestrator(t, log,
		Phase{Number: 1, Stages: []Stage{
			&fakeStage{name: "s1", log: runs},
			&fakeStage{name: "s2", log: runs, err: &StageError{Stage: "s2", Failures: 1, Reason: "bad"}},
		}},
		Phase{Number: 2, Stages: []Stage{
			&fakeStage{name: "s3", log: runs},
		}},
	)

	status, err := o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Checked failures must not propagate as errors: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("Expected Failed, got %s", status)
	}

	for _, name := range runs.snapshot() {
		if name == "s3" {
			t.Error("s3 must never execute after an earlier stage fails")
		}
	}

	if n := len(log.Events("dep-1", event.IngestFail)); n != 1 {
		t.Errorf("Expected 1 INGEST_FAIL event from the orchestrator, got %d", n)
	}
	if n := len(log.Events("dep-1", event.IngestSuccess)); n != 0 {
		t.Errorf("Expected no success event, got %d", n)
	}
}

func TestOrchestratorUnrecoverableFaultReturned(t *testing.T) {
	st, log, _ := newTestState(t)
	boom := errors.New("disk on fire")

	o := newOrchestrator(t, log,
		Phase{Number: 1, Stages: []Stage{&fakeStage{name: "s1", err: boom}}},
	)

	status, err := o.Start("dep-1", st)
	if status != StatusFailed {
		t.Errorf("Expected Failed, got %s", status)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected unrecoverable fault to propagate, got %v", err)
	}
}

func TestOrchestratorPauseAfterFinalPhase(t *testing.T) {
	st, log, _ := newTestState(t)
	runs := &runLog{}

	o := newOrchestrator(t, log,
		Phase{Number: 1, PauseAfter: true, Stages: []Stage{&fakeStage{name: "s1", log: runs}}},
	)

	status, err := o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status != StatusPaused {
		t.Fatalf("Expected Paused after final phase, got %s", status)
	}

	// Resuming with no phases left completes the deposit
	status, err = o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if status != StatusSucceeded {
		t.Errorf("Expected Succeeded on resume, got %s", status)
	}
	if got := runs.snapshot(); len(got) != 1 {
		t.Errorf("Expected no stage reruns, got %v", got)
	}
}

func TestOrchestratorPauseResume(t *testing.T) {
	st, log, _ := newTestState(t)
	runs := &runLog{}

	o := newOrchestrator(t, log,
		Phase{Number: 1, PauseAfter: true, Stages: []Stage{&fakeStage{name: "s1", log: runs}}},
		Phase{Number: 2, Stages: []Stage{&fakeStage{name: "s2", log: runs}}},
	)

	status, err := o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status != StatusPaused {
		t.Fatalf("Expected Paused after phase 1, got %s", status)
	}
	if got := o.Status("dep-1"); got != StatusPaused {
		t.Errorf("Expected live status Paused, got %s", got)
	}
	if got := runs.snapshot(); len(got) != 1 || got[0] != "s1" {
		t.Fatalf("Expected only s1 to have run, got %v", got)
	}

	// A subsequent Start resumes at the next phase
	status, err = o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if status != StatusSucceeded {
		t.Errorf("Expected Succeeded after resume, got %s", status)
	}
	if got := runs.snapshot(); len(got) != 2 || got[1] != "s2" {
		t.Fatalf("Expected s2 to run once on resume, got %v", got)
	}

	// Terminal deposits are reclaimed from the registry
	if got := o.Status("dep-1"); got != StatusIdle {
		t.Errorf("Expected reclaimed deposit to report Idle, got %s", got)
	}
}

func TestOrchestratorCancelBetweenPhases(t *testing.T) {
	st, log, _ := newTestState(t)
	runs := &runLog{}

	o := newOrchestrator(t, log,
		Phase{Number: 1, PauseAfter: true, Stages: []Stage{&fakeStage{name: "s1", log: runs}}},
		Phase{Number: 2, Stages: []Stage{&fakeStage{name: "s2", log: runs}}},
	)

	if status, _ := o.Start("dep-1", st); status != StatusPaused {
		t.Fatalf("Expected Paused, got %s", status)
	}

	o.Cancel("dep-1")

	// The cancelled deposit pauses again without advancing
	status, err := o.Start("dep-1", st)
	if err != nil {
		t.Fatalf("Cancelled start failed: %v", err)
	}
	if status != StatusPaused {
		t.Errorf("Expected Paused after cancellation, got %s", status)
	}
	if got := runs.snapshot(); len(got) != 1 {
		t.Fatalf("Expected phase 2 not to run after cancellation, got %v", got)
	}

	// Cancellation is consumed; the next Start resumes normally
	if status, _ = o.Start("dep-1", st); status != StatusSucceeded {
		t.Errorf("Expected Succeeded after resume, got %s", status)
	}
}

func TestOrchestratorCleanupOnFailure(t *testing.T) {
	st, log, b := newTestState(t)
	writePayload(t, b, "payload.bin", "data")

	o := newOrchestrator(t, log,
		Phase{Number: 1, Stages: []Stage{
			&fakeStage{name: "s1", err: &StageError{Stage: "s1", Failures: 1, Reason: "bad"}},
		}},
	)

	if status, _ := o.Start("dep-1", st); status != StatusFailed {
		t.Fatalf("Expected Failed, got %s", status)
	}

	if _, err := os.Stat(b.ExtractDir()); !os.IsNotExist(err) {
		t.Error("Expected extract dir to be removed after failure")
	}
}

func TestOrchestratorNoCleanupOnSuccess(t *testing.T) {
	st, log, b := newTestState(t)
	writePayload(t, b, "payload.bin", "data")

	o := newOrchestrator(t, log,
		Phase{Number: 1, Stages: []Stage{&fakeStage{name: "s1"}}},
	)

	if status, _ := o.Start("dep-1", st); status != StatusSucceeded {
		t.Fatalf("Expected Succeeded, got %s", status)
	}

	if _, err := os.Stat(b.ExtractDir()); err != nil {
		t.Error("Extract dir must survive a successful run")
	}
}

func TestOrchestratorSerializesSameDeposit(t *testing.T) {
	log := event.NewMemoryLog(nil)

	var active, maxActive atomic.Int32
	stage := &fakeStage{name: "slow", hook: func() {
		cur := active.Add(1)
		for {
			prev := maxActive.Load()
			if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	}}

	o := newOrchestrator(t, log,
		Phase{Number: 1, Stages: []Stage{stage}},
	)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, _, _ := newTestState(t)
			st.Events = log
			if _, err := o.Start("dep-1", st); err != nil {
				t.Errorf("Start failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxActive.Load() != 1 {
		t.Errorf("Expected starts for one deposit id to serialize, saw %d concurrent", maxActive.Load())
	}
}

func TestOrchestratorPhaseNumberOrdering(t *testing.T) {
	st, log, _ := newTestState(t)
	runs := &runLog{}

	// Declared out of order; execution follows phase numbers
	o := newOrchestrator(t, log,
		Phase{Number: 5, Stages: []Stage{&fakeStage{name: "late", log: runs}}},
		Phase{Number: 1, Stages: []Stage{&fakeStage{name: "early", log: runs}}},
	)

	if status, _ := o.Start("dep-1", st); status != StatusSucceeded {
		t.Fatalf("Expected Succeeded")
	}
	got := runs.snapshot()
	if len(got) != 2 || got[0] != "early" || got[1] != "late" {
		t.Errorf("Expected phase-number order, got %v", got)
	}
}
