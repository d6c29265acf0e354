package runloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"prodflow/internal/agent"
	"prodflow/internal/policy"
	"prodflow/internal/task"
	"prodflow/internal/workflow"
)

// Sentinel errors for run-loop control.
var (
	// ErrBlocked indicates the run loop is blocked on a checkpoint and
	// needs an explicit operator acknowledgement before anything else.
	ErrBlocked = errors.New("run loop is blocked awaiting acknowledgement")

	// ErrNotAcknowledgeable indicates Acknowledge was called while the
	// loop was neither blocked nor paused.
	ErrNotAcknowledgeable = errors.New("run loop has nothing to acknowledge")
)

// TaskSource supplies a fresh task repository snapshot. The scheduler
// re-reads between steps rather than caching, so external edits to task
// files are honored.
type TaskSource interface {
	Load() (*task.List, error)
}

// DirSource is the production [TaskSource], reading a tasks directory.
type DirSource struct {
	Dir string
}

// Load parses the tasks directory.
func (d DirSource) Load() (*task.List, error) {
	return task.Load(d.Dir)
}

// Scheduler drives the run loop for one feature.
//
// Use [NewScheduler], optionally [Scheduler.Restore] the persisted state,
// then [Scheduler.Run]. Mutating calls must come from a single goroutine;
// only [Scheduler.RequestPause] is safe to call concurrently.
type Scheduler struct {
	wf     *workflow.State
	pol    policy.Policy
	source TaskSource
	runner agent.Executor

	state   *State
	persist func(*State) error
	now     func() time.Time

	pauseRequested atomic.Bool

	// attempted holds tasks already executed during this run, whatever
	// their outcome. A task runs at most once per Run; the next Run (after
	// an acknowledge) considers it again. This also guards against a step
	// runner that completes without flipping the descriptor status.
	attempted map[string]bool
}

// NewScheduler creates a scheduler over the given workflow state, policy,
// task source, and step runner.
func NewScheduler(wf *workflow.State, pol policy.Policy, source TaskSource, runner agent.Executor) *Scheduler {
	return &Scheduler{
		wf:        wf,
		pol:       pol,
		source:    source,
		runner:    runner,
		state:     NewState(),
		now:       func() time.Time { return time.Now().UTC() },
		attempted: make(map[string]bool),
	}
}

// Restore replaces the scheduler state with a reconciled one.
func (s *Scheduler) Restore(st *State) {
	if st != nil {
		s.state = st
	}
}

// SetPersist installs the callback invoked after every meaningful mutation
// (event append, phase change). Persistence failures are reported through
// an info event rather than aborting the run.
func (s *Scheduler) SetPersist(fn func(*State) error) {
	s.persist = fn
}

// SetClock overrides the timestamp source (used in tests).
func (s *Scheduler) SetClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// State returns the current scheduler state. Reading is always possible,
// including while a step is in flight.
func (s *Scheduler) State() *State {
	return s.state
}

// RequestPause marks the cooperative intent to stop. The scheduler
// transitions to paused once the in-flight step's completion or block signal
// is observed; it never forcibly terminates in-flight work. Safe to call
// from a signal handler goroutine.
func (s *Scheduler) RequestPause() {
	s.pauseRequested.Store(true)
}

// Acknowledge clears a blocked or paused loop back to idle. This is the
// explicit operator control ("Request changes"): it does not retry anything,
// it returns control to the caller to re-trigger the refine flow.
func (s *Scheduler) Acknowledge() error {
	switch s.state.Phase {
	case PhaseBlocked, PhasePaused:
	default:
		return fmt.Errorf("%w (phase %s)", ErrNotAcknowledgeable, s.state.Phase)
	}
	s.state.Phase = PhaseIdle
	s.state.Pending = nil
	s.state.ActiveTask = ""
	s.state.Consecutive = 0
	s.attempted = make(map[string]bool)
	s.appendEvent(EventInfo, "", "operator acknowledged, run loop reset to idle")
	return nil
}

// Run starts or resumes the run loop and executes tasks until the policy,
// a checkpoint, or a pause stops it.
//
// A Run call while already running is a no-op returning the current state
// unchanged. A blocked loop returns [ErrBlocked]; it only leaves that phase
// through [Scheduler.Acknowledge]. Starting from idle requires the gates for
// the implement stage to be satisfied.
func (s *Scheduler) Run(ctx context.Context) (*State, error) {
	single := !s.pol.Execution.AutoRunLoop
	return s.run(ctx, single)
}

// Step runs at most one task regardless of the autoRunLoop policy bit.
func (s *Scheduler) Step(ctx context.Context) (*State, error) {
	return s.run(ctx, true)
}

func (s *Scheduler) run(ctx context.Context, single bool) (*State, error) {
	switch s.state.Phase {
	case PhaseRunning:
		// Second start request while running: no-op, never a second run.
		return s.state, nil
	case PhaseBlocked:
		return s.state, ErrBlocked
	case PhaseIdle:
		if check := workflow.GatesSatisfied(s.wf, workflow.StageImplement, s.pol); !check.Allowed {
			return s.state, fmt.Errorf("cannot start run loop: %s", check.Reason)
		}
	}

	s.state.Phase = PhaseRunning
	s.save()

	for {
		if err := ctx.Err(); err != nil {
			s.pause("run cancelled")
			return s.state, nil
		}
		if s.pauseRequested.Load() {
			s.pauseRequested.Store(false)
			s.pause("pause requested")
			return s.state, nil
		}

		max := s.pol.Execution.MaxConsecutiveTasks
		if max > 0 && s.state.Consecutive >= max {
			s.checkpoint("", fmt.Sprintf("ran %d consecutive tasks, checkpoint reached", s.state.Consecutive))
			return s.state, nil
		}

		// Fresh read every iteration: on-disk state is authoritative.
		list, err := s.source.Load()
		if err != nil {
			s.block("", fmt.Sprintf("task repository unreadable: %v", err))
			return s.state, nil
		}

		next, ok := s.nextRunnable(list)
		if !ok {
			if list.Unresolved() == 0 {
				s.state.Phase = PhaseIdle
				s.state.ActiveTask = ""
				s.appendEvent(EventInfo, "", "all tasks done")
				return s.state, nil
			}
			s.block("", "no ready task: remaining tasks are blocked, in progress, or waiting on dependencies")
			return s.state, nil
		}

		s.state.ActiveTask = next.ID
		s.attempted[next.ID] = true
		s.appendEvent(EventTaskStart, next.ID, fmt.Sprintf("starting task %s: %s", next.ID, next.Title))

		result := s.runner.RunTask(ctx, next.ID, next.Title)

		switch result.Outcome {
		case agent.OutcomeDone:
			s.state.ActiveTask = ""
			s.state.Consecutive++
			s.appendEvent(EventTaskDone, next.ID, fmt.Sprintf("task %s done", next.ID))
		case agent.OutcomeFailedChecks:
			if s.pol.Execution.StopOnFailedChecks {
				s.block(next.ID, fmt.Sprintf("task %s failed checks: %s", next.ID, result.Message))
				return s.state, nil
			}
			s.state.ActiveTask = ""
			s.appendEvent(EventInfo, next.ID, fmt.Sprintf("task %s failed checks, continuing per policy: %s", next.ID, result.Message))
		case agent.OutcomeUncertain:
			if s.pol.Execution.StopOnUncertainty {
				s.block(next.ID, fmt.Sprintf("task %s raised uncertainty: %s", next.ID, result.Message))
				return s.state, nil
			}
			s.state.ActiveTask = ""
			s.appendEvent(EventInfo, next.ID, fmt.Sprintf("task %s uncertain, continuing per policy: %s", next.ID, result.Message))
		}

		if s.pauseRequested.Load() {
			s.pauseRequested.Store(false)
			s.pause("pause requested")
			return s.state, nil
		}
		if single {
			s.state.Phase = PhaseIdle
			s.save()
			return s.state, nil
		}
	}
}

// nextRunnable picks the lowest-ID ready task not yet attempted this run.
func (s *Scheduler) nextRunnable(list *task.List) (task.Item, bool) {
	for _, it := range list.Items {
		if s.attempted[it.ID] {
			continue
		}
		if list.Ready(it) {
			return it, true
		}
	}
	return task.Item{}, false
}

func (s *Scheduler) pause(reason string) {
	s.state.Phase = PhasePaused
	s.appendEvent(EventInfo, s.state.ActiveTask, "run paused: "+reason)
}

func (s *Scheduler) block(taskID, reason string) {
	s.state.Phase = PhaseBlocked
	s.state.Pending = &Checkpoint{TaskID: taskID, Message: reason}
	s.appendEvent(EventTaskBlocked, taskID, reason)
}

func (s *Scheduler) checkpoint(taskID, reason string) {
	s.state.Phase = PhaseBlocked
	s.state.Pending = &Checkpoint{TaskID: taskID, Message: reason}
	s.appendEvent(EventCheckpoint, taskID, reason)
}

func (s *Scheduler) appendEvent(t EventType, taskID, message string) {
	s.state.Append(t, taskID, message, s.now())
	s.save()
}

func (s *Scheduler) save() {
	if s.persist == nil {
		return
	}
	if err := s.persist(s.state); err != nil {
		// Persistence is best-effort; the timeline itself must not grow
		// recursively on failure, so record it without re-persisting.
		s.state.Append(EventInfo, "", fmt.Sprintf("snapshot write failed: %v", err), s.now())
	}
}
