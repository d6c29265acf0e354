// Package runloop drives one-task-at-a-time execution of a feature's
// implementation tasks.
//
// The scheduler is a four-state machine (idle, running, paused, blocked)
// that selects the next ready task from a fresh on-disk read, delegates the
// step to the agent executor, and appends a run-event timeline. Execution is
// strictly sequential so the timeline stays a total order matching execution
// order.
//
// All state transitions are serialized through a single writer; the only
// cross-goroutine signal is the cooperative pause flag.
package runloop

import (
	"fmt"
	"time"
)

// Phase is the scheduler's state.
type Phase string

// Scheduler phases.
const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhasePaused  Phase = "paused"
	PhaseBlocked Phase = "blocked"
)

// EventType classifies a timeline entry.
type EventType string

// Run event types.
const (
	EventTaskStart   EventType = "task_start"
	EventTaskDone    EventType = "task_done"
	EventTaskBlocked EventType = "task_blocked"
	EventCheckpoint  EventType = "checkpoint"
	EventInfo        EventType = "info"
)

// Event is one append-only timeline entry. Entries are never edited or
// removed; an entry whose task no longer exists is only annotated as
// orphaned at read time.
type Event struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Type    EventType `json:"type"`
	TaskID  string    `json:"taskId,omitempty"`
	Message string    `json:"message"`

	// Orphaned is a display-only read-time annotation, never persisted.
	Orphaned bool `json:"-"`
}

// Checkpoint is a scheduler-raised pause point requiring an explicit
// operator decision before execution resumes.
type Checkpoint struct {
	TaskID  string `json:"taskId,omitempty"`
	Message string `json:"message"`
}

// State is the scheduler's persisted state: current phase, the active task
// if any, the pending checkpoint, and the run-event timeline.
type State struct {
	Phase       Phase       `json:"phase"`
	ActiveTask  string      `json:"activeTask,omitempty"`
	Consecutive int         `json:"consecutive,omitempty"`
	Pending     *Checkpoint `json:"pendingCheckpoint,omitempty"`
	Events      []Event     `json:"events"`
	NextSeq     int         `json:"nextSeq"`
}

// NewState returns an idle scheduler state with an empty timeline.
func NewState() *State {
	return &State{Phase: PhaseIdle, NextSeq: 1}
}

// Append adds a timeline entry and returns it. The log is monotonically
// append-only.
func (s *State) Append(t EventType, taskID, message string, now time.Time) Event {
	ev := Event{
		ID:      fmt.Sprintf("evt-%d", s.NextSeq),
		Time:    now,
		Type:    t,
		TaskID:  taskID,
		Message: message,
	}
	s.NextSeq++
	s.Events = append(s.Events, ev)
	return ev
}

// MarkOrphans annotates timeline entries whose task ID no longer resolves.
// It returns one warning per orphaned entry and never removes anything.
func MarkOrphans(s *State, resolves func(id string) bool) []string {
	var warnings []string
	for i := range s.Events {
		ev := &s.Events[i]
		if ev.TaskID == "" {
			continue
		}
		if !resolves(ev.TaskID) {
			ev.Orphaned = true
			warnings = append(warnings, fmt.Sprintf("event %s references unknown task %q", ev.ID, ev.TaskID))
		}
	}
	return warnings
}
