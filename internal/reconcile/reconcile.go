// Package reconcile rebuilds authoritative state at process startup.
//
// Precedence is fixed: task status and dependency data always come from a
// fresh task repository read; the persisted snapshot is authoritative only
// for workflow fields (stage, approvals, view preferences) and the run
// timeline, which have no file-backed equivalent. Timeline entries whose
// task no longer exists are kept and annotated as orphaned.
//
// Reconcile never fails: every inconsistency it detects becomes a warning
// and the result is always a usable state, whatever drift the inputs carry.
package reconcile

import (
	"fmt"

	"prodflow/internal/runloop"
	"prodflow/internal/snapshot"
	"prodflow/internal/task"
	"prodflow/internal/workflow"
)

// Result is the reconciled startup state of a feature.
type Result struct {
	// State is the workflow state, reconstructed from the snapshot or
	// freshly created when none was usable.
	State *workflow.State

	// Run is the scheduler state with the timeline's orphan annotations
	// applied. A snapshot claiming an active run is demoted to idle: no
	// step survives a restart.
	Run *runloop.State

	// Tasks is the fresh task repository read used as the authority.
	Tasks *task.List

	// Warnings lists every detected inconsistency, for non-fatal display.
	Warnings []string
}

// Reconcile merges a fresh task repository read with a persisted snapshot.
//
// snap may be nil (first run, or the snapshot was unreadable). probe may be
// nil when artifact existence cannot be checked; stale-approval detection is
// skipped in that case.
func Reconcile(feature, tasksDir string, snap *snapshot.Document, probe workflow.ArtifactProbe) Result {
	var warnings []string

	tasks, err := task.Load(tasksDir)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("tasks: %v", err))
		tasks = &task.List{}
	}
	if tasks.Warning != "" {
		warnings = append(warnings, "tasks: "+tasks.Warning)
	}

	state, wfWarnings := reconcileWorkflow(feature, snap, probe)
	warnings = append(warnings, wfWarnings...)

	run, runWarnings := reconcileRun(snap)
	warnings = append(warnings, runWarnings...)

	warnings = append(warnings, runloop.MarkOrphans(run, func(id string) bool {
		_, ok := tasks.Get(id)
		return ok
	})...)

	return Result{State: state, Run: run, Tasks: tasks, Warnings: warnings}
}

func reconcileWorkflow(feature string, snap *snapshot.Document, probe workflow.ArtifactProbe) (*workflow.State, []string) {
	if snap == nil || snap.Workflow == nil {
		return workflow.NewState(feature), nil
	}

	var warnings []string
	state := snap.Workflow

	if state.Feature != feature {
		warnings = append(warnings, fmt.Sprintf("snapshot belongs to feature %q, adopting for %q", state.Feature, feature))
		state.Feature = feature
	}
	if !state.CurrentStage.IsValid() {
		warnings = append(warnings, fmt.Sprintf("snapshot stage %q is unknown, resetting to plan", state.CurrentStage))
		state.CurrentStage = workflow.StagePlan
	}

	for art, rec := range state.Approvals {
		if !art.IsValid() {
			warnings = append(warnings, fmt.Sprintf("dropping approval for unknown artifact %q", art))
			delete(state.Approvals, art)
			continue
		}
		if probe != nil && !probe(art) {
			warnings = append(warnings, fmt.Sprintf("approval for artifact %q (%s) is stale: artifact file no longer exists", art, rec.Status))
		}
	}
	if state.Approvals == nil {
		state.Approvals = make(map[workflow.Artifact]workflow.ApprovalRecord)
	}

	return state, warnings
}

func reconcileRun(snap *snapshot.Document) (*runloop.State, []string) {
	if snap == nil || snap.Run == nil {
		return runloop.NewState(), nil
	}

	var warnings []string
	run := snap.Run

	switch run.Phase {
	case runloop.PhaseIdle, runloop.PhasePaused, runloop.PhaseBlocked:
	case runloop.PhaseRunning:
		// No step is in flight after a restart; a snapshot claiming an
		// active run is stale.
		warnings = append(warnings, "snapshot recorded an active run; demoting to idle")
		run.Phase = runloop.PhaseIdle
		run.ActiveTask = ""
	default:
		warnings = append(warnings, fmt.Sprintf("snapshot run phase %q is unknown, resetting to idle", run.Phase))
		run.Phase = runloop.PhaseIdle
		run.ActiveTask = ""
	}

	if run.Phase == runloop.PhaseBlocked && run.Pending == nil {
		warnings = append(warnings, "snapshot is blocked without a pending checkpoint")
	}
	if run.NextSeq < len(run.Events)+1 {
		warnings = append(warnings, fmt.Sprintf("snapshot event sequence %d behind timeline length %d, repairing", run.NextSeq, len(run.Events)))
		run.NextSeq = len(run.Events) + 1
	}

	return run, warnings
}
