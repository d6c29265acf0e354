package reconcile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodflow/internal/runloop"
	"prodflow/internal/snapshot"
	"prodflow/internal/task"
	"prodflow/internal/workflow"
)

func writeTask(t *testing.T, dir, name, id, status string) {
	t.Helper()
	content := "---\nid: \"" + id + "\"\nstatus: " + status + "\n---\n# Task " + id + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func allExist(workflow.Artifact) bool { return true }

func TestReconcile_FirstRun(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "1", "open")

	res := Reconcile("checkout", tmpDir, nil, allExist)

	assert.Empty(t, res.Warnings)
	assert.Equal(t, "checkout", res.State.Feature)
	assert.Equal(t, workflow.StagePlan, res.State.CurrentStage)
	assert.Equal(t, runloop.PhaseIdle, res.Run.Phase)
	assert.Len(t, res.Tasks.Items, 1)
}

func TestReconcile_SnapshotWorkflowFieldsWin(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "1", "done")

	wf := workflow.NewState("checkout")
	wf.CurrentStage = workflow.StageImplement
	wf.RecordApproval(workflow.ArtifactPRD, workflow.Approved, "", "pm")
	wf.View.Board = true
	snap := &snapshot.Document{SchemaVersion: snapshot.SchemaVersion, Feature: "checkout", Workflow: wf, Run: runloop.NewState()}

	res := Reconcile("checkout", tmpDir, snap, allExist)

	assert.Equal(t, workflow.StageImplement, res.State.CurrentStage)
	assert.True(t, res.State.View.Board)
	_, ok := res.State.Approval(workflow.ArtifactPRD)
	assert.True(t, ok)
}

func TestReconcile_TaskDataAlwaysFromFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "1", "open")

	// The snapshot timeline claims task 1 completed; the file says open.
	run := runloop.NewState()
	appendEvent(run, runloop.EventTaskDone, "1", "task 1 done")
	snap := &snapshot.Document{SchemaVersion: snapshot.SchemaVersion, Feature: "checkout", Workflow: workflow.NewState("checkout"), Run: run}

	res := Reconcile("checkout", tmpDir, snap, allExist)

	item, ok := res.Tasks.Get("1")
	require.True(t, ok)
	assert.Equal(t, task.StatusOpen, item.Status)

	// Same task-derived fields as a fresh load of the files alone.
	fresh, err := task.Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, fresh.Items, res.Tasks.Items)
}

func TestReconcile_OrphanedEventsKeptAndFlagged(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "1", "done")

	run := runloop.NewState()
	appendEvent(run, runloop.EventTaskDone, "1", "task 1 done")
	appendEvent(run, runloop.EventTaskDone, "7", "task 7 done")
	snap := &snapshot.Document{SchemaVersion: snapshot.SchemaVersion, Feature: "checkout", Workflow: workflow.NewState("checkout"), Run: run}

	res := Reconcile("checkout", tmpDir, snap, allExist)

	require.Len(t, res.Run.Events, 2)
	assert.False(t, res.Run.Events[0].Orphaned)
	assert.True(t, res.Run.Events[1].Orphaned)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], `unknown task "7"`)
}

func TestReconcile_StaleApprovalWarned(t *testing.T) {
	tmpDir := t.TempDir()

	wf := workflow.NewState("checkout")
	wf.RecordApproval(workflow.ArtifactDesign, workflow.Approved, "", "lead")
	snap := &snapshot.Document{SchemaVersion: snapshot.SchemaVersion, Feature: "checkout", Workflow: wf, Run: runloop.NewState()}

	res := Reconcile("checkout", tmpDir, snap, func(workflow.Artifact) bool { return false })

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "design") && strings.Contains(w, "stale") {
			found = true
		}
	}
	assert.True(t, found, "expected a stale approval warning, got %v", res.Warnings)
	// The record itself is kept; staleness is advisory.
	_, ok := res.State.Approval(workflow.ArtifactDesign)
	assert.True(t, ok)
}

func TestReconcile_ActiveRunDemotedToIdle(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "1", "open")

	run := runloop.NewState()
	run.Phase = runloop.PhaseRunning
	run.ActiveTask = "1"
	snap := &snapshot.Document{SchemaVersion: snapshot.SchemaVersion, Feature: "checkout", Workflow: workflow.NewState("checkout"), Run: run}

	res := Reconcile("checkout", tmpDir, snap, allExist)

	assert.Equal(t, runloop.PhaseIdle, res.Run.Phase)
	assert.Empty(t, res.Run.ActiveTask)
	assert.Contains(t, res.Warnings[0], "active run")
}

func TestReconcile_ArbitraryDriftNeverPanics(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "1", "open")
	writeTask(t, tmpDir, "02.md", "", "open") // malformed: no id

	wf := &workflow.State{
		Feature:      "other-feature",
		CurrentStage: workflow.Stage("galaxy-brain"),
		Approvals: map[workflow.Artifact]workflow.ApprovalRecord{
			workflow.Artifact("napkin"): {Status: workflow.Approved},
		},
	}
	run := &runloop.State{
		Phase:   runloop.Phase("warp"),
		Events:  []runloop.Event{{ID: "evt-1", Type: runloop.EventTaskDone, TaskID: "99"}},
		NextSeq: 0,
	}
	snap := &snapshot.Document{SchemaVersion: snapshot.SchemaVersion, Feature: "other-feature", Workflow: wf, Run: run}

	res := Reconcile("checkout", tmpDir, snap, allExist)

	assert.Equal(t, "checkout", res.State.Feature)
	assert.Equal(t, workflow.StagePlan, res.State.CurrentStage)
	assert.Empty(t, res.State.Approvals)
	assert.Equal(t, runloop.PhaseIdle, res.Run.Phase)
	assert.Equal(t, 2, res.Run.NextSeq)
	assert.True(t, res.Run.Events[0].Orphaned)
	assert.NotEmpty(t, res.Warnings)
}

func TestReconcile_MissingTasksDirStillUsable(t *testing.T) {
	res := Reconcile("checkout", filepath.Join(t.TempDir(), "nope"), nil, allExist)

	require.NotNil(t, res.State)
	require.NotNil(t, res.Run)
	require.NotNil(t, res.Tasks)
	assert.NotEmpty(t, res.Warnings)
}

// appendEvent adds a timeline entry with a fixed timestamp.
func appendEvent(run *runloop.State, t runloop.EventType, taskID, msg string) {
	run.Append(t, taskID, msg, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}
