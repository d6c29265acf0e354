package workflow

import (
	"time"

	"prodflow/internal/policy"
)

// Decision is the outcome recorded for an artifact. There is no implicit
// "approved" default: an artifact either has a recorded decision or none.
type Decision string

// Approval decisions.
const (
	Approved Decision = "approved"
	Rejected Decision = "rejected"
)

// ApprovalRecord is one recorded approve/reject decision for an artifact.
//
// Records are immutable once written. A new decision for the same artifact
// supersedes the prior record entirely; history is not kept.
type ApprovalRecord struct {
	Status    Decision  `json:"status"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewPrefs holds UI view preferences carried with the workflow state.
type ViewPrefs struct {
	// Board toggles the board layout instead of the list layout.
	Board bool `json:"board,omitempty"`

	// SelectedTask is the ID of the currently selected task, if any.
	SelectedTask string `json:"selectedTask,omitempty"`

	// SelectedPath is the currently selected file path, if any.
	SelectedPath string `json:"selectedPath,omitempty"`
}

// State is the workflow state of one feature.
//
// Created on first open of a feature, mutated only by explicit approve,
// reject, transition, and view-toggle actions, and reconstructed (not
// recreated) on restart by the reconciliation service.
type State struct {
	// Feature is the feature name this state belongs to.
	Feature string `json:"feature"`

	// CurrentStage is the stage the feature is in.
	CurrentStage Stage `json:"currentStage"`

	// Approvals holds the recorded decision per artifact. Zero to three
	// entries keyed by artifact.
	Approvals map[Artifact]ApprovalRecord `json:"approvals,omitempty"`

	// View holds UI view preferences.
	View ViewPrefs `json:"view"`
}

// NewState creates the initial workflow state for a feature, starting at the
// plan stage with no approvals recorded.
func NewState(feature string) *State {
	return &State{
		Feature:      feature,
		CurrentStage: StagePlan,
		Approvals:    make(map[Artifact]ApprovalRecord),
	}
}

// RecordApproval writes a decision for an artifact and returns the record.
//
// It always succeeds and always overwrites any prior record for the same
// artifact. The new record takes effect only for transitions evaluated after
// it is written; completed transitions are never re-evaluated.
func (s *State) RecordApproval(artifact Artifact, decision Decision, note, actor string) ApprovalRecord {
	rec := ApprovalRecord{
		Status:    decision,
		Note:      note,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	}
	if s.Approvals == nil {
		s.Approvals = make(map[Artifact]ApprovalRecord)
	}
	s.Approvals[artifact] = rec
	return rec
}

// Approval returns the recorded decision for an artifact, if any.
func (s *State) Approval(artifact Artifact) (ApprovalRecord, bool) {
	rec, ok := s.Approvals[artifact]
	return rec, ok
}

// InvalidateApproval clears the approval for an artifact edited after its
// decision was recorded. It only acts when the policy's reapproveOnEdit bit
// is set and the edit postdates the recorded decision; it reports whether a
// record was cleared.
func (s *State) InvalidateApproval(artifact Artifact, editedAt time.Time, pol policy.Policy) bool {
	if !pol.Execution.ReapproveOnEdit {
		return false
	}
	rec, ok := s.Approvals[artifact]
	if !ok || !editedAt.After(rec.Timestamp) {
		return false
	}
	delete(s.Approvals, artifact)
	return true
}
