// Package workflow holds the stage-gating state machine for a feature.
//
// A feature moves through a fixed stage order (plan, design, tasks,
// implement, review). Forward motion is guarded by the active policy: each
// artifact-producing stage may require an explicit approval before the
// workflow can advance past it. The transition guard and the per-stage
// status derivation are pure functions over ([State], [policy.Policy]);
// nothing in this package touches the filesystem.
//
// Key types:
//   - [State] - per-feature workflow state (stage, approvals, view prefs)
//   - [ApprovalRecord] - one recorded approve/reject decision
//   - [Check] - result of a guarded transition test
package workflow

import "prodflow/internal/policy"

// Stage identifies one workflow stage.
type Stage string

// Workflow stages in order.
const (
	StagePlan      Stage = "plan"
	StageDesign    Stage = "design"
	StageTasks     Stage = "tasks"
	StageImplement Stage = "implement"
	StageReview    Stage = "review"
)

// Stages is the fixed stage order: plan < design < tasks < implement < review.
var Stages = []Stage{StagePlan, StageDesign, StageTasks, StageImplement, StageReview}

// Index returns the position of the stage in the fixed order, or -1 for an
// unknown stage value.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether the stage is one of the five known values.
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// Artifact identifies a sign-off artifact. Approvals are keyed by artifact,
// not by stage; the implement and review stages produce no artifact record.
type Artifact string

// Sign-off artifacts.
const (
	ArtifactPRD    Artifact = "prd"
	ArtifactDesign Artifact = "design"
	ArtifactTasks  Artifact = "tasks"
)

// Artifacts lists the sign-off artifacts in stage order.
var Artifacts = []Artifact{ArtifactPRD, ArtifactDesign, ArtifactTasks}

// IsValid reports whether the artifact is one of the known values.
func (a Artifact) IsValid() bool {
	switch a {
	case ArtifactPRD, ArtifactDesign, ArtifactTasks:
		return true
	default:
		return false
	}
}

// ArtifactForStage returns the sign-off artifact produced by a stage. The
// boolean is false for stages without one (implement, review).
func ArtifactForStage(s Stage) (Artifact, bool) {
	switch s {
	case StagePlan:
		return ArtifactPRD, true
	case StageDesign:
		return ArtifactDesign, true
	case StageTasks:
		return ArtifactTasks, true
	default:
		return "", false
	}
}

// StageForArtifact returns the stage that produces an artifact.
func StageForArtifact(a Artifact) (Stage, bool) {
	switch a {
	case ArtifactPRD:
		return StagePlan, true
	case ArtifactDesign:
		return StageDesign, true
	case ArtifactTasks:
		return StageTasks, true
	default:
		return "", false
	}
}

// gateRequired reports whether the active policy requires an approval for
// the artifact of the given stage.
func gateRequired(pol policy.Policy, s Stage) bool {
	switch s {
	case StagePlan:
		return pol.Gates.Plan
	case StageDesign:
		return pol.Gates.Design
	case StageTasks:
		return pol.Gates.Tasks
	case StageReview:
		return pol.Gates.Review
	default:
		return false
	}
}
