package workflow

import (
	"fmt"

	"prodflow/internal/policy"
)

// Check is the result of a guarded transition test. When Allowed is false,
// Reason names the first unmet requirement in stage order.
type Check struct {
	Allowed bool
	Reason  string
}

// CanTransition tests whether the feature may move to the target stage under
// the active policy.
//
// Moving backward (or staying put) is always allowed; gates guard forward
// motion only. Forward motion is limited to the immediate next stage, and
// every gate the policy requires for stages before the target must hold an
// approved record. The guard is pure: it never mutates state.
func CanTransition(s *State, target Stage, pol policy.Policy) Check {
	if !target.IsValid() {
		return Check{Reason: fmt.Sprintf("unknown stage %q", target)}
	}

	cur := s.CurrentStage.Index()
	tgt := target.Index()

	if tgt <= cur {
		return Check{Allowed: true}
	}
	if tgt > cur+1 {
		return Check{Reason: fmt.Sprintf("cannot skip from %s to %s: stages advance one at a time", s.CurrentStage, target)}
	}

	return gatesBefore(s, target, pol)
}

// GatesSatisfied tests the approval gates that guard entry into a stage,
// independent of the current stage. The run-loop scheduler uses this to
// confirm the implement stage's gates before starting.
func GatesSatisfied(s *State, target Stage, pol policy.Policy) Check {
	return gatesBefore(s, target, pol)
}

// gatesBefore checks every required gate for stages before target, in stage
// order, reporting the first unmet one.
func gatesBefore(s *State, target Stage, pol policy.Policy) Check {
	for _, stage := range Stages {
		if stage.Index() >= target.Index() {
			break
		}
		art, ok := ArtifactForStage(stage)
		if !ok || !gateRequired(pol, stage) {
			continue
		}
		rec, ok := s.Approval(art)
		if !ok {
			return Check{Reason: fmt.Sprintf("%s gate: artifact %q has no recorded approval", stage, art)}
		}
		if rec.Status != Approved {
			return Check{Reason: fmt.Sprintf("%s gate: artifact %q was rejected", stage, art)}
		}
	}
	return Check{Allowed: true}
}

// StageStatus is the derived display status of one stage.
type StageStatus string

// Derived stage statuses.
const (
	StatusDraft         StageStatus = "Draft"
	StatusNeedsApproval StageStatus = "Needs Approval"
	StatusApproved      StageStatus = "Approved"
	StatusInProgress    StageStatus = "In Progress"
	StatusBlocked       StageStatus = "Blocked"
	StatusDone          StageStatus = "Done"
)

// ArtifactProbe reports whether an artifact file exists for the feature.
// The derivation never reads files itself; existence is supplied by the
// caller so the function stays pure.
type ArtifactProbe func(Artifact) bool

// StageStatusFor derives the display status of a stage.
//
// Rules, in precedence order: a rejected approval is Blocked and an approved
// one is Approved (or Done once a later stage is current); the current stage
// without a decision is Needs Approval when its artifact exists and the gate
// requires sign-off, otherwise In Progress; a passed stage without a required
// decision is Needs Approval, otherwise Done; a future stage is Draft until
// its artifact exists and a required gate makes it Needs Approval.
func StageStatusFor(stage Stage, s *State, pol policy.Policy, exists ArtifactProbe) StageStatus {
	art, hasArtifact := ArtifactForStage(stage)

	if hasArtifact {
		if rec, ok := s.Approval(art); ok {
			if rec.Status == Rejected {
				return StatusBlocked
			}
			if s.CurrentStage.Index() > stage.Index() {
				return StatusDone
			}
			return StatusApproved
		}
	}

	artifactExists := hasArtifact && exists != nil && exists(art)
	required := gateRequired(pol, stage)

	switch {
	case stage == s.CurrentStage:
		if artifactExists && required {
			return StatusNeedsApproval
		}
		return StatusInProgress
	case stage.Index() < s.CurrentStage.Index():
		if hasArtifact && required {
			return StatusNeedsApproval
		}
		return StatusDone
	default:
		if artifactExists && required {
			return StatusNeedsApproval
		}
		return StatusDraft
	}
}
