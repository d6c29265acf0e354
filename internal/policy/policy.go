// Package policy loads and validates the approval-gate policy for a feature.
//
// The policy is a small versioned JSON document that declares which workflow
// artifacts require explicit sign-off before a stage transition is permitted,
// plus a handful of run-loop execution switches.
//
// Loading never fails hard: a missing file yields the built-in strict default
// silently, and a malformed or schema-invalid file yields the same default
// together with a warning string for the caller to surface. The system must
// never operate with an undefined policy.
//
// Key types:
//   - [Policy] is the active policy document
//   - [Gates] declares per-artifact approval requirements
//   - [Execution] holds run-loop behavior switches
package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

// SchemaVersion is the only policy document version this build understands.
const SchemaVersion = 1

// Mode controls how strictly gates are interpreted.
type Mode string

// Valid policy modes.
const (
	ModeStrict Mode = "strict"
	ModeSoft   Mode = "soft"
	ModeMixed  Mode = "mixed"
)

// IsValid reports whether the mode is one of the known values.
func (m Mode) IsValid() bool {
	switch m {
	case ModeStrict, ModeSoft, ModeMixed:
		return true
	default:
		return false
	}
}

// Gates declares which artifact stages require an approved sign-off before
// the workflow may advance past them.
type Gates struct {
	Plan   bool `json:"plan"`
	Design bool `json:"design"`
	Tasks  bool `json:"tasks"`
	Review bool `json:"review"`
}

// Execution holds the run-loop behavior switches.
type Execution struct {
	// AutoRunLoop enables continuous execution: after a task completes the
	// scheduler immediately picks the next ready task. When false, each
	// step must be triggered explicitly.
	AutoRunLoop bool `json:"autoRunLoop"`

	// StopOnFailedChecks blocks the run loop when a task step reports a
	// quality-check failure.
	StopOnFailedChecks bool `json:"stopOnFailedChecks"`

	// StopOnUncertainty blocks the run loop when a task step raises an
	// uncertainty signal.
	StopOnUncertainty bool `json:"stopOnUncertainty"`

	// MaxConsecutiveTasks caps how many tasks run before the scheduler
	// raises a checkpoint. Zero means no cap.
	MaxConsecutiveTasks int `json:"maxConsecutiveTasks,omitempty"`

	// ReapproveOnEdit resets an artifact's approval when the artifact file
	// is edited after the approval was recorded.
	ReapproveOnEdit bool `json:"reapproveOnEdit,omitempty"`
}

// Policy is the active approval-gate policy for a feature.
type Policy struct {
	Version   int       `json:"version"`
	Mode      Mode      `json:"mode"`
	Gates     Gates     `json:"gates"`
	Execution Execution `json:"execution"`
}

// Default returns the built-in strict policy: every gate required, the run
// loop enabled, and both stop conditions active.
func Default() Policy {
	return Policy{
		Version: SchemaVersion,
		Mode:    ModeStrict,
		Gates: Gates{
			Plan:   true,
			Design: true,
			Tasks:  true,
			Review: true,
		},
		Execution: Execution{
			AutoRunLoop:        true,
			StopOnFailedChecks: true,
			StopOnUncertainty:  true,
		},
	}
}

// Load reads and validates the policy document at path.
//
// A missing file returns [Default] with no warning. A file that cannot be
// parsed as JSON, or that fails schema validation, returns [Default] together
// with a non-empty warning describing the problem. Load never returns an
// error for those conditions; validation failure is a recoverable, reported
// state, not a fatal one.
func Load(path string) (Policy, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), ""
		}
		return Default(), fmt.Sprintf("policy %s: %v, using strict default", path, err)
	}

	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Sprintf("policy %s: invalid JSON: %v, using strict default", path, err)
	}

	if err := p.Validate(); err != nil {
		return Default(), fmt.Sprintf("policy %s: %v, using strict default", path, err)
	}

	return p, ""
}

// Validate checks the policy against the fixed schema.
func (p Policy) Validate() error {
	if p.Version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", p.Version, SchemaVersion)
	}
	if !p.Mode.IsValid() {
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	if p.Execution.MaxConsecutiveTasks < 0 {
		return fmt.Errorf("maxConsecutiveTasks must not be negative")
	}
	return nil
}
