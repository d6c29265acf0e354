// Package agent runs implementation task steps through the external coding
// agent CLI and classifies their outcome.
//
// The agent is spawned as a subprocess emitting stream-json output: one JSON
// object per line. The package parses that stream, mirrors the agent's text
// to the terminal, and scans it for the sentinel markers a step uses to
// signal trouble ([ChecksFailedMarker], [UncertaintyMarker]). The scheduler
// consumes only the resulting [StepResult]; everything else about the agent
// process is opaque at that layer.
//
// For testing, use [MockExecutor] which implements [Executor] without
// spawning real processes.
package agent

// Outcome classifies how a task step ended.
type Outcome string

// Step outcomes.
const (
	// OutcomeDone means the step completed and its checks passed.
	OutcomeDone Outcome = "done"

	// OutcomeFailedChecks means the step reported a quality-check failure
	// or the agent process exited non-zero.
	OutcomeFailedChecks Outcome = "failed_checks"

	// OutcomeUncertain means the step raised an explicit uncertainty
	// signal and needs an operator decision.
	OutcomeUncertain Outcome = "uncertain"
)

// StepResult is the classified outcome of one task step.
type StepResult struct {
	Outcome Outcome

	// Message is the human-readable detail accompanying the outcome.
	// For failed or uncertain steps it carries the text after the marker.
	Message string
}

// Sentinel markers a step's output uses to signal its condition. An
// uncertainty marker takes precedence over a failed checks marker regardless
// of order in the stream.
const (
	ChecksFailedMarker = "CHECKS FAILED:"
	UncertaintyMarker  = "UNCERTAIN:"
)

// StreamEvent is one raw JSON line of the agent's stream-json output.
type StreamEvent struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype,omitempty"`
	Message *MessageContent `json:"message,omitempty"`
}

// MessageContent holds the content blocks of an assistant message.
type MessageContent struct {
	Content []ContentBlock `json:"content,omitempty"`
}

// ContentBlock is a single block within a message. Only text blocks matter
// for outcome classification; tool blocks are mirrored for display only.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

// Event is a parsed, simplified stream event.
type Event struct {
	// Type is the raw event type ("system", "assistant", "result").
	Type string

	// Text is the concatenated text content of an assistant event.
	Text string

	// SessionComplete is true for the final result event.
	SessionComplete bool
}
