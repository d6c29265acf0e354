package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Executor runs one implementation task step to completion.
//
// RunTask blocks until the step finishes or the context is cancelled. The
// scheduler relies on this blocking behavior: it never has two steps in
// flight, and a cancelled context is reported as a failed step rather than
// a forcibly killed one surfacing as success.
type Executor interface {
	RunTask(ctx context.Context, taskID, title string) StepResult
}

// CLIExecutor implements [Executor] by spawning the coding agent CLI.
type CLIExecutor struct {
	// Binary is the agent CLI binary, resolved via PATH when bare.
	Binary string

	// Args are extra arguments placed before the prompt flag.
	Args []string

	// Out receives the agent's mirrored text output. Defaults to stdout.
	Out io.Writer

	// Parser parses the agent's stream output. Defaults to [NewParser].
	Parser Parser
}

// NewCLIExecutor creates a [CLIExecutor] for the given binary and extra args.
func NewCLIExecutor(binary string, args []string) *CLIExecutor {
	return &CLIExecutor{Binary: binary, Args: args}
}

// RunTask spawns the agent for one task and classifies its output.
//
// The step prompt instructs the agent to report trouble through the sentinel
// markers this package understands. A non-zero exit from the agent is
// reported as failed checks unless an explicit marker already decided the
// outcome.
func (e *CLIExecutor) RunTask(ctx context.Context, taskID, title string) StepResult {
	prompt := fmt.Sprintf(
		"Work on task %s: %s. Complete the task and run its checks. "+
			"If a check fails and you cannot fix it, print a line starting with %q. "+
			"If you are unsure how to proceed, print a line starting with %q and stop.",
		taskID, title, ChecksFailedMarker, UncertaintyMarker)

	args := append(append([]string{}, e.Args...), "-p", prompt, "--output-format", "stream-json")
	cmd := exec.CommandContext(ctx, e.Binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return StepResult{Outcome: OutcomeFailedChecks, Message: fmt.Sprintf("agent stdout pipe: %v", err)}
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return StepResult{Outcome: OutcomeFailedChecks, Message: fmt.Sprintf("agent start: %v", err)}
	}

	parser := e.Parser
	if parser == nil {
		parser = NewParser()
	}
	out := e.Out
	if out == nil {
		out = os.Stdout
	}

	result := Classify(mirror(parser.Parse(stdout), out))

	if err := cmd.Wait(); err != nil && result.Outcome == OutcomeDone {
		result = StepResult{Outcome: OutcomeFailedChecks, Message: fmt.Sprintf("agent step failed: %v", err)}
	}
	return result
}

// mirror forwards assistant text to out while passing events through.
func mirror(in <-chan Event, out io.Writer) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		for ev := range in {
			if ev.Type == "assistant" && ev.Text != "" {
				fmt.Fprintln(out, ev.Text)
			}
			events <- ev
		}
	}()
	return events
}

// MockExecutor implements [Executor] for tests without spawning processes.
type MockExecutor struct {
	// Results maps task ID to the result RunTask should return.
	Results map[string]StepResult

	// Default is returned for task IDs not present in Results.
	Default StepResult

	// Calls records the task IDs passed to RunTask, in order.
	Calls []string
}

// RunTask records the call and returns the configured result.
func (m *MockExecutor) RunTask(ctx context.Context, taskID, title string) StepResult {
	m.Calls = append(m.Calls, taskID)
	if r, ok := m.Results[taskID]; ok {
		return r
	}
	if m.Default.Outcome == "" {
		return StepResult{Outcome: OutcomeDone}
	}
	return m.Default
}
