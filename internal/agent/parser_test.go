package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"system","subtype":"init"}`,
		``,
		`not json at all`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"working"}]}}`,
		`{"type":"result"}`,
	}, "\n")

	var events []Event
	for ev := range NewParser().Parse(strings.NewReader(input)) {
		events = append(events, ev)
	}

	require.Len(t, events, 3)
	assert.Equal(t, "system", events[0].Type)
	assert.Equal(t, "working", events[1].Text)
	assert.True(t, events[2].SessionComplete)
}

func TestParse_JoinsTextBlocks(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"text","text":"a"},{"type":"tool_use","name":"bash"},{"type":"text","text":"b"}]}}`

	events := NewParser().Parse(strings.NewReader(input))
	ev := <-events

	assert.Equal(t, "a\nb", ev.Text)
}

// classify runs Classify over a synthetic event stream.
func classify(texts ...string) StepResult {
	events := make(chan Event)
	go func() {
		defer close(events)
		for _, text := range texts {
			events <- Event{Type: "assistant", Text: text}
		}
	}()
	return Classify(events)
}

func TestClassify_Done(t *testing.T) {
	result := classify("implementing", "all tests pass")

	assert.Equal(t, OutcomeDone, result.Outcome)
	assert.Empty(t, result.Message)
}

func TestClassify_FailedChecks(t *testing.T) {
	result := classify("running tests", "CHECKS FAILED: 2 unit tests failing in parser")

	assert.Equal(t, OutcomeFailedChecks, result.Outcome)
	assert.Equal(t, "2 unit tests failing in parser", result.Message)
}

func TestClassify_Uncertain(t *testing.T) {
	result := classify("UNCERTAIN: unclear which retry behavior is wanted")

	assert.Equal(t, OutcomeUncertain, result.Outcome)
	assert.Equal(t, "unclear which retry behavior is wanted", result.Message)
}

func TestClassify_UncertaintyWinsOverFailedChecks(t *testing.T) {
	result := classify("CHECKS FAILED: lint", "UNCERTAIN: which fix is wanted")

	assert.Equal(t, OutcomeUncertain, result.Outcome)
	assert.Equal(t, "which fix is wanted", result.Message)
}

func TestClassify_MarkerMustStartLine(t *testing.T) {
	result := classify("the step would print CHECKS FAILED: if something broke")

	assert.Equal(t, OutcomeDone, result.Outcome)
}

func TestMockExecutor(t *testing.T) {
	mock := &MockExecutor{
		Results: map[string]StepResult{
			"2": {Outcome: OutcomeUncertain, Message: "unclear"},
		},
	}

	r1 := mock.RunTask(context.Background(), "1", "first")
	r2 := mock.RunTask(context.Background(), "2", "second")

	assert.Equal(t, OutcomeDone, r1.Outcome)
	assert.Equal(t, OutcomeUncertain, r2.Outcome)
	assert.Equal(t, []string{"1", "2"}, mock.Calls)
}
