package agent

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Parser parses the agent's stream-json output into [Event] values.
//
// Each line of output is expected to be a complete JSON object. Empty lines
// and lines that fail to parse are skipped so partial or corrupted output
// never aborts a run. The channel returned by Parse closes on EOF, reader
// close, or an unrecoverable scan error.
type Parser interface {
	Parse(reader io.Reader) <-chan Event
}

// DefaultParser implements [Parser] with a buffered line scanner.
//
// BufferSize bounds the maximum JSON line length; agents can emit large
// objects (file contents in tool results), so the default is 10MB.
type DefaultParser struct {
	BufferSize int
}

// NewParser creates a [DefaultParser] with the default buffer size.
func NewParser() *DefaultParser {
	return &DefaultParser{BufferSize: 10 * 1024 * 1024}
}

// Parse reads stream-json lines from the reader and emits parsed events on
// the returned channel. Parsing runs in a goroutine; the channel closes when
// the reader is exhausted.
func (p *DefaultParser) Parse(reader io.Reader) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		scanner := bufio.NewScanner(reader)
		bufSize := p.BufferSize
		if bufSize <= 0 {
			bufSize = 10 * 1024 * 1024
		}
		buf := make([]byte, 0, 1024*1024)
		scanner.Buffer(buf, bufSize)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			var raw StreamEvent
			if err := json.Unmarshal([]byte(line), &raw); err != nil {
				continue
			}
			events <- convert(raw)
		}
	}()

	return events
}

// convert reduces a raw stream event to the fields classification needs.
func convert(raw StreamEvent) Event {
	ev := Event{Type: raw.Type}
	if raw.Type == "result" {
		ev.SessionComplete = true
	}
	if raw.Message != nil {
		var parts []string
		for _, block := range raw.Message.Content {
			if block.Type == "text" && block.Text != "" {
				parts = append(parts, block.Text)
			}
		}
		ev.Text = strings.Join(parts, "\n")
	}
	return ev
}

// Classify scans a step's text output for sentinel markers and produces the
// [StepResult] the scheduler consumes.
//
// An uncertainty marker anywhere in the stream wins over a failed-checks
// marker. When no marker appears, the result is [OutcomeDone] with an empty
// message; the caller overlays the process exit code on top of that.
func Classify(events <-chan Event) StepResult {
	result := StepResult{Outcome: OutcomeDone}
	for ev := range events {
		if ev.Text == "" {
			continue
		}
		for _, line := range strings.Split(ev.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if msg, ok := strings.CutPrefix(trimmed, UncertaintyMarker); ok {
				return drain(events, StepResult{Outcome: OutcomeUncertain, Message: strings.TrimSpace(msg)})
			}
			if msg, ok := strings.CutPrefix(trimmed, ChecksFailedMarker); ok && result.Outcome == OutcomeDone {
				result = StepResult{Outcome: OutcomeFailedChecks, Message: strings.TrimSpace(msg)}
			}
		}
	}
	return result
}

// drain consumes the remaining events so the producing goroutine can exit,
// then returns the already-decided result.
func drain(events <-chan Event, r StepResult) StepResult {
	for range events {
	}
	return r
}
