package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"prodflow/internal/policy"
	"prodflow/internal/review"
	"prodflow/internal/runloop"
	"prodflow/internal/task"
	"prodflow/internal/workflow"
)

// Styles holds the lipgloss styles for terminal rendering.
type Styles struct {
	Title    lipgloss.Style
	Heading  lipgloss.Style
	Current  lipgloss.Style
	Approved lipgloss.Style
	Blocked  lipgloss.Style
	Active   lipgloss.Style
	Muted    lipgloss.Style
	Warning  lipgloss.Style

	Width int
}

// NewStyles builds the style set. With color disabled all styles render
// plain text, which keeps test output and piped output stable.
func NewStyles(color bool, width int) *Styles {
	if width <= 0 {
		width = 80
	}
	s := &Styles{
		Title:    lipgloss.NewStyle(),
		Heading:  lipgloss.NewStyle(),
		Current:  lipgloss.NewStyle(),
		Approved: lipgloss.NewStyle(),
		Blocked:  lipgloss.NewStyle(),
		Active:   lipgloss.NewStyle(),
		Muted:    lipgloss.NewStyle(),
		Warning:  lipgloss.NewStyle(),
		Width:    width,
	}
	if color {
		s.Title = lipgloss.NewStyle().Bold(true)
		s.Heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
		s.Current = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
		s.Approved = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
		s.Blocked = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
		s.Active = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
		s.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
		s.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	}
	return s
}

func (s *Styles) stageStyle(status workflow.StageStatus) lipgloss.Style {
	switch status {
	case workflow.StatusApproved, workflow.StatusDone:
		return s.Approved
	case workflow.StatusBlocked:
		return s.Blocked
	case workflow.StatusInProgress:
		return s.Current
	case workflow.StatusNeedsApproval:
		return s.Active
	default:
		return s.Muted
	}
}

// renderBoard writes the stage board: each stage with its derived status,
// the current stage marked.
func renderBoard(w io.Writer, sess *session, pol policy.Policy, probe workflow.ArtifactProbe, s *Styles) {
	fmt.Fprintln(w, s.Title.Render("Feature: "+sess.Workflow.Feature))
	fmt.Fprintln(w)

	for _, stage := range workflow.Stages {
		status := workflow.StageStatusFor(stage, sess.Workflow, pol, probe)
		marker := "  "
		if stage == sess.Workflow.CurrentStage {
			marker = s.Current.Render("> ")
		}
		line := fmt.Sprintf("%s%-10s %s", marker, stage, s.stageStyle(status).Render(string(status)))
		fmt.Fprintln(w, line)
	}
}

// renderTasks writes the three task groups in descriptor order.
func renderTasks(w io.Writer, list *task.List, selected string, s *Styles) {
	groups := []struct {
		name  string
		items []task.Item
	}{
		{string(task.GroupTodo), list.Todo},
		{string(task.GroupInProgress), list.InProgress},
		{string(task.GroupDone), list.Done},
	}

	for _, g := range groups {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%d)\n", s.Heading.Render(g.name), len(g.items))
		for _, it := range g.items {
			fmt.Fprintf(w, "%s %-6s %s%s\n", selectMarker(it.ID, selected, s), it.ID, it.Title, taskSuffix(it, s))
		}
	}
}

// renderTaskList writes every task as one flat line with its group tag.
func renderTaskList(w io.Writer, list *task.List, selected string, s *Styles) {
	fmt.Fprintln(w)
	if len(list.Items) == 0 {
		fmt.Fprintln(w, s.Muted.Render("no tasks"))
		return
	}
	for _, it := range list.Items {
		group := s.Muted.Render(fmt.Sprintf("%-11s", it.Group()))
		fmt.Fprintf(w, "%s %-6s %s %s%s\n", selectMarker(it.ID, selected, s), it.ID, group, it.Title, taskSuffix(it, s))
	}
}

func selectMarker(id, selected string, s *Styles) string {
	if selected != "" && id == selected {
		return s.Current.Render(">")
	}
	return " "
}

func taskSuffix(it task.Item, s *Styles) string {
	suffix := ""
	if it.Blocked() {
		suffix = " " + s.Blocked.Render("[blocked]")
	}
	if len(it.MissingDeps) > 0 {
		suffix += " " + s.Warning.Render("[missing deps: "+strings.Join(it.MissingDeps, ", ")+"]")
	}
	return suffix
}

// renderWarnings writes accumulated non-fatal warnings, if any.
func renderWarnings(w io.Writer, warnings []string, s *Styles) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, warning := range warnings {
		fmt.Fprintln(w, s.Warning.Render("warning: "+warning))
	}
}

// renderEvents writes the run-event timeline, annotating orphaned entries.
func renderEvents(w io.Writer, events []runloop.Event, s *Styles) {
	if len(events) == 0 {
		fmt.Fprintln(w, s.Muted.Render("no run events recorded"))
		return
	}
	for _, ev := range events {
		taskRef := ""
		if ev.TaskID != "" {
			taskRef = " [" + ev.TaskID + "]"
		}
		line := fmt.Sprintf("%-8s %s %-13s%s %s", ev.ID, formatTime(ev.Time), ev.Type, taskRef, ev.Message)
		if ev.Orphaned {
			line += " " + s.Warning.Render("(orphaned)")
		}
		fmt.Fprintln(w, line)
	}
}

// renderChanges writes the changed-file listing.
func renderChanges(w io.Writer, files []review.File, s *Styles) {
	if len(files) == 0 {
		fmt.Fprintln(w, s.Muted.Render("no changed files"))
		return
	}
	for _, f := range files {
		var letter string
		switch f.Status {
		case review.StatusAdded:
			letter = s.Approved.Render("A")
		case review.StatusDeleted:
			letter = s.Blocked.Render("D")
		default:
			letter = s.Current.Render("M")
		}
		fmt.Fprintf(w, "%s %s\n", letter, f.Path)
	}
}

// renderCheckpoint writes a pending checkpoint notice.
func renderCheckpoint(w io.Writer, cp *runloop.Checkpoint, s *Styles) {
	if cp == nil {
		return
	}
	ref := ""
	if cp.TaskID != "" {
		ref = " (task " + cp.TaskID + ")"
	}
	fmt.Fprintln(w, s.Blocked.Render("checkpoint")+ref+": "+cp.Message)
	fmt.Fprintln(w, s.Muted.Render("resolve and run 'prodflow ack' to return to idle"))
}
