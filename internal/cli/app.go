// Package cli implements the prodflow command-line interface.
//
// The package wires configuration, policy, snapshot persistence, and the
// run-loop scheduler behind a set of Cobra commands. All collaborators are
// injected through [App] so tests can substitute mocks for the agent
// executor, the diff source, and the file opener.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"prodflow/internal/agent"
	"prodflow/internal/config"
	"prodflow/internal/policy"
	"prodflow/internal/reconcile"
	"prodflow/internal/review"
	"prodflow/internal/runloop"
	"prodflow/internal/snapshot"
	"prodflow/internal/task"
	"prodflow/internal/workflow"
)

// App holds the dependencies for CLI commands.
//
// Commands access collaborators through this struct rather than constructing
// them, which allows tests to inject mock implementations.
type App struct {
	// Config is the loaded application configuration.
	Config *config.Config

	// Feature is the feature name, derived from the feature root directory.
	Feature string

	// Policy is the active approval-gate policy.
	Policy policy.Policy

	// PolicyWarning carries a non-fatal policy load warning, if any.
	PolicyWarning string

	// Store persists workflow and run state snapshots.
	Store *snapshot.Store

	// Executor runs individual tasks through the external agent.
	Executor agent.Executor

	// Diff produces the changed-file listing for review.
	Diff review.DiffSource

	// Opener dispatches view/diff/edit actions for review.
	Opener review.Opener

	// Out receives all human-readable command output.
	Out io.Writer

	// Styles renders terminal output.
	Styles *Styles
}

// NewApp constructs an App with production collaborators from configuration.
func NewApp(cfg *config.Config) (*App, error) {
	root, err := filepath.Abs(cfg.Feature.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving feature root: %w", err)
	}

	pol, warn := policy.Load(cfg.PolicyFile())

	return &App{
		Config:        cfg,
		Feature:       filepath.Base(root),
		Policy:        pol,
		PolicyWarning: warn,
		Store:         snapshot.NewStore(cfg.StatePath()),
		Executor:      agent.NewCLIExecutor(cfg.Agent.BinaryPath, cfg.Agent.Args),
		Diff:          &review.GitSource{Dir: root},
		Opener:        &shellOpener{out: os.Stdout, dir: root},
		Out:           os.Stdout,
		Styles:        NewStyles(cfg.Output.Color, cfg.Output.Width),
	}, nil
}

// session is the reconciled in-memory state a command operates on.
type session struct {
	Workflow *workflow.State
	Run      *runloop.State
	Tasks    *task.List
	Warnings []string
}

// loadState reads the persisted snapshot, reconciles it against the task
// directory, and applies approval invalidation for artifacts edited after
// their approval was recorded.
func (a *App) loadState() *session {
	snap, warn := a.Store.Load(a.Feature)

	res := reconcile.Reconcile(a.Feature, a.Config.TasksPath(), snap, a.ArtifactProbe())

	warnings := res.Warnings
	if warn != "" {
		warnings = append(warnings, warn)
	}
	if a.PolicyWarning != "" {
		warnings = append(warnings, a.PolicyWarning)
	}

	for _, art := range workflow.Artifacts {
		info, err := os.Stat(a.artifactFile(art))
		if err != nil {
			continue
		}
		if res.State.InvalidateApproval(art, info.ModTime(), a.Policy) {
			warnings = append(warnings, fmt.Sprintf("approval for %q reset: artifact edited after approval", art))
		}
	}

	return &session{
		Workflow: res.State,
		Run:      res.Run,
		Tasks:    res.Tasks,
		Warnings: warnings,
	}
}

// saveState persists the current workflow and run state.
func (a *App) saveState(sess *session) error {
	return a.Store.Save(a.Feature, sess.Workflow, sess.Run)
}

// ArtifactProbe reports whether a stage artifact file exists on disk.
func (a *App) ArtifactProbe() workflow.ArtifactProbe {
	return func(art workflow.Artifact) bool {
		_, err := os.Stat(a.artifactFile(art))
		return err == nil
	}
}

func (a *App) artifactFile(art workflow.Artifact) string {
	return filepath.Join(a.Config.ArtifactsPath(), string(art)+".md")
}

// scheduler builds a run-loop scheduler over the session state, wired to
// persist snapshots after every event.
func (a *App) scheduler(sess *session, pol policy.Policy) *runloop.Scheduler {
	sched := runloop.NewScheduler(sess.Workflow, pol, runloop.DirSource{Dir: a.Config.TasksPath()}, a.Executor)
	sched.Restore(sess.Run)
	sched.SetPersist(func(st *runloop.State) error {
		return a.Store.Save(a.Feature, sess.Workflow, st)
	})
	return sched
}

// formatTime renders an event timestamp for the timeline listing.
func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
