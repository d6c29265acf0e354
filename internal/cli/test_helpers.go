package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"prodflow/internal/agent"
	"prodflow/internal/config"
	"prodflow/internal/policy"
	"prodflow/internal/review"
	"prodflow/internal/snapshot"
)

// fixture bundles a temp feature directory with an App wired to mocks.
type fixture struct {
	App  *App
	Out  *bytes.Buffer
	Root string
}

// newFixture builds a feature directory (tasks/, docs/, .prodflow/) and an
// App whose executor, diff source, and opener are test doubles.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{"tasks", "docs", ".prodflow"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Feature.Root = root
	cfg.Output.Color = false

	out := &bytes.Buffer{}
	app := &App{
		Config:   cfg,
		Feature:  "demo",
		Policy:   policy.Default(),
		Store:    snapshot.NewStore(cfg.StatePath()),
		Executor: &agent.MockExecutor{},
		Diff:     &staticDiff{},
		Opener:   &recordedOpens{},
		Out:      out,
		Styles:   NewStyles(false, 80),
	}

	return &fixture{App: app, Out: out, Root: root}
}

// run executes a CLI invocation against the fixture's App.
func (f *fixture) run(args ...string) error {
	rootCmd := NewRootCommand(f.App)
	rootCmd.SetOut(f.Out)
	rootCmd.SetErr(f.Out)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// writeTask writes a task descriptor into the fixture's tasks directory.
func (f *fixture) writeTask(t *testing.T, name, frontmatter, title string) {
	t.Helper()
	content := "---\n" + frontmatter + "\n---\n# " + title + "\n"
	path := filepath.Join(f.Root, "tasks", name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write task %s: %v", name, err)
	}
}

// writeArtifact writes a stage artifact (prd.md, design.md, tasks.md).
func (f *fixture) writeArtifact(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(f.Root, "docs", name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write artifact %s: %v", name, err)
	}
}

// writePolicy writes a policy document and reloads it into the App.
func (f *fixture) writePolicy(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(f.Root, ".prodflow", "policy.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write policy: %v", err)
	}
	f.App.Policy, f.App.PolicyWarning = policy.Load(path)
}

// staticDiff is a DiffSource returning a fixed listing.
type staticDiff struct {
	Files []review.File
	Err   error
}

func (d *staticDiff) Changes() ([]review.File, error) {
	return d.Files, d.Err
}

// recordedOpens records dispatched open actions.
type recordedOpens struct {
	Modes []review.Mode
	Paths []string
}

func (r *recordedOpens) OpenPath(mode review.Mode, path string) error {
	r.Modes = append(r.Modes, mode)
	r.Paths = append(r.Paths, path)
	return nil
}
