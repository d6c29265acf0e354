package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTask creates a task descriptor file in dir for testing.
func writeTask(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, GroupTodo, Normalize(StatusOpen))
	assert.Equal(t, GroupInProgress, Normalize(StatusInProgress))
	assert.Equal(t, GroupDone, Normalize(StatusDone))
	assert.Equal(t, GroupTodo, Normalize(StatusBlocked))
}

func TestLoad_GroupsPartitionTasks(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01-schema.md", "---\nid: \"1\"\nstatus: done\n---\n# Define schema\n")
	writeTask(t, tmpDir, "02-api.md", "---\nid: \"2\"\nstatus: in-progress\n---\n# Create API\n")
	writeTask(t, tmpDir, "03-ui.md", "---\nid: \"3\"\nstatus: open\n---\n# Build UI\n")
	writeTask(t, tmpDir, "04-docs.md", "---\nid: \"4\"\nstatus: blocked\n---\n# Write docs\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Empty(t, list.Warning)
	assert.Len(t, list.Items, 4)
	// Every task lands in exactly one group.
	assert.Equal(t, len(list.Items), len(list.Todo)+len(list.InProgress)+len(list.Done))
	assert.Len(t, list.Todo, 2)
	assert.Len(t, list.InProgress, 1)
	assert.Len(t, list.Done, 1)
	// Blocked stays in TODO with the secondary flag set.
	assert.Equal(t, "4", list.Todo[1].ID)
	assert.True(t, list.Todo[1].Blocked())
	assert.False(t, list.Todo[0].Blocked())
}

func TestLoad_OrderIsNumericByID(t *testing.T) {
	tmpDir := t.TempDir()
	// Filenames deliberately disagree with IDs.
	writeTask(t, tmpDir, "aaa.md", "---\nid: \"10\"\nstatus: open\n---\n# Ten\n")
	writeTask(t, tmpDir, "bbb.md", "---\nid: \"2\"\nstatus: open\n---\n# Two\n")
	writeTask(t, tmpDir, "ccc.md", "---\nid: \"1\"\nstatus: open\n---\n# One\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	var ids []string
	for _, it := range list.Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"1", "2", "10"}, ids)
}

func TestLoad_MalformedFileReportedNotFatal(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01-good.md", "---\nid: \"1\"\nstatus: open\n---\n# Good\n")
	writeTask(t, tmpDir, "02-bad.md", "no frontmatter here\n")
	writeTask(t, tmpDir, "03-badstatus.md", "---\nid: \"3\"\nstatus: wip\n---\n# Bad status\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
	assert.Contains(t, list.Warning, "02-bad.md")
	assert.Contains(t, list.Warning, "missing frontmatter")
	assert.Contains(t, list.Warning, "03-badstatus.md")
	assert.Contains(t, list.Warning, `invalid status "wip"`)
	assert.Contains(t, list.Warning, " | ")
}

func TestLoad_ReadinessAndUnresolvedDependency(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "---\nid: \"1\"\nstatus: done\n---\n# One\n")
	writeTask(t, tmpDir, "02.md", "---\nid: \"2\"\nstatus: open\ndepends: [\"1\"]\n---\n# Two\n")
	writeTask(t, tmpDir, "03.md", "---\nid: \"3\"\nstatus: open\ndepends: [\"9\"]\n---\n# Three\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	// Task 3 is flagged, not dropped: it stays in TODO.
	three, ok := list.Get("3")
	require.True(t, ok)
	assert.Equal(t, []string{"9"}, three.MissingDeps)
	assert.Contains(t, list.Warning, "unresolved depends: 9")
	assert.Len(t, list.Todo, 2)

	two, ok := list.Get("2")
	require.True(t, ok)
	assert.True(t, list.Ready(two))
	assert.False(t, list.Ready(three))

	next, ok := list.NextReady()
	require.True(t, ok)
	assert.Equal(t, "2", next.ID)
}

func TestLoad_NextReadyIsDeterministic(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "z.md", "---\nid: \"5\"\nstatus: open\n---\n# Five\n")
	writeTask(t, tmpDir, "a.md", "---\nid: \"3\"\nstatus: open\n---\n# Three\n")

	for i := 0; i < 3; i++ {
		list, err := Load(tmpDir)
		require.NoError(t, err)
		next, ok := list.NextReady()
		require.True(t, ok)
		assert.Equal(t, "3", next.ID)
	}
}

func TestLoad_NoReadyWhenDependencyIncomplete(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "---\nid: \"1\"\nstatus: in-progress\n---\n# One\n")
	writeTask(t, tmpDir, "02.md", "---\nid: \"2\"\nstatus: open\ndepends: [\"1\"]\n---\n# Two\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	_, ok := list.NextReady()
	assert.False(t, ok)
	assert.Equal(t, 2, list.Unresolved())
}

func TestLoad_DuplicateID(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "---\nid: \"1\"\nstatus: open\n---\n# First\n")
	writeTask(t, tmpDir, "02.md", "---\nid: \"1\"\nstatus: done\n---\n# Dup\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Contains(t, list.Warning, "duplicate id")
}

func TestLoad_ActiveContextHint(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "---\nid: \"1\"\nstatus: open\n---\n# One\n")
	writeTask(t, tmpDir, ActiveContextFile, "---\ntask: \"1\"\n---\nWorking on task 1.\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "1", list.ActiveHint)
	// The active-context file is never listed as a task.
	assert.Len(t, list.Items, 1)
}

func TestLoad_TitleFromFirstHeading(t *testing.T) {
	tmpDir := t.TempDir()
	writeTask(t, tmpDir, "01.md", "---\nid: \"1\"\nstatus: open\n---\n\nSome preamble.\n\n## Build the thing\n")

	list, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "Build the thing", list.Items[0].Title)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read tasks directory")
}
