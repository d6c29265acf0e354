package review

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns a fixed change listing.
type fakeSource struct {
	files []File
	err   error
}

func (f *fakeSource) Changes() ([]File, error) {
	return f.files, f.err
}

// recordingOpener records dispatched open actions.
type recordingOpener struct {
	modes []Mode
	paths []string
	err   error
}

func (r *recordingOpener) OpenPath(mode Mode, path string) error {
	r.modes = append(r.modes, mode)
	r.paths = append(r.paths, path)
	return r.err
}

func TestParsePorcelain(t *testing.T) {
	out := " M internal/app/server.go\n" +
		"A  docs/design.md\n" +
		"?? notes.txt\n" +
		" D old/config.yaml\n" +
		"R  old/name.go -> new/name.go"

	files := ParsePorcelain(out)

	require.Len(t, files, 5)
	assert.Equal(t, File{Status: StatusModified, Path: "internal/app/server.go"}, files[0])
	assert.Equal(t, File{Status: StatusAdded, Path: "docs/design.md"}, files[1])
	assert.Equal(t, File{Status: StatusAdded, Path: "notes.txt"}, files[2])
	assert.Equal(t, File{Status: StatusDeleted, Path: "old/config.yaml"}, files[3])
	assert.Equal(t, File{Status: StatusModified, Path: "new/name.go"}, files[4])
}

func TestParsePorcelain_Empty(t *testing.T) {
	assert.Empty(t, ParsePorcelain(""))
}

func TestHub_OpenDispatches(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.go"), []byte("package a\n"), 0644))

	opener := &recordingOpener{}
	hub := NewHub(&fakeSource{files: []File{{Status: StatusModified, Path: "a.go"}}}, opener, tmpDir)

	files, err := hub.Refresh()
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, hub.Open(ModeDiff, "a.go"))
	assert.Equal(t, []Mode{ModeDiff}, opener.modes)
	assert.Equal(t, []string{"a.go"}, opener.paths)
}

func TestHub_OpenDeletedFileIsStale(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	opener := &recordingOpener{}
	hub := NewHub(&fakeSource{files: []File{{Status: StatusModified, Path: "a.go"}}}, opener, tmpDir)
	_, err := hub.Refresh()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	err = hub.Open(ModeView, "a.go")
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, opener.paths, "stale open must not be dispatched")
}

func TestHub_OpenRewrittenFileIsStale(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	opener := &recordingOpener{}
	hub := NewHub(&fakeSource{files: []File{{Status: StatusModified, Path: "a.go"}}}, opener, tmpDir)
	_, err := hub.Refresh()
	require.NoError(t, err)

	// Size change guarantees a stamp mismatch even on coarse mtime
	// filesystems.
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0644))

	err = hub.Open(ModeEdit, "a.go")
	assert.ErrorIs(t, err, ErrStale)
}

func TestHub_OpenUnlistedPath(t *testing.T) {
	hub := NewHub(&fakeSource{}, &recordingOpener{}, t.TempDir())
	_, err := hub.Refresh()
	require.NoError(t, err)

	err = hub.Open(ModeView, "nope.go")
	assert.ErrorIs(t, err, ErrUnknownPath)
}

func TestHub_OpenInvalidMode(t *testing.T) {
	hub := NewHub(&fakeSource{}, &recordingOpener{}, t.TempDir())
	err := hub.Open(Mode("explode"), "a.go")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrStale)
}

func TestHub_RefreshPropagatesSourceError(t *testing.T) {
	srcErr := errors.New("not a git repository")
	hub := NewHub(&fakeSource{err: srcErr}, &recordingOpener{}, t.TempDir())
	_, err := hub.Refresh()
	assert.ErrorIs(t, err, srcErr)
}

func TestHub_DeletedStatusFileOpensWhileStillAbsent(t *testing.T) {
	// A file listed as Deleted does not exist at refresh time. As long
	// as it stays absent the listing is not stale and a diff view is
	// still meaningful.
	tmpDir := t.TempDir()
	opener := &recordingOpener{}
	hub := NewHub(&fakeSource{files: []File{{Status: StatusDeleted, Path: "gone.go"}}}, opener, tmpDir)
	_, err := hub.Refresh()
	require.NoError(t, err)

	require.NoError(t, hub.Open(ModeDiff, "gone.go"))
	assert.Equal(t, []string{"gone.go"}, opener.paths)
}
