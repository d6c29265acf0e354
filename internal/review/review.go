// Package review lists changed files in the working tree and dispatches
// view/diff/edit actions for them through an injected opener.
//
// The package never reads or rewrites file contents itself. It derives a
// listing of (status, path) records from a [DiffSource], remembers when each
// file was observed, and re-validates the file immediately before handing it
// to the [Opener] so that actions are never dispatched against a path that
// vanished or changed since the listing was taken.
package review

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Status classifies a changed file relative to the last commit.
type Status string

const (
	StatusAdded    Status = "Added"
	StatusModified Status = "Modified"
	StatusDeleted  Status = "Deleted"
)

// File is one changed-file record. Records are derived from the working tree
// at read time and are never persisted.
type File struct {
	Status Status
	Path   string
}

// Mode selects how a path should be opened by the host capability.
type Mode string

const (
	ModeView Mode = "view"
	ModeDiff Mode = "diff"
	ModeEdit Mode = "edit"
)

// IsValid reports whether m is a recognized open mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeView, ModeDiff, ModeEdit:
		return true
	}
	return false
}

// ErrStale indicates the target file vanished or changed since it was listed.
// Callers should refresh the listing and retry.
var ErrStale = errors.New("file changed since listing, refresh required")

// ErrUnknownPath indicates an open was requested for a path that is not in
// the current listing.
var ErrUnknownPath = errors.New("path not in current change listing")

// DiffSource produces the current changed-file listing.
//
// Implementations are read-only consumers of source control state. [GitSource]
// is the standard implementation; tests substitute a fake.
type DiffSource interface {
	// Changes returns the changed files in the working tree.
	Changes() ([]File, error)
}

// Opener is the host capability that opens a path in a given mode.
//
// The review package only selects (mode, path) tuples; rendering a diff or
// launching an editor is entirely the opener's concern.
type Opener interface {
	OpenPath(mode Mode, path string) error
}

// GitSource reads changed files from `git status --porcelain`.
type GitSource struct {
	// Dir is the repository directory to query. Empty means the current
	// working directory.
	Dir string
}

// Changes runs git and parses its porcelain output into [File] records.
// Untracked files are reported as Added.
func (g *GitSource) Changes() ([]File, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	if g.Dir != "" {
		cmd.Dir = g.Dir
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	return ParsePorcelain(string(bytes.TrimRight(out, "\n"))), nil
}

// ParsePorcelain converts `git status --porcelain` output into [File]
// records. Lines that do not match the two-letter-code format are skipped.
// Renames report the new path.
func ParsePorcelain(out string) []File {
	var files []File
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		// Renames are listed as "old -> new"; the new path is the one
		// that exists to be opened.
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		if path == "" {
			continue
		}
		files = append(files, File{Status: statusFromCode(code), Path: path})
	}
	return files
}

func statusFromCode(code string) Status {
	switch {
	case code == "??" || strings.ContainsAny(code, "A"):
		return StatusAdded
	case strings.ContainsAny(code, "D"):
		return StatusDeleted
	default:
		return StatusModified
	}
}

// Hub holds the current change listing and dispatches open actions.
//
// Refresh rebuilds the listing from the DiffSource. Open re-checks the target
// file against the state captured at Refresh time and returns [ErrStale]
// rather than dispatching against a file that no longer matches.
type Hub struct {
	source DiffSource
	opener Opener
	root   string

	files []File
	seen  map[string]fileStamp
}

type fileStamp struct {
	exists  bool
	modTime time.Time
	size    int64
}

// NewHub creates a Hub over the given source and opener. root is the
// directory that listing paths are relative to.
func NewHub(source DiffSource, opener Opener, root string) *Hub {
	return &Hub{
		source: source,
		opener: opener,
		root:   root,
		seen:   make(map[string]fileStamp),
	}
}

// Refresh rebuilds the change listing and records each file's current
// existence and modification state for later staleness checks.
func (h *Hub) Refresh() ([]File, error) {
	files, err := h.source.Changes()
	if err != nil {
		return nil, err
	}
	h.files = files
	h.seen = make(map[string]fileStamp, len(files))
	for _, f := range files {
		h.seen[f.Path] = h.stamp(f.Path)
	}
	return files, nil
}

// Files returns the listing captured by the last Refresh.
func (h *Hub) Files() []File {
	return h.files
}

// Open dispatches an open action for a listed path. The target is
// re-validated immediately before dispatch: if it was deleted, recreated, or
// rewritten since the last Refresh, Open returns [ErrStale] and the action is
// not attempted.
func (h *Hub) Open(mode Mode, path string) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid open mode %q", mode)
	}
	stamp, ok := h.seen[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if h.stamp(path) != stamp {
		return fmt.Errorf("%w: %s", ErrStale, path)
	}
	return h.opener.OpenPath(mode, path)
}

func (h *Hub) stamp(path string) fileStamp {
	full := filepath.Join(h.root, path)
	info, err := os.Stat(full)
	if err != nil {
		return fileStamp{exists: false}
	}
	return fileStamp{exists: true, modTime: info.ModTime(), size: info.Size()}
}
