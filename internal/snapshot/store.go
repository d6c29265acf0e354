// Package snapshot persists the workflow state and run timeline of a
// feature between process runs.
//
// Each feature has one JSON document under the state directory, written
// atomically (temp file, fsync, validate, backup, rename) after every
// meaningful mutation. The snapshot is an overlay, not the source of truth:
// task status always comes from a fresh task repository read, and a corrupt
// snapshot degrades to a warning, never an error, because reconciliation
// can rebuild a usable state without it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"prodflow/internal/runloop"
	"prodflow/internal/workflow"
)

// SchemaVersion is the snapshot document version this build writes.
const SchemaVersion = 1

// Document is the persisted snapshot of one feature.
type Document struct {
	SchemaVersion int             `json:"schemaVersion"`
	Feature       string          `json:"feature"`
	Workflow      *workflow.State `json:"workflow"`
	Run           *runloop.State  `json:"run"`
	SavedAt       time.Time       `json:"savedAt"`
}

// Store reads and writes feature snapshots under a state directory.
type Store struct {
	dir string
}

// NewStore creates a [Store] rooted at dir. The directory is created on
// first write, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the snapshot file path for a feature.
func (s *Store) Path(feature string) string {
	return filepath.Join(s.dir, feature+".json")
}

// Load reads the snapshot for a feature.
//
// A missing snapshot returns (nil, "") so first runs start clean. A snapshot
// that cannot be read or parsed returns nil plus a warning; the caller
// reconciles from the task repository alone.
func (s *Store) Load(feature string) (*Document, string) {
	path := s.Path(feature)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ""
		}
		return nil, fmt.Sprintf("snapshot %s: %v", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Sprintf("snapshot %s: invalid JSON: %v", path, err)
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, fmt.Sprintf("snapshot %s: unsupported schema version %d", path, doc.SchemaVersion)
	}
	return &doc, ""
}

// Save writes the snapshot for a feature atomically.
func (s *Store) Save(feature string, wf *workflow.State, run *runloop.State) error {
	doc := Document{
		SchemaVersion: SchemaVersion,
		Feature:       feature,
		Workflow:      wf,
		Run:           run,
		SavedAt:       time.Now().UTC(),
	}

	content, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	return atomicWrite(s.Path(feature), content)
}

// atomicWrite lands content at path via a temp file so readers never see a
// torn snapshot: write, sync, re-read and validate, back up the prior file,
// then rename into place.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".prodflow-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read temp file for validation: %w", err)
	}
	if !json.Valid(written) {
		return fmt.Errorf("snapshot validation failed: written content is not valid JSON")
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".bak"); err != nil {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
