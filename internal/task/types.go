// Package task loads and groups the task descriptor files of a feature.
//
// Each task lives in its own markdown file whose YAML frontmatter carries the
// task's identity, raw status, and dependency list; the first heading in the
// body is the task title. File content is the single source of truth: the
// repository never mutates a task in memory, it only re-parses files.
//
// Key types:
//   - [Item] is one parsed task
//   - [List] is the full repository snapshot with its three UI groups
//
// A descriptor that fails to parse is excluded from the groups but reported
// through the accumulated warning string. One malformed file never prevents
// listing of the others.
package task

// RawStatus is the status value as written in a descriptor's frontmatter.
type RawStatus string

// Valid raw status values.
const (
	StatusOpen       RawStatus = "open"
	StatusInProgress RawStatus = "in-progress"
	StatusDone       RawStatus = "done"
	StatusBlocked    RawStatus = "blocked"
)

// IsValid reports whether the raw status is one of the known values.
func (s RawStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusBlocked:
		return true
	default:
		return false
	}
}

// Group is the normalized three-way UI grouping of a task.
type Group string

// Normalized UI groups.
const (
	GroupTodo       Group = "TODO"
	GroupInProgress Group = "In Progress"
	GroupDone       Group = "Done"
)

// Normalize maps a raw status to its UI group.
//
// Normalization is a pure, total function: open and blocked both map to TODO
// (blocked is a secondary flag, never its own group), in-progress maps to
// In Progress, done maps to Done.
func Normalize(s RawStatus) Group {
	switch s {
	case StatusInProgress:
		return GroupInProgress
	case StatusDone:
		return GroupDone
	default:
		return GroupTodo
	}
}

// Item is one unit of work parsed from a task descriptor file.
type Item struct {
	// ID is the stable task identifier from frontmatter.
	ID string

	// Path is the descriptor file path relative to the tasks directory.
	Path string

	// Title is the first markdown heading in the descriptor body.
	Title string

	// Status is the raw frontmatter status.
	Status RawStatus

	// Depends lists the IDs of tasks that must be done before this one.
	Depends []string

	// MissingDeps lists dependency IDs that did not resolve to a known
	// task. A task with missing dependencies stays listed (it is flagged
	// inconsistent, never silently dropped) but can never become ready.
	MissingDeps []string
}

// Blocked reports whether the task carries the blocked raw status.
func (it Item) Blocked() bool {
	return it.Status == StatusBlocked
}

// Group returns the normalized UI group for the task.
func (it Item) Group() Group {
	return Normalize(it.Status)
}
