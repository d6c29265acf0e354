package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActiveContextFile is the per-feature file that may hint at task selection.
// Its hint is metadata only and never overrides frontmatter status.
const ActiveContextFile = "_active.md"

// frontmatter is the structured header block of a task descriptor.
type frontmatter struct {
	ID      string   `yaml:"id"`
	Status  string   `yaml:"status"`
	Depends []string `yaml:"depends"`
}

// activeContext is the parsed header of the active-context file.
type activeContext struct {
	Task string `yaml:"task"`
}

// List is a snapshot of the task repository: every successfully parsed task,
// the three ordered UI groups, and the accumulated load warning.
type List struct {
	// Items holds all parsed tasks in discovery order (ascending by ID).
	Items []Item

	// Todo, InProgress, and Done partition Items by normalized group,
	// preserving discovery order within each group.
	Todo       []Item
	InProgress []Item
	Done       []Item

	// ActiveHint is the task ID suggested by the active-context file,
	// empty when absent. Metadata only.
	ActiveHint string

	// Warning accumulates non-fatal load problems (malformed descriptors,
	// unresolved dependencies) as a pipe-delimited list. Empty when clean.
	Warning string

	index map[string]int
}

// Load parses every task descriptor under dir into a [List].
//
// Descriptors are ordered by task ID (numeric-aware), so group order and the
// ready-task tie-break are deterministic regardless of filesystem enumeration
// order. Files that fail to parse, and dependency IDs that do not resolve,
// are reported through [List.Warning] rather than aborting the load.
func Load(dir string) (*List, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks directory: %w", err)
	}

	list := &List{index: make(map[string]int)}
	var warnings []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		if name == ActiveContextFile {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		item, err := parseDescriptor(name, data)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		list.Items = append(list.Items, item)
	}

	sort.SliceStable(list.Items, func(i, j int) bool {
		return lessID(list.Items[i].ID, list.Items[j].ID)
	})

	for i, it := range list.Items {
		if prev, dup := list.index[it.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("%s: duplicate id %q (already defined by %s)", it.Path, it.ID, list.Items[prev].Path))
			continue
		}
		list.index[it.ID] = i
	}

	// Resolve dependencies now that all IDs are known.
	for i := range list.Items {
		it := &list.Items[i]
		for _, dep := range it.Depends {
			if _, ok := list.index[dep]; !ok {
				it.MissingDeps = append(it.MissingDeps, dep)
			}
		}
		if len(it.MissingDeps) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: unresolved depends: %s", it.Path, strings.Join(it.MissingDeps, ", ")))
		}
	}

	for _, it := range list.Items {
		switch it.Group() {
		case GroupInProgress:
			list.InProgress = append(list.InProgress, it)
		case GroupDone:
			list.Done = append(list.Done, it)
		default:
			list.Todo = append(list.Todo, it)
		}
	}

	if hint, err := loadActiveHint(filepath.Join(dir, ActiveContextFile)); err != nil {
		warnings = append(warnings, fmt.Sprintf("%s: %v", ActiveContextFile, err))
	} else {
		list.ActiveHint = hint
	}

	list.Warning = strings.Join(warnings, " | ")
	return list, nil
}

// Get looks up a task by ID.
func (l *List) Get(id string) (Item, bool) {
	i, ok := l.index[id]
	if !ok {
		return Item{}, false
	}
	return l.Items[i], true
}

// Ready reports whether the task can start: its own status is open and every
// dependency resolves to a task whose status is done.
func (l *List) Ready(it Item) bool {
	if it.Status != StatusOpen || len(it.MissingDeps) > 0 {
		return false
	}
	for _, dep := range it.Depends {
		d, ok := l.Get(dep)
		if !ok || d.Status != StatusDone {
			return false
		}
	}
	return true
}

// NextReady returns the lowest-ID ready task. The boolean is false when no
// task is ready.
func (l *List) NextReady() (Item, bool) {
	for _, it := range l.Items {
		if l.Ready(it) {
			return it, true
		}
	}
	return Item{}, false
}

// Unresolved returns the number of tasks not yet done.
func (l *List) Unresolved() int {
	n := 0
	for _, it := range l.Items {
		if it.Status != StatusDone {
			n++
		}
	}
	return n
}

// parseDescriptor parses one task descriptor file.
//
// The descriptor must start with a YAML frontmatter block delimited by "---"
// lines, carrying at minimum id and a valid status. Parsing is strict: any
// missing or invalid field is a failure for this file, never a best-effort
// default substitution.
func parseDescriptor(name string, data []byte) (Item, error) {
	header, body, err := splitFrontmatter(data)
	if err != nil {
		return Item{}, err
	}

	var fm frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Item{}, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if fm.ID == "" {
		return Item{}, fmt.Errorf("frontmatter missing id")
	}
	status := RawStatus(fm.Status)
	if !status.IsValid() {
		return Item{}, fmt.Errorf("invalid status %q", fm.Status)
	}

	return Item{
		ID:      fm.ID,
		Path:    name,
		Title:   firstHeading(body),
		Status:  status,
		Depends: fm.Depends,
	}, nil
}

// splitFrontmatter separates the YAML header from the markdown body.
func splitFrontmatter(data []byte) (header, body []byte, err error) {
	text := string(data)
	if !strings.HasPrefix(text, "---\n") && text != "---" {
		return nil, nil, fmt.Errorf("missing frontmatter block")
	}
	rest := strings.TrimPrefix(text, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter block")
	}
	header = []byte(rest[:end])
	body = []byte(strings.TrimPrefix(rest[end+len("\n---"):], "\n"))
	return header, body, nil
}

// firstHeading returns the text of the first markdown heading in body, or
// the empty string when the body has none.
func firstHeading(body []byte) string {
	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return ""
}

// loadActiveHint reads the active-context file's task hint. A missing file
// is not an error; a malformed one is reported to the caller.
func loadActiveHint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	header, _, err := splitFrontmatter(data)
	if err != nil {
		return "", err
	}
	var ac activeContext
	if err := yaml.Unmarshal(header, &ac); err != nil {
		return "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return ac.Task, nil
}

// lessID orders task IDs numeric-aware: IDs with a numeric prefix sort by
// that number first (1, 2, 10 not 1, 10, 2), then lexicographically.
func lessID(a, b string) bool {
	an, aok := leadingInt(a)
	bn, bok := leadingInt(b)
	switch {
	case aok && bok:
		if an != bn {
			return an < bn
		}
		return a < b
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

// leadingInt extracts the leading decimal number of an ID.
func leadingInt(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}
