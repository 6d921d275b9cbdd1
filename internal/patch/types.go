package patch

// OpKind identifies a per-file patch operation.
type OpKind string

const (
	// OpAdd creates a new file with the given content.
	OpAdd OpKind = "add"

	// OpUpdate edits an existing file in place via hunks.
	OpUpdate OpKind = "update"

	// OpDelete removes an existing file.
	OpDelete OpKind = "delete"
)

// LineKind classifies a line within a hunk.
type LineKind int

const (
	// LineContext must match the file verbatim and is preserved.
	LineContext LineKind = iota

	// LineDel must match the file verbatim and is removed.
	LineDel

	// LineAdd is inserted in place of the removed lines.
	LineAdd
)

// HunkLine is one line of a hunk body.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is a contiguous edit region within an update operation: interleaved
// context, removal, and addition lines in document order.
type Hunk struct {
	Lines []HunkLine
}

// MatchLines returns the line sequence that must appear verbatim in the file
// for this hunk to apply: context and removal lines, in order.
func (h Hunk) MatchLines() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineDel {
			out = append(out, l.Text)
		}
	}
	return out
}

// ReplaceLines returns the line sequence that replaces the matched region:
// context and addition lines, in order.
func (h Hunk) ReplaceLines() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineAdd {
			out = append(out, l.Text)
		}
	}
	return out
}

// FileOp is one per-file operation within a change set.
// Content is set for add operations; Hunks for update operations.
type FileOp struct {
	Kind    OpKind
	Path    string // relative to the apply base directory, slash-separated
	Content []string
	Hunks   []Hunk
}

// ChangeSet is the parsed form of a patch document. Operations appear in
// document order; order is meaningful because later hunks assume earlier
// hunks have already been applied to the in-memory snapshot.
//
// A ChangeSet is immutable once parsed and owned by a single apply call.
type ChangeSet struct {
	Ops []FileOp
}

// Paths returns the distinct target paths in first-reference order.
func (cs *ChangeSet) Paths() []string {
	seen := make(map[string]bool, len(cs.Ops))
	var paths []string
	for _, op := range cs.Ops {
		if !seen[op.Path] {
			seen[op.Path] = true
			paths = append(paths, op.Path)
		}
	}
	return paths
}
