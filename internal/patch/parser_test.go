package patch

import (
	"strings"
	"testing"

	"github.com/weftlabs/weft/internal/errors"
)

func TestParseAddFile(t *testing.T) {
	doc := "*** Add File: b.txt\n+first line\n+\n"

	cs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(cs.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1", len(cs.Ops))
	}

	op := cs.Ops[0]
	if op.Kind != OpAdd {
		t.Errorf("Kind = %q, want %q", op.Kind, OpAdd)
	}
	if op.Path != "b.txt" {
		t.Errorf("Path = %q, want %q", op.Path, "b.txt")
	}
	want := []string{"first line", ""}
	if len(op.Content) != len(want) {
		t.Fatalf("len(Content) = %d, want %d", len(op.Content), len(want))
	}
	for i := range want {
		if op.Content[i] != want[i] {
			t.Errorf("Content[%d] = %q, want %q", i, op.Content[i], want[i])
		}
	}
}

func TestParseUpdateFile(t *testing.T) {
	doc := strings.Join([]string{
		"*** Update File: a.txt",
		"@@",
		" line1",
		"-line2",
		"+line2 changed",
		"",
	}, "\n")

	cs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	op := cs.Ops[0]
	if op.Kind != OpUpdate {
		t.Fatalf("Kind = %q, want %q", op.Kind, OpUpdate)
	}
	if len(op.Hunks) != 1 {
		t.Fatalf("len(Hunks) = %d, want 1", len(op.Hunks))
	}

	hunk := op.Hunks[0]
	match := hunk.MatchLines()
	wantMatch := []string{"line1", "line2"}
	if strings.Join(match, "|") != strings.Join(wantMatch, "|") {
		t.Errorf("MatchLines() = %v, want %v", match, wantMatch)
	}

	replace := hunk.ReplaceLines()
	wantReplace := []string{"line1", "line2 changed"}
	if strings.Join(replace, "|") != strings.Join(wantReplace, "|") {
		t.Errorf("ReplaceLines() = %v, want %v", replace, wantReplace)
	}
}

func TestParseBareContextLines(t *testing.T) {
	// Context lines may be unprefixed as well as space-prefixed.
	doc := "Update File: a.txt\n@@\nline1\n-line2\n+line2 changed\n"

	cs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	hunk := cs.Ops[0].Hunks[0]
	if hunk.Lines[0].Kind != LineContext || hunk.Lines[0].Text != "line1" {
		t.Errorf("Lines[0] = %+v, want bare context %q", hunk.Lines[0], "line1")
	}
}

func TestParseMultipleOperations(t *testing.T) {
	doc := strings.Join([]string{
		"*** Add File: b.txt",
		"+first line",
		"*** Update File: a.txt",
		"@@",
		"-old",
		"+new",
		"*** Delete File: c.txt",
		"",
	}, "\n")

	cs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	wantKinds := []OpKind{OpAdd, OpUpdate, OpDelete}
	wantPaths := []string{"b.txt", "a.txt", "c.txt"}
	if len(cs.Ops) != 3 {
		t.Fatalf("len(Ops) = %d, want 3", len(cs.Ops))
	}
	for i, op := range cs.Ops {
		if op.Kind != wantKinds[i] {
			t.Errorf("Ops[%d].Kind = %q, want %q", i, op.Kind, wantKinds[i])
		}
		if op.Path != wantPaths[i] {
			t.Errorf("Ops[%d].Path = %q, want %q", i, op.Path, wantPaths[i])
		}
	}
}

func TestParseMultipleHunks(t *testing.T) {
	doc := strings.Join([]string{
		"*** Update File: a.txt",
		"@@",
		"-one",
		"+uno",
		"@@",
		"-three",
		"+tres",
		"",
	}, "\n")

	cs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := len(cs.Ops[0].Hunks); got != 2 {
		t.Fatalf("len(Hunks) = %d, want 2", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantLine int
		wantErr  error // optional sentinel expectation
	}{
		{
			name:     "unknown operation header",
			doc:      "*** Rename File: a.txt\n",
			wantLine: 1,
		},
		{
			name:     "empty update block",
			doc:      "*** Update File: a.txt\n",
			wantLine: 1,
			wantErr:  errors.ErrEmptyUpdate,
		},
		{
			name:     "update body before first hunk",
			doc:      "*** Update File: a.txt\n-line\n",
			wantLine: 2,
		},
		{
			name:     "empty hunk",
			doc:      "*** Update File: a.txt\n@@\n@@\n-x\n+y\n",
			wantLine: 2,
		},
		{
			name:     "unprefixed line in add block",
			doc:      "*** Add File: a.txt\ncontent\n",
			wantLine: 2,
		},
		{
			name:     "removal line in add block",
			doc:      "*** Add File: a.txt\n-content\n",
			wantLine: 2,
		},
		{
			name:     "delete block with body",
			doc:      "*** Delete File: a.txt\n+stray\n",
			wantLine: 2,
		},
		{
			name:     "content before any header",
			doc:      "+stray\n*** Add File: a.txt\n+x\n",
			wantLine: 1,
		},
		{
			name:    "empty document",
			doc:     "",
			wantErr: nil,
		},
		{
			name:     "absolute path",
			doc:      "*** Add File: /etc/passwd\n+x\n",
			wantLine: 1,
			wantErr:  errors.ErrInvalidPath,
		},
		{
			name:     "parent traversal",
			doc:      "*** Add File: ../escape.txt\n+x\n",
			wantLine: 1,
			wantErr:  errors.ErrInvalidPath,
		},
		{
			name:     "nested traversal that escapes",
			doc:      "*** Add File: a/../../escape.txt\n+x\n",
			wantLine: 1,
			wantErr:  errors.ErrInvalidPath,
		},
		{
			name:     "missing path",
			doc:      "*** Delete File:\n",
			wantLine: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc)
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}

			var parseErr *errors.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error type = %T, want *errors.ParseError", err)
			}
			if tt.wantLine > 0 && parseErr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (err: %v)", parseErr.Line, tt.wantLine, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Is(err, %v) = false (err: %v)", tt.wantErr, err)
			}
		})
	}
}

func TestParseTraversalInsideBaseAllowed(t *testing.T) {
	cs, err := Parse("*** Add File: pkg/../a.txt\n+x\n")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cs.Ops[0].Path != "a.txt" {
		t.Errorf("Path = %q, want cleaned %q", cs.Ops[0].Path, "a.txt")
	}
}

func TestChangeSetPaths(t *testing.T) {
	doc := strings.Join([]string{
		"*** Add File: b.txt",
		"+x",
		"*** Update File: a.txt",
		"@@",
		"-1",
		"+2",
		"*** Update File: a.txt",
		"@@",
		"-2",
		"+3",
		"",
	}, "\n")

	cs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	paths := cs.Paths()
	want := []string{"b.txt", "a.txt"}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("Paths() = %v, want %v", paths, want)
	}
}
