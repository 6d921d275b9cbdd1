package patch

import (
	"path"
	"strings"

	"github.com/weftlabs/weft/internal/errors"
)

// Parse converts a patch document into a ChangeSet.
//
// Parsing is purely syntactic: Parse never touches the filesystem. It returns
// a *errors.ParseError on malformed input: unknown operation headers, body
// lines where none are valid, update blocks without hunks, and unsafe paths.
func Parse(doc string) (*ChangeSet, error) {
	tokens, err := tokenize(doc)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	return p.parseChangeSet()
}

// parser is a cursor over the token stream.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// isHeader reports whether a token opens a new file block.
func isHeader(t token) bool {
	switch t.kind {
	case tokenAddHeader, tokenUpdateHeader, tokenDeleteHeader:
		return true
	}
	return false
}

// parseChangeSet parses a sequence of file blocks until end of document.
func (p *parser) parseChangeSet() (*ChangeSet, error) {
	cs := &ChangeSet{}

	for {
		t, ok := p.next()
		if !ok {
			break
		}
		if !isHeader(t) {
			return nil, errors.NewParseError("expected operation header", t.line)
		}

		cleaned, err := validatePath(t.text, t.line)
		if err != nil {
			return nil, err
		}

		var op FileOp
		switch t.kind {
		case tokenAddHeader:
			op, err = p.parseAdd(cleaned)
		case tokenUpdateHeader:
			op, err = p.parseUpdate(cleaned, t.line)
		case tokenDeleteHeader:
			op, err = p.parseDelete(cleaned)
		}
		if err != nil {
			return nil, err
		}

		cs.Ops = append(cs.Ops, op)
	}

	if len(cs.Ops) == 0 {
		return nil, errors.NewParseError("document contains no operations", 0)
	}

	return cs, nil
}

// parseAdd consumes "+"-prefixed content lines until the next header.
func (p *parser) parseAdd(filePath string) (FileOp, error) {
	op := FileOp{Kind: OpAdd, Path: filePath, Content: []string{}}

	for {
		t, ok := p.peek()
		if !ok || isHeader(t) {
			return op, nil
		}
		p.pos++

		if t.kind != tokenAddLine {
			return FileOp{}, errors.NewParseError("add block lines must be prefixed with '+'", t.line)
		}
		op.Content = append(op.Content, t.text)
	}
}

// parseUpdate consumes one or more hunks until the next header.
func (p *parser) parseUpdate(filePath string, headerLine int) (FileOp, error) {
	op := FileOp{Kind: OpUpdate, Path: filePath}

	for {
		t, ok := p.peek()
		if !ok || isHeader(t) {
			break
		}
		p.pos++

		if t.kind != tokenHunkStart {
			return FileOp{}, errors.NewParseError("expected '@@' hunk marker", t.line)
		}

		hunk, err := p.parseHunk(t.line)
		if err != nil {
			return FileOp{}, err
		}
		op.Hunks = append(op.Hunks, hunk)
	}

	if len(op.Hunks) == 0 {
		return FileOp{}, errors.NewParseError("update block contains no hunks", headerLine).
			WithCause(errors.ErrEmptyUpdate)
	}

	return op, nil
}

// parseHunk consumes hunk body lines until the next "@@", header, or EOF.
func (p *parser) parseHunk(markerLine int) (Hunk, error) {
	var hunk Hunk

	for {
		t, ok := p.peek()
		if !ok || isHeader(t) || t.kind == tokenHunkStart {
			break
		}
		p.pos++

		var kind LineKind
		switch t.kind {
		case tokenContextLine:
			kind = LineContext
		case tokenDelLine:
			kind = LineDel
		case tokenAddLine:
			kind = LineAdd
		}
		hunk.Lines = append(hunk.Lines, HunkLine{Kind: kind, Text: t.text})
	}

	if len(hunk.Lines) == 0 {
		return Hunk{}, errors.NewParseError("hunk is empty", markerLine)
	}

	return hunk, nil
}

// parseDelete verifies the delete block has no body.
func (p *parser) parseDelete(filePath string) (FileOp, error) {
	if t, ok := p.peek(); ok && !isHeader(t) {
		return FileOp{}, errors.NewParseError("delete block must have no body", t.line)
	}
	return FileOp{Kind: OpDelete, Path: filePath}, nil
}

// validatePath rejects absolute paths and parent traversal, and normalizes
// to a cleaned slash-separated relative path.
func validatePath(raw string, line int) (string, error) {
	if raw == "" {
		return "", errors.NewParseError("operation header missing path", line).
			WithCause(errors.ErrInvalidPath)
	}

	slashed := strings.ReplaceAll(raw, "\\", "/")
	if strings.HasPrefix(slashed, "/") {
		return "", errors.NewParseError("absolute path not allowed: "+raw, line).
			WithCause(errors.ErrInvalidPath)
	}

	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned == "." {
		return "", errors.NewParseError("path escapes base directory: "+raw, line).
			WithCause(errors.ErrInvalidPath)
	}

	return cleaned, nil
}
