package patch

import (
	"strings"

	"github.com/weftlabs/weft/internal/errors"
)

// tokenKind classifies one line of a patch document.
type tokenKind int

const (
	tokenAddHeader tokenKind = iota
	tokenUpdateHeader
	tokenDeleteHeader
	tokenHunkStart
	tokenContextLine
	tokenAddLine
	tokenDelLine
)

// token is one classified document line. For header tokens, text holds the
// path; for body tokens, the line content with its prefix stripped.
type token struct {
	kind tokenKind
	text string
	line int // 1-based document line
}

// headerPrefix is the optional marker in front of operation headers.
const headerPrefix = "*** "

// opHeaders maps header labels to their token kinds.
var opHeaders = []struct {
	label string
	kind  tokenKind
}{
	{"Add File:", tokenAddHeader},
	{"Update File:", tokenUpdateHeader},
	{"Delete File:", tokenDeleteHeader},
}

// tokenize converts a patch document into a typed token stream.
// It fails on lines that carry the header marker but name no known operation;
// all other classification ambiguity is resolved by the parser, which knows
// what block it is inside.
func tokenize(doc string) ([]token, error) {
	lines := strings.Split(doc, "\n")

	// A trailing newline yields one empty trailing element; it is document
	// termination, not an empty context line.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	tokens := make([]token, 0, len(lines))
	for i, raw := range lines {
		lineNo := i + 1

		marked := strings.HasPrefix(raw, headerPrefix)
		stripped := strings.TrimPrefix(raw, headerPrefix)

		if kind, path, ok := matchHeader(stripped); ok {
			tokens = append(tokens, token{kind: kind, text: path, line: lineNo})
			continue
		}
		if marked {
			return nil, errors.NewParseError("unknown operation header: "+raw, lineNo)
		}

		tokens = append(tokens, classifyBody(raw, lineNo))
	}

	return tokens, nil
}

// matchHeader reports whether a line (with any "*** " marker already
// stripped) is an operation header, returning the header kind and path.
func matchHeader(line string) (tokenKind, string, bool) {
	for _, h := range opHeaders {
		if strings.HasPrefix(line, h.label) {
			return h.kind, strings.TrimSpace(line[len(h.label):]), true
		}
	}
	return 0, "", false
}

// classifyBody classifies a non-header line by its first character.
// Unprefixed lines are context; the parser rejects them where context is
// not valid (add blocks, top level).
func classifyBody(raw string, lineNo int) token {
	switch {
	case strings.HasPrefix(raw, "@@"):
		return token{kind: tokenHunkStart, text: strings.TrimSpace(raw[2:]), line: lineNo}
	case strings.HasPrefix(raw, "+"):
		return token{kind: tokenAddLine, text: raw[1:], line: lineNo}
	case strings.HasPrefix(raw, "-"):
		return token{kind: tokenDelLine, text: raw[1:], line: lineNo}
	case strings.HasPrefix(raw, " "):
		return token{kind: tokenContextLine, text: raw[1:], line: lineNo}
	default:
		return token{kind: tokenContextLine, text: raw, line: lineNo}
	}
}
