// Package patch parses textual patch documents into structured change sets.
//
// A patch document is a sequence of per-file blocks. Each block opens with an
// operation header, optionally prefixed with "*** ":
//
//	Add File: <path>
//	Update File: <path>
//	Delete File: <path>
//
// Add blocks list the new file's content as "+"-prefixed lines. Update blocks
// contain one or more hunks, each opened by a line starting with "@@" and made
// up of context lines (unprefixed or space-prefixed), removals ("-"), and
// additions ("+"). Delete blocks have no body.
//
// Parsing happens in two stages: a tokenizer classifies each document line
// into a typed token, then a small recursive-descent builder assembles the
// token stream into a [ChangeSet]. Parsing is purely syntactic and never
// touches the filesystem; path safety (relative, no traversal) is the only
// validation performed here.
//
// # Basic Usage
//
//	cs, err := patch.Parse(document)
//	if err != nil {
//	    var parseErr *errors.ParseError
//	    // parse errors carry the offending document line
//	}
//	for _, op := range cs.Ops { ... }
package patch
