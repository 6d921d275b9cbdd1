package util

import "testing"

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "shorter than max", input: "pkg/a.go", maxLen: 20, want: "pkg/a.go"},
		{name: "exactly max", input: "abcde", maxLen: 5, want: "abcde"},
		{name: "truncated", input: "internal/apply/applier.go", maxLen: 10, want: "interna..."},
		{name: "tiny max", input: "abcdef", maxLen: 3, want: "..."},
		{name: "empty", input: "", maxLen: 10, want: ""},
		{name: "multibyte runes", input: "héllo wörld", maxLen: 8, want: "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{name: "shorter than max", input: "pkg/a.go", maxWidth: 20, want: "pkg/a.go"},
		{name: "truncated", input: "internal/apply/applier.go", maxWidth: 10, want: "interna..."},
		{name: "tiny max", input: "abcdef", maxWidth: 3, want: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateANSI(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncateANSIPreservesStyledText(t *testing.T) {
	styled := "\x1b[31mpkg/a.go\x1b[0m"
	if got := TruncateANSI(styled, 20); got != styled {
		t.Errorf("TruncateANSI(styled, 20) = %q, want unchanged", got)
	}
}
