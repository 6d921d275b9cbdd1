package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/apply"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/filelock"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "weft" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "weft")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expected := []string{"apply", "lock", "locks"}
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestLockSubcommands(t *testing.T) {
	expected := []string{"acquire", "release", "status", "cleanup"}
	names := make(map[string]bool)
	for _, cmd := range lockCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("missing lock subcommand %q", name)
		}
	}
}

func TestReadPatchDocument(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "change.patch")
	doc := "*** Add File: a.txt\n+hello\n"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	got, err := readPatchDocument([]string{file})
	if err != nil {
		t.Fatalf("readPatchDocument() error: %v", err)
	}
	if got != doc {
		t.Errorf("readPatchDocument() = %q, want %q", got, doc)
	}

	if _, err := readPatchDocument([]string{filepath.Join(dir, "missing.patch")}); err == nil {
		t.Error("readPatchDocument() accepted a missing file")
	}
}

func TestResolveBaseDir(t *testing.T) {
	cfg := config.Default()

	if got, err := resolveBaseDir("/flag", cfg); err != nil || got != "/flag" {
		t.Errorf("resolveBaseDir(flag) = %q, %v", got, err)
	}

	cfg.Apply.BaseDir = "/from-config"
	if got, err := resolveBaseDir("", cfg); err != nil || got != "/from-config" {
		t.Errorf("resolveBaseDir(config) = %q, %v", got, err)
	}

	cfg.Apply.BaseDir = ""
	cwd, _ := os.Getwd()
	if got, err := resolveBaseDir("", cfg); err != nil || got != cwd {
		t.Errorf("resolveBaseDir(cwd) = %q, %v", got, err)
	}
}

func TestRenderResultText(t *testing.T) {
	result := &apply.Result{
		Success: false,
		Files: map[string]apply.FileResult{
			"a.txt": {Applied: true},
			"b.txt": {Applied: false, Error: "target file not found"},
		},
		Errors: []string{"b.txt: target file not found"},
	}

	var buf bytes.Buffer
	if err := renderResult(&buf, result, "text"); err != nil {
		t.Fatalf("renderResult() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "applied  a.txt") {
		t.Errorf("text output missing applied line:\n%s", out)
	}
	if !strings.Contains(out, "failed   b.txt: target file not found") {
		t.Errorf("text output missing failed line:\n%s", out)
	}
	if !strings.Contains(out, "commit failed: 1 of 2 file(s)") {
		t.Errorf("text output missing summary:\n%s", out)
	}
}

func TestRenderLocksText(t *testing.T) {
	held := []filelock.Lock{
		{Path: "pkg/a.go", Owner: "story-1", AcquiredAt: time.Now(), PID: 123},
	}

	var buf bytes.Buffer
	if err := renderLocks(&buf, held, "text"); err != nil {
		t.Fatalf("renderLocks() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"pkg/a.go", "story-1", "pid 123"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := renderLocks(&buf, nil, "text"); err != nil {
		t.Fatalf("renderLocks() error: %v", err)
	}
	if !strings.Contains(buf.String(), "No locks held") {
		t.Errorf("empty output = %q, want no-locks message", buf.String())
	}
}

func TestRenderLocksYAML(t *testing.T) {
	held := []filelock.Lock{
		{Path: "pkg/a.go", Owner: "story-1", AcquiredAt: time.Now(), PID: 123},
	}

	var buf bytes.Buffer
	if err := renderLocks(&buf, held, "yaml"); err != nil {
		t.Fatalf("renderLocks() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"path: pkg/a.go", "owner: story-1", "pid: 123"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
	// Reclaimed is transient and must not leak into reports.
	if strings.Contains(out, "reclaimed") {
		t.Errorf("yaml output leaks transient field:\n%s", out)
	}
}

func TestRenderResultYAML(t *testing.T) {
	result := &apply.Result{
		Success: true,
		DryRun:  true,
		Files: map[string]apply.FileResult{
			"a.txt": {Applied: true},
		},
	}

	var buf bytes.Buffer
	if err := renderResult(&buf, result, "yaml"); err != nil {
		t.Fatalf("renderResult() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"success: true", "dry_run: true", "a.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}
