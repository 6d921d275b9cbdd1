package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/internal/apply"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/patch"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply [patch-file]",
	Short: "Apply a story patch document to the working tree",
	Long: `Apply parses a story patch document and applies its file operations
(Add File, Update File, Delete File) to the base directory. Each file
operation is validated and applied independently; a failure on one file
never rolls back another.

In commit mode every touched path is locked for the story before it is
written, and released afterwards. With --dry-run the patch is validated
against the current tree without modifying anything or taking locks.

The patch document is read from the given file, or from stdin when the
argument is omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

var (
	applyBase     string
	applyStory    string
	applyDryRun   bool
	applyOutput   string
	applyLockWait time.Duration
)

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVar(&applyBase, "base", "", "Base directory patch paths resolve against (default: apply.base_dir or cwd)")
	applyCmd.Flags().StringVar(&applyStory, "story", "", "Story ID that owns the file locks (required unless --dry-run)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Validate the patch without modifying files or taking locks")
	applyCmd.Flags().StringVarP(&applyOutput, "output", "o", "text", "Report format: text or yaml")
	applyCmd.Flags().DurationVar(&applyLockWait, "lock-wait", -1, "How long to wait for contended locks (default: lock.acquire_wait)")
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyOutput != "text" && applyOutput != "yaml" {
		return fmt.Errorf("invalid output format %q (must be text or yaml)", applyOutput)
	}
	if !applyDryRun && applyStory == "" {
		return fmt.Errorf("--story is required unless --dry-run is set")
	}

	doc, err := readPatchDocument(args)
	if err != nil {
		return err
	}

	cs, err := patch.Parse(doc)
	if err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}

	cfg := config.Get()
	baseDir, err := resolveBaseDir(applyBase, cfg)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Close()

	locks, err := newLockManager(cfg, baseDir, log)
	if err != nil {
		return fmt.Errorf("failed to initialize lock manager: %w", err)
	}

	wait := applyLockWait
	if wait < 0 {
		wait = cfg.Lock.AcquireWait
	}

	applier := apply.New(locks, apply.WithLogger(log))
	result := applier.Apply(cmd.Context(), cs, apply.Options{
		BaseDir:  baseDir,
		Owner:    applyStory,
		DryRun:   applyDryRun,
		LockWait: wait,
	})

	if err := renderResult(cmd.OutOrStdout(), result, applyOutput); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%d of %d file(s) failed", len(result.Errors), len(result.Files))
	}
	return nil
}

// readPatchDocument reads the patch from the file named in args, or stdin
// when no file (or "-") is given.
func readPatchDocument(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read patch from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read patch file: %w", err)
	}
	return string(data), nil
}

func renderResult(w io.Writer, result *apply.Result, format string) error {
	if format == "yaml" {
		return yaml.NewEncoder(w).Encode(result)
	}

	paths := make([]string, 0, len(result.Files))
	for path := range result.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	mode := "commit"
	if result.DryRun {
		mode = "dry-run"
	}

	for _, path := range paths {
		fr := result.Files[path]
		switch {
		case fr.Applied:
			fmt.Fprintf(w, "applied  %s\n", path)
		default:
			fmt.Fprintf(w, "failed   %s: %s\n", path, fr.Error)
		}
	}

	if result.Success {
		fmt.Fprintf(w, "\n%s ok: %d file(s)\n", mode, len(result.Files))
	} else {
		fmt.Fprintf(w, "\n%s failed: %d of %d file(s)\n", mode, len(result.Errors), len(result.Files))
	}
	return nil
}
