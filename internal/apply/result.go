package apply

// FileResult is the outcome of all operations targeting one path.
type FileResult struct {
	Applied bool   `json:"applied" yaml:"applied"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result aggregates per-file outcomes for one apply invocation.
// Success is true only if every operation succeeded. Errors preserves
// failure messages in operation order. A Result is built fresh per
// invocation and never persisted.
type Result struct {
	Success bool                  `json:"success" yaml:"success"`
	DryRun  bool                  `json:"dry_run" yaml:"dry_run"`
	Files   map[string]FileResult `json:"files" yaml:"files"`
	Errors  []string              `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// newResult creates an empty successful Result.
func newResult(dryRun bool) *Result {
	return &Result{
		Success: true,
		DryRun:  dryRun,
		Files:   make(map[string]FileResult),
	}
}

// record folds one operation's outcome into the per-file mapping. A path
// touched by several operations counts as applied only if all of them
// succeeded; the first failure's message is kept.
func (r *Result) record(path string, err error) {
	prev, seen := r.Files[path]

	fr := FileResult{Applied: err == nil && (!seen || prev.Applied)}
	if seen && prev.Error != "" {
		fr.Error = prev.Error
	}
	if err != nil {
		if fr.Error == "" {
			fr.Error = err.Error()
		}
		r.Errors = append(r.Errors, err.Error())
		r.Success = false
	}

	r.Files[path] = fr
}
