package organize_test

import (
	"os"
	"sync"
	"testing"

	"filewatch/internal/organize"
	"filewatch/pkg/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// recorder collects every notification for assertions
type recorder struct {
	mu       sync.Mutex
	rules    []string
	starts   []organize.ActionStart
	matched  []int
	files    []types.FileResult
	finished []organize.ActionSummary
	ruleDone []organize.RuleSummary
}

func (r *recorder) RuleStarted(name string, _ *types.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, name)
}

func (r *recorder) ActionStarted(start organize.ActionStart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, start)
}

func (r *recorder) FilesMatched(_ organize.ActionStart, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matched = append(r.matched, count)
}

func (r *recorder) FileProcessed(res types.FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, res)
}

func (r *recorder) ActionFinished(s organize.ActionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, s)
}

func (r *recorder) RuleFinished(s organize.RuleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ruleDone = append(r.ruleDone, s)
}

func (r *recorder) failures() []types.FileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.FileResult
	for _, f := range r.files {
		if f.Error != nil {
			out = append(out, f)
		}
	}
	return out
}

// faultyFs fails or panics on selected paths
type faultyFs struct {
	afero.Fs
	failRemove string
	panicOn    string
}

func (f *faultyFs) Remove(name string) error {
	if name == f.failRemove {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
	}
	if name == f.panicOn {
		panic("simulated crash")
	}
	return f.Fs.Remove(name)
}

func newEngine(fs afero.Fs, opts organize.Options) (*organize.Engine, *recorder) {
	e := organize.NewWithOptions(opts)
	e.SetFs(fs)
	rec := &recorder{}
	e.SetReporter(rec)
	return e, rec
}

func ref(rule string) organize.ActionRef {
	return organize.ActionRef{Rule: rule, Index: 1, Total: 1}
}

func mode(m types.FileMode) *types.FileMode {
	return &m
}

// linkFs gives an in-memory filesystem link support by copying contents
type linkFs struct {
	afero.Fs
}

func (l linkFs) Link(oldname, newname string) error {
	if _, err := l.Fs.Stat(newname); err == nil {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: os.ErrExist}
	}
	data, err := afero.ReadFile(l.Fs, oldname)
	if err != nil {
		return err
	}
	return afero.WriteFile(l.Fs, newname, data, 0o644)
}

// chdir switches the working directory for the rest of the test
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}
