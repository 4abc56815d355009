package history

import (
	"sync"

	"filewatch/internal/log"
	"filewatch/internal/organize"
)

// Journal is an organize.Reporter that stores each action's results when
// the action finishes. Storage errors are logged and never stop a run.
type Journal struct {
	organize.NopReporter

	repo Repository
	run  *Run

	mu       sync.Mutex
	failures int
}

// NewJournal starts a run in repo and returns a reporter bound to it
func NewJournal(repo Repository, rulesFile string, dryRun bool) (*Journal, error) {
	run, err := repo.StartRun(rulesFile, dryRun)
	if err != nil {
		return nil, err
	}
	return &Journal{repo: repo, run: run}, nil
}

// RunID returns the ID of the journaled run
func (j *Journal) RunID() string {
	return j.run.ID
}

// ActionFinished implements organize.Reporter
func (j *Journal) ActionFinished(s organize.ActionSummary) {
	ops := make([]*Operation, 0, len(s.Results)+1)
	for _, res := range s.Results {
		ops = append(ops, OperationFromResult(j.run.ID, res))
	}
	if s.Err != nil {
		ops = append(ops, &Operation{
			RunID:       j.run.ID,
			Rule:        s.Rule,
			ActionIndex: s.Index,
			Action:      s.Type.String(),
			Outcome:     "error",
			Error:       s.Err.Error(),
			DryRun:      s.DryRun,
		})
	}
	if err := j.repo.SaveOperations(ops); err != nil {
		j.mu.Lock()
		j.failures++
		j.mu.Unlock()
		log.LogWithError(err).With(log.F("rule", s.Rule), log.F("step", s.Index)).Warn("Failed to journal action results")
	}
}

// Finish stores the run totals
func (j *Journal) Finish(summary *organize.RunSummary) error {
	j.run.Matched, j.run.Succeeded, j.run.Failed, j.run.Skipped = summary.Totals()
	j.run.Cancelled = summary.Cancelled
	return j.repo.FinishRun(j.run)
}

// Failures counts actions whose results could not be stored
func (j *Journal) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failures
}

var _ organize.Reporter = (*Journal)(nil)
