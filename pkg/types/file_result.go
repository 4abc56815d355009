package types

// FileResult holds the outcome of one action applied to one matched file
type FileResult struct {
	Rule            string     `json:"rule"`
	ActionIndex     int        `json:"action_index"` // 1-based position within the rule
	Action          ActionType `json:"action"`
	SourcePath      string     `json:"source_path"`
	DestinationPath string     `json:"destination_path,omitempty"`
	DryRun          bool       `json:"dry_run"`
	Skipped         bool       `json:"skipped"` // Nothing to do: target equals source
	Error           error      `json:"-"`
}

// OK reports whether the file was handled without error
func (r FileResult) OK() bool {
	return r.Error == nil
}

// Applied reports whether the filesystem was actually changed
func (r FileResult) Applied() bool {
	return r.Error == nil && !r.DryRun && !r.Skipped
}

// Outcome is a short label for logs and metrics: "ok", "planned", "skipped" or "failed"
func (r FileResult) Outcome() string {
	switch {
	case r.Error != nil:
		return "failed"
	case r.Skipped:
		return "skipped"
	case r.DryRun:
		return "planned"
	default:
		return "ok"
	}
}
