package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"filewatch/internal/errors"

	"gopkg.in/yaml.v3"
)

// Action is a single typed file operation bound to a watch directory and a
// pattern. Fields a kind does not use are ignored. Required fields are
// checked by Validate when the action runs, not when it is loaded.
type Action struct {
	Type           ActionType `yaml:"action" toml:"action"`                                       // What to do with each match
	WatchDir       string     `yaml:"watch_dir" toml:"watch_dir"`                                 // Root of the recursive scan
	MatchRegex     string     `yaml:"match_regex,omitempty" toml:"match_regex,omitempty"`         // Regex tested against watch_dir-relative paths
	RenamePattern  string     `yaml:"rename_pattern,omitempty" toml:"rename_pattern,omitempty"`   // Rename template ($1, ${name}, ...)
	DestinationDir string     `yaml:"destination_dir,omitempty" toml:"destination_dir,omitempty"` // Target directory for move, copy and link
	Permissions    *FileMode  `yaml:"permissions,omitempty" toml:"permissions,omitempty"`         // Mode bits for chmod
	Exclude        []string   `yaml:"exclude,omitempty" toml:"exclude,omitempty"`                 // Glob patterns of relative paths to skip
}

// Validate checks that the fields required by the action's kind are present
func (a *Action) Validate() error {
	if !a.Type.Valid() {
		return errors.NewConfigError("unknown action type", a.Type.String(), errors.InvalidConfig, nil)
	}
	if strings.TrimSpace(a.WatchDir) == "" {
		return errors.NewMissingParameter("watch_dir", a.Type.String())
	}
	if a.MatchRegex == "" {
		return errors.NewMissingParameter("match_regex", a.Type.String())
	}

	switch a.Type {
	case Rename:
		if a.RenamePattern == "" {
			return errors.NewMissingParameter("rename_pattern", a.Type.String())
		}
	case Move, Copy, Link:
		if strings.TrimSpace(a.DestinationDir) == "" {
			return errors.NewMissingParameter("destination_dir", a.Type.String())
		}
	case Chmod:
		if a.Permissions == nil {
			return errors.NewMissingParameter("permissions", a.Type.String())
		}
	}
	return nil
}

// Describe returns a one-line human readable summary of the action
func (a *Action) Describe() string {
	switch a.Type {
	case Rename:
		return fmt.Sprintf("rename %q in %s to %q", a.MatchRegex, a.WatchDir, a.RenamePattern)
	case Move, Copy, Link:
		return fmt.Sprintf("%s %q from %s to %s", a.Type, a.MatchRegex, a.WatchDir, a.DestinationDir)
	case Chmod:
		mode := "<unset>"
		if a.Permissions != nil {
			mode = a.Permissions.String()
		}
		return fmt.Sprintf("chmod %q in %s to %s", a.MatchRegex, a.WatchDir, mode)
	default:
		return fmt.Sprintf("%s %q in %s", a.Type, a.MatchRegex, a.WatchDir)
	}
}

// Rule is an ordered list of actions plus an advisory re-run interval
type Rule struct {
	Interval string   `yaml:"interval" toml:"interval"` // Informational only, never scheduled
	Actions  []Action `yaml:"actions" toml:"actions"`
}

// ParseInterval interprets the interval as a Go duration ("5m", "1h30m")
// or as a bare number of seconds ("300"). An empty interval is zero.
func (r *Rule) ParseInterval() (time.Duration, error) {
	s := strings.TrimSpace(r.Interval)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", r.Interval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid interval %q: must not be negative", r.Interval)
	}
	return d, nil
}

// NamedRule pairs a rule with its name
type NamedRule struct {
	Name string
	Rule *Rule
}

// RuleSet maps rule names to rules and remembers declaration order
type RuleSet struct {
	names []string
	rules map[string]*Rule
}

// NewRuleSet creates an empty rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]*Rule)}
}

// Add appends a rule. Names must be unique.
func (rs *RuleSet) Add(name string, rule *Rule) error {
	if rs.rules == nil {
		rs.rules = make(map[string]*Rule)
	}
	if name == "" {
		return errors.NewConfigError("rule name must not be empty", "", errors.InvalidRule, nil)
	}
	if rule == nil {
		return errors.NewRuleError("rule has no body", name, errors.InvalidRule, nil)
	}
	if _, exists := rs.rules[name]; exists {
		return errors.NewRuleError("duplicate rule name", name, errors.InvalidRule, nil)
	}
	rs.names = append(rs.names, name)
	rs.rules[name] = rule
	return nil
}

// Get returns the rule with the given name
func (rs *RuleSet) Get(name string) (*Rule, bool) {
	r, ok := rs.rules[name]
	return r, ok
}

// Names returns rule names in declaration order
func (rs *RuleSet) Names() []string {
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Rules returns the rules in declaration order
func (rs *RuleSet) Rules() []NamedRule {
	out := make([]NamedRule, 0, len(rs.names))
	for _, name := range rs.names {
		out = append(out, NamedRule{Name: name, Rule: rs.rules[name]})
	}
	return out
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	return len(rs.names)
}

// UnmarshalYAML decodes a mapping of rule name to rule, keeping key order
func (rs *RuleSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.DocumentNode && len(value.Content) == 1 {
		value = value.Content[0]
	}
	if value.Tag == "!!null" {
		*rs = *NewRuleSet()
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rules must be a mapping of rule name to rule", value.Line)
	}

	set := NewRuleSet()
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, body := value.Content[i], value.Content[i+1]
		rule := &Rule{}
		if err := body.Decode(rule); err != nil {
			return fmt.Errorf("rule %q: %w", key.Value, err)
		}
		if err := set.Add(key.Value, rule); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	*rs = *set
	return nil
}
