// Package config loads rule files.
//
// A rule file is a mapping of rule name to rule, in YAML or TOML:
//
//	photos:
//	  interval: 5m
//	  actions:
//	    - action: rename
//	      watch_dir: ~/Pictures/inbox
//	      match_regex: '^IMG_(\d{4})(\d{2})(\d{2})_(.+)\.jpg$'
//	      rename_pattern: '$1/$2/$3_$4.jpg'
//
// Rules keep the order they are declared in. Directory fields expand "~"
// and environment variables. Required action fields are not checked here;
// see Validate.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filewatch/internal/errors"
	"filewatch/internal/log"
	"filewatch/internal/pattern"
	"filewatch/pkg/types"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the configuration and state directories
const AppName = "filewatch"

// Format is a rule file syntax
type Format int

const (
	YAML Format = iota
	TOML
)

func (f Format) String() string {
	if f == TOML {
		return "toml"
	}
	return "yaml"
}

// FormatOf picks the syntax from the file extension. Anything that is not
// .toml is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML
	}
	return YAML
}

// DefaultPath returns $XDG_CONFIG_HOME/filewatch/rules.yaml
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "rules.yaml")
}

// Load reads and parses the rule file at path
func Load(path string) (*types.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError("rule file not found", path, errors.ConfigNotFound, err)
		}
		return nil, errors.NewConfigError("failed to read rule file", path, errors.InvalidConfig, err)
	}

	rs, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, errors.NewConfigError("failed to parse rule file", path, errors.InvalidConfig, err)
	}

	log.LogWithFields(log.F("path", path), log.F("rules", rs.Len())).Debug("Loaded rule file")
	return rs, nil
}

// Parse decodes a rule document and expands directory fields
func Parse(data []byte, format Format) (*types.RuleSet, error) {
	var (
		rs  *types.RuleSet
		err error
	)
	switch format {
	case TOML:
		rs, err = parseTOML(data)
	default:
		rs, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	for _, nr := range rs.Rules() {
		for i := range nr.Rule.Actions {
			a := &nr.Rule.Actions[i]
			a.WatchDir = ExpandPath(a.WatchDir)
			a.DestinationDir = ExpandPath(a.DestinationDir)
		}
	}
	return rs, nil
}

func parseYAML(data []byte) (*types.RuleSet, error) {
	rs := types.NewRuleSet()
	if len(bytes.TrimSpace(data)) == 0 {
		return rs, nil
	}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func parseTOML(data []byte) (*types.RuleSet, error) {
	var rules map[string]*types.Rule
	md, err := toml.Decode(string(data), &rules)
	if err != nil {
		return nil, err
	}
	for _, key := range md.Undecoded() {
		log.LogWithFields(log.F("key", key.String())).Warn("Ignoring unknown key in rule file")
	}

	// Map iteration order is random; MetaData.Keys follows the document.
	rs := types.NewRuleSet()
	for _, key := range md.Keys() {
		if len(key) == 0 {
			continue
		}
		name := key[0]
		if _, seen := rs.Get(name); seen {
			continue
		}
		rule, ok := rules[name]
		if !ok {
			continue
		}
		if err := rs.Add(name, rule); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// ExpandPath expands a leading "~" and $VAR or ${VAR} references
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		p = xdg.Home
	} else if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		p = filepath.Join(xdg.Home, p[2:])
	}
	return os.ExpandEnv(p)
}

// Validate statically checks every rule and returns all problems found.
// The engine performs the same checks lazily when an action runs.
func Validate(rs *types.RuleSet) []error {
	var problems []error
	for _, nr := range rs.Rules() {
		if _, err := nr.Rule.ParseInterval(); err != nil {
			problems = append(problems, errors.NewRuleError("invalid interval", nr.Name, errors.InvalidRule, err))
		}
		if len(nr.Rule.Actions) == 0 {
			problems = append(problems, errors.NewRuleError("rule has no actions", nr.Name, errors.InvalidRule, nil))
		}
		for i := range nr.Rule.Actions {
			a := &nr.Rule.Actions[i]
			where := fmt.Sprintf("action %d/%d", i+1, len(nr.Rule.Actions))
			if err := a.Validate(); err != nil {
				problems = append(problems, errors.NewRuleError(where, nr.Name, errors.InvalidRule, err))
				continue
			}
			if _, err := pattern.NewSelector(a.MatchRegex, a.Exclude); err != nil {
				problems = append(problems, errors.NewRuleError(where, nr.Name, errors.InvalidRule, err))
			}
			if a.Type == types.Rename && !strings.Contains(a.RenamePattern, "$") {
				log.LogWithFields(log.F("rule", nr.Name), log.F("action", i+1)).
					Warn("rename_pattern has no capture references, every match gets the same name")
			}
		}
	}
	return problems
}
