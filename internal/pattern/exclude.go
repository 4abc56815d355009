package pattern

import (
	"filewatch/internal/errors"

	"github.com/gobwas/glob"
)

// ExcludeSet is a list of glob patterns tested against relative paths.
// "*" stays within one path segment, "**" crosses segments.
type ExcludeSet struct {
	sources []string
	globs   []glob.Glob
}

// CompileExcludes compiles every pattern or reports the first invalid one
func CompileExcludes(patterns []string) (*ExcludeSet, error) {
	set := &ExcludeSet{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.NewPatternError("invalid exclude glob", p, errors.InvalidPattern, err)
		}
		set.sources = append(set.sources, p)
		set.globs = append(set.globs, g)
	}
	return set, nil
}

// Excludes reports whether rel matches any pattern in the set
func (s *ExcludeSet) Excludes(rel string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns
func (s *ExcludeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.globs)
}

// Selector selects relative paths matched by a Matcher and not excluded
type Selector struct {
	Matcher  *Matcher
	Excludes *ExcludeSet
}

// NewSelector compiles expr and the exclude globs into one selector
func NewSelector(expr string, excludes []string) (*Selector, error) {
	m, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	ex, err := CompileExcludes(excludes)
	if err != nil {
		return nil, err
	}
	return &Selector{Matcher: m, Excludes: ex}, nil
}

// Matches implements scan.Filter
func (s *Selector) Matches(rel string) bool {
	if s.Excludes.Excludes(rel) {
		return false
	}
	return s.Matcher.Matches(rel)
}
