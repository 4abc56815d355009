// Package pattern holds the regular expression matcher used by actions and
// the capture-group templater used to compute rename targets.
//
// Patterns are always tested against the path relative to the watch
// directory, slash separated and without a leading separator, so a rule
// written as `^(\d{4})/.*\.jpg$` behaves the same on every platform.
package pattern

import (
	"path/filepath"
	"regexp"
	"strings"

	"filewatch/internal/errors"
)

// Matcher wraps a compiled regular expression
type Matcher struct {
	expr string
	re   *regexp.Regexp
}

// Compile compiles expr once. Invalid syntax yields a PatternError.
func Compile(expr string) (*Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.NewPatternError("invalid regular expression", expr, errors.InvalidPattern, err)
	}
	return &Matcher{expr: expr, re: re}, nil
}

// MustCompile is Compile for expressions known to be valid
func MustCompile(expr string) *Matcher {
	m, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the source expression
func (m *Matcher) String() string {
	return m.expr
}

// Matches tests a watch-root-relative path
func (m *Matcher) Matches(rel string) bool {
	return m.re.MatchString(rel)
}

// MatchPath strips root from abs and tests the remainder. Paths outside
// root never match.
func (m *Matcher) MatchPath(root, abs string) bool {
	rel, err := Relative(root, abs)
	if err != nil {
		return false
	}
	return m.Matches(rel)
}

// Capture is one group of a match. Index 0 is the whole match.
type Capture struct {
	Index   int
	Name    string // empty for unnamed groups
	Text    string
	Matched bool // false for optional groups that did not participate
}

// Captures is the ordered capture set of one match
type Captures []Capture

// Group returns the text of the numbered group, or "" when absent
func (c Captures) Group(i int) string {
	if i < 0 || i >= len(c) {
		return ""
	}
	return c[i].Text
}

// Named returns the text of the named group, or "" when absent
func (c Captures) Named(name string) (string, bool) {
	for _, g := range c {
		if g.Name != "" && g.Name == name {
			return g.Text, true
		}
	}
	return "", false
}

// Capture runs the expression against rel and returns its capture set
func (m *Matcher) Capture(rel string) (Captures, bool) {
	idx := m.re.FindStringSubmatchIndex(rel)
	if idx == nil {
		return nil, false
	}
	names := m.re.SubexpNames()
	caps := make(Captures, len(names))
	for i := range names {
		c := Capture{Index: i, Name: names[i]}
		if start, end := idx[2*i], idx[2*i+1]; start >= 0 {
			c.Text = rel[start:end]
			c.Matched = true
		}
		caps[i] = c
	}
	return caps, true
}

// Relative returns abs relative to root in slash form with no leading
// separator. It fails when abs does not live under root.
func Relative(root, abs string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(abs))
	if err != nil {
		return "", errors.NewFileError("path is not under watch directory", abs, errors.InvalidPath, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.NewFileError("path is not under watch directory", abs, errors.InvalidPath, nil)
	}
	return rel, nil
}
