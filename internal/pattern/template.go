package pattern

import (
	"path/filepath"
	"strconv"
	"strings"

	"filewatch/internal/errors"
)

// Template expands capture-group references in a rename pattern.
//
// Supported references:
//
//	$1 ${1}        numbered group
//	$name ${name}  named group
//	$$             a literal dollar sign
//
// A bare numbered reference consumes digits only, so "$1_$4" means group 1,
// an underscore, then group 4. References to groups that do not exist or
// did not participate in the match expand to the empty string.
type Template struct {
	parts []part
}

type part struct {
	literal string
	ref     bool
	index   int // -1 for named references
	name    string
}

// ParseTemplate splits tmpl into literals and references
func ParseTemplate(tmpl string) *Template {
	t := &Template{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i+1 >= len(tmpl) {
			lit.WriteByte(c)
			continue
		}

		next := tmpl[i+1]
		switch {
		case next == '$':
			lit.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				lit.WriteByte(c)
				continue
			}
			flush()
			t.parts = append(t.parts, newRef(tmpl[i+2:i+2+end]))
			i += 2 + end
		case isDigit(next):
			j := i + 1
			for j < len(tmpl) && isDigit(tmpl[j]) {
				j++
			}
			flush()
			t.parts = append(t.parts, newRef(tmpl[i+1:j]))
			i = j - 1
		case isNameStart(next):
			j := i + 1
			for j < len(tmpl) && isNameChar(tmpl[j]) {
				j++
			}
			flush()
			t.parts = append(t.parts, newRef(tmpl[i+1:j]))
			i = j - 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t
}

func newRef(name string) part {
	if n, err := strconv.Atoi(name); err == nil && n >= 0 {
		return part{ref: true, index: n}
	}
	return part{ref: true, index: -1, name: name}
}

// Expand substitutes the references in t with text from caps
func (t *Template) Expand(caps Captures) string {
	var b strings.Builder
	for _, p := range t.parts {
		if !p.ref {
			b.WriteString(p.literal)
			continue
		}
		if p.index >= 0 {
			b.WriteString(caps.Group(p.index))
			continue
		}
		text, _ := caps.Named(p.name)
		b.WriteString(text)
	}
	return b.String()
}

// RenamePath computes the rename target for abs. The path relative to root
// is matched again, its captures expand tmpl, and the result replaces the
// relative part while root is kept.
func RenamePath(root, abs string, m *Matcher, tmpl string) (string, error) {
	rel, err := Relative(root, abs)
	if err != nil {
		return "", errors.NewPatternError("cannot compute relative path for", abs, errors.TemplateFailed, err)
	}
	caps, ok := m.Capture(rel)
	if !ok {
		return "", errors.NewPatternError("path no longer matches pattern "+m.String()+":", rel, errors.CaptureFailed, nil)
	}
	expanded := ParseTemplate(tmpl).Expand(caps)
	if strings.TrimSpace(expanded) == "" {
		return "", errors.NewPatternError("rename template expanded to an empty name for", rel, errors.TemplateFailed, nil)
	}
	return filepath.Join(filepath.Clean(root), filepath.FromSlash(expanded)), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}
