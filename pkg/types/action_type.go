package types

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionType defines what kind of operation an action performs on each matched file
type ActionType int

const (
	// Move copies a file into the destination directory, then removes the original
	Move ActionType = iota + 1
	// Rename renames a file in place using a capture-group template
	Rename
	// Delete removes a file
	Delete
	// Copy copies a file into the destination directory
	Copy
	// Link creates a hard link in the destination directory
	Link
	// Chmod changes the permission bits of a file
	Chmod
)

var actionTypeNames = map[ActionType]string{
	Move:   "move",
	Rename: "rename",
	Delete: "delete",
	Copy:   "copy",
	Link:   "link",
	Chmod:  "chmod",
}

// ActionTypes lists every action type in declaration order
func ActionTypes() []ActionType {
	return []ActionType{Move, Rename, Delete, Copy, Link, Chmod}
}

// ParseActionType parses a case-insensitive action name
func ParseActionType(s string) (ActionType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range actionTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q (expected one of move, rename, delete, copy, link, chmod)", s)
}

// String returns the lower-case action name
func (t ActionType) String() string {
	if n, ok := actionTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(t))
}

// Valid reports whether t is one of the known action types
func (t ActionType) Valid() bool {
	_, ok := actionTypeNames[t]
	return ok
}

// UnmarshalText implements encoding.TextUnmarshaler (used by the TOML decoder)
func (t *ActionType) UnmarshalText(text []byte) error {
	parsed, err := ParseActionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (t ActionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (t *ActionType) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: action must be a string", value.Line)
	}
	parsed, err := ParseActionType(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = parsed
	return nil
}
