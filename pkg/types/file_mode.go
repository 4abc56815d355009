package types

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileMode holds POSIX permission bits for the chmod action.
//
// Integers keep their YAML/TOML meaning (0o755, 0755 and 493 are equal);
// strings are always read as octal, so "755" and "0755" are equal too.
type FileMode uint32

// Perm returns the rwx permission bits only
func (m FileMode) Perm() os.FileMode {
	return os.FileMode(m) & os.ModePerm
}

// OSMode converts the mode to an os.FileMode suitable for os.Chmod,
// translating the setuid, setgid and sticky bits to Go's flags.
func (m FileMode) OSMode() os.FileMode {
	mode := m.Perm()
	if m&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if m&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if m&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

// String renders the mode in octal
func (m FileMode) String() string {
	return fmt.Sprintf("%#o", uint32(m))
}

// ParseFileMode parses an octal permission string such as "0755" or "0o644"
func ParseFileMode(s string) (FileMode, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permissions %q: %w", s, err)
	}
	return checkMode(v)
}

func checkMode(v uint64) (FileMode, error) {
	if v > 0o7777 {
		return 0, fmt.Errorf("invalid permissions %#o: only permission, setuid, setgid and sticky bits are allowed", v)
	}
	return FileMode(v), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (m *FileMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: permissions must be a scalar", value.Line)
	}
	var (
		mode FileMode
		err  error
	)
	if value.Tag == "!!int" {
		var v uint64
		v, err = strconv.ParseUint(value.Value, 0, 32)
		if err == nil {
			mode, err = checkMode(v)
		}
	} else {
		mode, err = ParseFileMode(value.Value)
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = mode
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler
func (m *FileMode) UnmarshalTOML(data interface{}) error {
	var (
		mode FileMode
		err  error
	)
	switch v := data.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("invalid permissions %d", v)
		}
		mode, err = checkMode(uint64(v))
	case string:
		mode, err = ParseFileMode(v)
	default:
		return fmt.Errorf("permissions must be an integer or an octal string, got %T", data)
	}
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
