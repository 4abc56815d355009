package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())

	var appErr *ApplicationError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, Unknown, appErr.Kind())
}

func TestWrappedChains(t *testing.T) {
	origErr := NewFileError("cannot read", "/a", FileAccessDenied, fs.ErrPermission)
	wrappedErr := fmt.Errorf("rule docs: %w", origErr)
	assert.ErrorIs(t, wrappedErr, origErr)

	deepWrapped := fmt.Errorf("run: %w", wrappedErr)
	assert.Equal(t, "run: rule docs: cannot read: /a: permission denied", deepWrapped.Error())
	assert.True(t, Is(deepWrapped, origErr))
	assert.True(t, Is(deepWrapped, fs.ErrPermission))
	assert.True(t, IsFileAccessDenied(deepWrapped))
}

func TestFileError(t *testing.T) {
	fileErr := NewFileError("cannot access", "/path/to/file", FileAccessDenied, nil)
	assert.Equal(t, "cannot access: /path/to/file", fileErr.Error())
	assert.Equal(t, "/path/to/file", fileErr.Path())
	assert.Equal(t, FileAccessDenied, fileErr.Kind())

	origErr := fmt.Errorf("permission denied")
	fileErr = NewFileError("cannot access", "/path/to/file", FileAccessDenied, origErr)
	assert.Equal(t, "cannot access: /path/to/file: permission denied", fileErr.Error())
	assert.Equal(t, origErr, fileErr.Unwrap())
	assert.True(t, IsFileAccessDenied(fileErr))
	assert.False(t, IsFileNotFound(fileErr))
}

func TestFileOpErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, FileNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, FileAccessDenied},
		{"other", fmt.Errorf("disk full"), FileOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileOpError("copy file", "/x", tt.err)
			assert.Equal(t, tt.kind, err.Kind())
			assert.Equal(t, tt.kind, KindOf(fmt.Errorf("outer: %w", err)))
			assert.True(t, Is(err, tt.err))
		})
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "interval", InvalidConfig, nil)
	assert.Equal(t, "invalid value: interval", err.Error())
	assert.True(t, IsInvalidConfig(err))
	assert.False(t, IsMissingParameter(err))

	missing := NewMissingParameter("destination_dir", "move")
	assert.Equal(t, "destination_dir is required for move action", missing.Error())
	assert.Equal(t, "destination_dir", missing.Param())
	assert.True(t, IsMissingParameter(fmt.Errorf("rule downloads: %w", missing)))
}

func TestPatternAndScanErrors(t *testing.T) {
	patternErr := NewPatternError("invalid regular expression", "(", InvalidPattern, fmt.Errorf("missing closing )"))
	assert.Equal(t, `invalid regular expression "(": missing closing )`, patternErr.Error())
	assert.Equal(t, "(", patternErr.Pattern())
	assert.True(t, IsPatternError(fmt.Errorf("action 1: %w", patternErr)))
	assert.False(t, IsScanError(patternErr))

	scanErr := NewScanError("cannot read watch directory", "/missing", fs.ErrNotExist)
	assert.Equal(t, "/missing", scanErr.Root())
	assert.Equal(t, ScanFailed, scanErr.Kind())
	assert.True(t, IsScanError(scanErr))
	assert.True(t, Is(scanErr, fs.ErrNotExist))
}

func TestRuleError(t *testing.T) {
	cause := NewMissingParameter("match_regex", "delete")
	ruleErr := NewRuleError("action 2 failed", "cleanup", ActionFailed, cause)
	assert.Equal(t, "action 2 failed: cleanup: match_regex is required for delete action", ruleErr.Error())
	assert.Equal(t, "cleanup", ruleErr.RuleName())
	assert.True(t, IsMissingParameter(ruleErr))
	assert.False(t, IsInvalidRule(ruleErr))
}

func TestDatabaseError(t *testing.T) {
	dbErr := NewDatabaseError("failed to save", fmt.Errorf("locked")).WithOperation("insert")
	dbErr.WithContext("table", "operations")
	assert.Equal(t, "failed to save: operation=insert: locked", dbErr.Error())
	assert.Equal(t, "operations", dbErr.Context()["table"])
	assert.True(t, IsDatabaseError(fmt.Errorf("history: %w", dbErr)))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "missing parameter", MissingParameter.String())
	assert.Equal(t, "kind(999)", ErrorKind(999).String())
	assert.Equal(t, Unknown, KindOf(nil))
	assert.Equal(t, Unknown, KindOf(fmt.Errorf("plain")))
}

func TestInvalidInputError(t *testing.T) {
	cause := New("empty")
	err := NewInvalidInputError("run cannot be nil", cause)
	assert.Equal(t, InvalidInputData, KindOf(err))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "run cannot be nil")
}
