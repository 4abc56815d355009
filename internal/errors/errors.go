// Package errors provides standardized error handling for filewatch.
// It defines the error taxonomy of the rule engine (configuration, pattern,
// scan, template and per-file I/O failures) plus helpers for consistent
// creation, wrapping and inspection of errors across the application.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Standard errors package errors that we re-export for convenience
var (
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	FileCreateFailed
	FileOperationFailed
	InvalidOperation
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	MissingParameter
	// Pattern error kinds
	InvalidPattern
	CaptureFailed
	TemplateFailed
	// Scan error kinds
	ScanFailed
	// Rule error kinds
	InvalidRule
	ActionFailed
	// Database error kinds
	DatabaseOperationFailed
	InvalidInputData
)

var kindNames = map[ErrorKind]string{
	Unknown:                 "unknown",
	FileNotFound:            "file not found",
	FileAccessDenied:        "file access denied",
	InvalidPath:             "invalid path",
	FileCreateFailed:        "file create failed",
	FileOperationFailed:     "file operation failed",
	InvalidOperation:        "invalid operation",
	InvalidConfig:           "invalid config",
	ConfigNotFound:          "config not found",
	MissingParameter:        "missing parameter",
	InvalidPattern:          "invalid pattern",
	CaptureFailed:           "capture failed",
	TemplateFailed:          "template failed",
	ScanFailed:              "scan failed",
	InvalidRule:             "invalid rule",
	ActionFailed:            "action failed",
	DatabaseOperationFailed: "database operation failed",
	InvalidInputData:        "invalid input data",
}

// String returns a short human readable name for the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

func base(msg string, kind ErrorKind, err error) ApplicationError {
	return ApplicationError{msg: msg, err: err, kind: kind}
}

// describe renders "msg: subject: cause", leaving out what is empty
func (e *ApplicationError) describe(subject string) string {
	if subject == "" {
		return e.Error()
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.msg, subject, e.err)
	}
	return e.msg + ": " + subject
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{ApplicationError: base(msg, kind, err), path: path}
}

// Error returns the file error message
func (e *FileError) Error() string {
	return e.describe(e.path)
}

// NewFileOpError wraps an OS error from a per-file operation, classifying
// missing files and permission failures into their own kinds.
func NewFileOpError(op string, path string, err error) *FileError {
	kind := FileOperationFailed
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = FileNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = FileAccessDenied
	}
	return NewFileError("failed to "+op, path, kind, err)
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{ApplicationError: base(msg, kind, err), param: param}
}

// NewMissingParameter reports a field an action kind requires but does not have
func NewMissingParameter(param string, action string) *ConfigError {
	return NewConfigError(fmt.Sprintf("%s is required for %s action", param, action), param, MissingParameter, nil)
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.kind == MissingParameter {
		// the message already names the parameter
		return e.ApplicationError.Error()
	}
	return e.describe(e.param)
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// PatternError represents an unusable regular expression or glob, or a
// capture that failed against a path expected to match.
type PatternError struct {
	ApplicationError
	pattern string
}

// NewPatternError creates a new pattern error
func NewPatternError(msg string, pattern string, kind ErrorKind, err error) *PatternError {
	return &PatternError{ApplicationError: base(msg, kind, err), pattern: pattern}
}

// Error returns the pattern error message
func (e *PatternError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s %q: %v", e.msg, e.pattern, e.err)
	}
	return fmt.Sprintf("%s %q", e.msg, e.pattern)
}

// Pattern returns the offending expression
func (e *PatternError) Pattern() string {
	return e.pattern
}

// ScanError represents a watch directory that could not be enumerated
type ScanError struct {
	ApplicationError
	root string
}

// NewScanError creates a new scan error
func NewScanError(msg string, root string, err error) *ScanError {
	return &ScanError{ApplicationError: base(msg, ScanFailed, err), root: root}
}

// Error returns the scan error message
func (e *ScanError) Error() string {
	return e.describe(e.root)
}

// Root returns the watch directory that failed
func (e *ScanError) Root() string {
	return e.root
}

// RuleError represents errors related to rules and their actions
type RuleError struct {
	ApplicationError
	ruleName string
}

// NewRuleError creates a new rule error
func NewRuleError(msg string, ruleName string, kind ErrorKind, err error) *RuleError {
	return &RuleError{ApplicationError: base(msg, kind, err), ruleName: ruleName}
}

// Error returns the rule error message
func (e *RuleError) Error() string {
	return e.describe(e.ruleName)
}

// RuleName returns the rule name associated with the error
func (e *RuleError) RuleName() string {
	return e.ruleName
}

// New creates a new error with a message
func New(msg string) error {
	a := base(msg, Unknown, nil)
	return &a
}

// NewInvalidInputError reports a caller passing unusable data
func NewInvalidInputError(msg string, err error) error {
	a := base(msg, InvalidInputData, err)
	return &a
}

// kinded is satisfied by every error type in this package
type kinded interface {
	Kind() ErrorKind
}

// hasKind reports whether err's chain holds a T of the given kind
func hasKind[T kinded](err error, kind ErrorKind) bool {
	var target T
	return errors.As(err, &target) && target.Kind() == kind
}

// KindOf returns the kind of the first application error in err's chain
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(kinded); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	return hasKind[*FileError](err, FileNotFound)
}

// IsFileAccessDenied checks if the error is a file access denied error
func IsFileAccessDenied(err error) bool {
	return hasKind[*FileError](err, FileAccessDenied)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	return hasKind[*ConfigError](err, InvalidConfig)
}

// IsMissingParameter checks if the error reports a missing action field
func IsMissingParameter(err error) bool {
	return hasKind[*ConfigError](err, MissingParameter)
}

// IsPatternError checks if the error is a pattern or template error
func IsPatternError(err error) bool {
	var patternErr *PatternError
	return errors.As(err, &patternErr)
}

// IsScanError checks if the error is a directory scan error
func IsScanError(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr)
}

// IsInvalidRule checks if the error is an invalid rule error
func IsInvalidRule(err error) bool {
	return hasKind[*RuleError](err, InvalidRule)
}

// DatabaseError represents errors related to database operations
type DatabaseError struct {
	ApplicationError
	operation string
	context   map[string]interface{}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, err error) *DatabaseError {
	return &DatabaseError{
		ApplicationError: base(msg, DatabaseOperationFailed, err),
		context:          make(map[string]interface{}),
	}
}

// WithOperation adds operation information to the database error
func (e *DatabaseError) WithOperation(operation string) *DatabaseError {
	e.operation = operation
	return e
}

// WithContext adds context information to the database error
func (e *DatabaseError) WithContext(key string, value interface{}) *DatabaseError {
	e.context[key] = value
	return e
}

// Error returns the database error message
func (e *DatabaseError) Error() string {
	if e.operation == "" {
		return e.ApplicationError.Error()
	}
	return e.describe("operation=" + e.operation)
}

// Operation returns the database operation associated with the error
func (e *DatabaseError) Operation() string {
	return e.operation
}

// Context returns the context information associated with the error
func (e *DatabaseError) Context() map[string]interface{} {
	return e.context
}

// IsDatabaseError checks if the error is a database error
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}
