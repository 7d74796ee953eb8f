// Package errors provides centralized error definitions and error handling utilities
// for svcdeck. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - SessionError: a session transition was rejected or failed
//   - ServiceError: a single service could not be spawned or stopped
//   - WalkError: the change detector could not walk a directory tree
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewSessionError("start rejected", errors.ErrAlreadyRunning).WithState("loading")
//	if errors.Is(err, errors.ErrAlreadyRunning) { ... }
//
//	var svcErr *errors.ServiceError
//	if errors.As(err, &svcErr) { log.Warn("spawn failed", "service", svcErr.Service) }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions so callers only need this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session transition sentinel errors
var (
	// ErrAlreadyRunning rejects a start while the session is not idle.
	ErrAlreadyRunning = New("already running or starting")
	// ErrNotRunning rejects a stop or restart while the session is not running.
	ErrNotRunning = New("not running")
	// ErrSupervisorClosed rejects any transition after shutdown.
	ErrSupervisorClosed = New("supervisor is closed")
	// ErrCollaboratorTimeout indicates the project path or manifest was never supplied.
	ErrCollaboratorTimeout = New("collaborator did not respond")
)

// Service sentinel errors
var (
	// ErrSpawnFailed indicates that a service process could not be started.
	ErrSpawnFailed = New("service failed to start")
	// ErrUnsupportedLanguage indicates no interpreter is configured for a language.
	ErrUnsupportedLanguage = New("unsupported service language")
	// ErrManifestInvalid indicates that the services manifest could not be used.
	ErrManifestInvalid = New("services manifest is invalid")
	// ErrProcessNotFound indicates that no live process exists for a service.
	ErrProcessNotFound = New("process not found")
)

// Filesystem sentinel errors
var (
	// ErrWalkFailed indicates that a directory could not be read during a snapshot.
	ErrWalkFailed = New("directory walk failed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DeckError is the base interface for all svcdeck errors.
type DeckError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the message is safe to display to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatPrefixed renders "<kind> [k=v, ...]: message: cause".
func formatPrefixed(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents a rejected or failed session transition.
//
// Example:
//
//	err := errors.NewSessionError("start rejected", errors.ErrAlreadyRunning).WithState("running")
//	fmt.Println(err) // "session error [state=running]: start rejected: already running or starting"
type SessionError struct {
	baseError
	State       string
	ProjectPath string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithState records the session state observed when the error occurred.
func (e *SessionError) WithState(state string) *SessionError {
	e.State = state
	return e
}

// WithProjectPath records the project the transition was operating on.
func (e *SessionError) WithProjectPath(path string) *SessionError {
	e.ProjectPath = path
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.State != "" {
		parts = append(parts, fmt.Sprintf("state=%s", e.State))
	}
	if e.ProjectPath != "" {
		parts = append(parts, fmt.Sprintf("project=%s", e.ProjectPath))
	}
	return formatPrefixed("session error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ServiceError represents a failure affecting a single service process.
//
// Example:
//
//	err := errors.NewServiceError("spawn failed", cause).WithService("auth").WithExecutable("wsl")
type ServiceError struct {
	baseError
	Service    string
	Executable string
}

// NewServiceError creates a new ServiceError.
func NewServiceError(message string, cause error) *ServiceError {
	return &ServiceError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithService adds the service name to the error context.
func (e *ServiceError) WithService(name string) *ServiceError {
	e.Service = name
	return e
}

// WithExecutable adds the executable that was launched.
func (e *ServiceError) WithExecutable(path string) *ServiceError {
	e.Executable = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *ServiceError) WithRetryable(r bool) *ServiceError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *ServiceError) Error() string {
	var parts []string
	if e.Service != "" {
		parts = append(parts, fmt.Sprintf("service=%s", e.Service))
	}
	if e.Executable != "" {
		parts = append(parts, fmt.Sprintf("exec=%s", e.Executable))
	}
	return formatPrefixed("service error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ServiceError) Is(target error) bool {
	if _, ok := target.(*ServiceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// WalkError represents a directory that could not be read during a snapshot.
type WalkError struct {
	baseError
	Path string
}

// NewWalkError creates a new WalkError for path.
func NewWalkError(path string, cause error) *WalkError {
	return &WalkError{
		baseError: baseError{
			message:   "cannot read directory",
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *WalkError) Error() string {
	return formatPrefixed("walk error", []string{fmt.Sprintf("path=%s", e.Path)}, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *WalkError) Is(target error) bool {
	if _, ok := target.(*WalkError); ok {
		return true
	}
	if errors.Is(target, ErrWalkFailed) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("manifest", "/proj/services.json")
//	fmt.Println(err) // "manifest '/proj/services.json' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("service name cannot be empty").WithField("services[2].name")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatPrefixed("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for services manifest", 30*time.Second)
//	fmt.Println(err) // "timeout error: waiting for services manifest (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var deckErr DeckError
	if As(err, &deckErr) {
		return deckErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var deckErr DeckError
	if As(err, &deckErr) {
		return deckErr.IsUserFacing()
	}

	return Is(err, ErrAlreadyRunning) || Is(err, ErrNotRunning)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DeckError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var deckErr DeckError
	if As(err, &deckErr) {
		return deckErr.Severity()
	}

	return SeverityError
}

// IsTransitionRejected reports whether err came from a session state guard
// rather than a failure while performing the transition.
func IsTransitionRejected(err error) bool {
	return Is(err, ErrAlreadyRunning) || Is(err, ErrNotRunning) || Is(err, ErrSupervisorClosed)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
