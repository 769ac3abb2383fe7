// Package errors provides centralized error definitions and error handling utilities
// for suitepilot. It defines the category × severity taxonomy used by the
// resolver, the resource pool, the queue and the orchestrator, domain error
// types with context builders, and classification helpers.
//
// # Error Types
//
// Domain-specific errors carry a [Category]:
//   - ConfigurationError: bad plan or insufficient resources at start time
//   - ResourceError: a reservation could not be satisfied
//   - DependencyError: missing references or cycles between suites
//   - RunError: suite-level failures and runner exceptions
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewResourceError("reservation failed", errors.ErrInsufficientResources).
//	    WithSessionID("s1").
//	    WithShortfall("memory", 30, 20)
//
//	if errors.Is(err, errors.ErrInsufficientResources) { ... }
//	if errors.CategoryOf(err) == errors.CategoryResource { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
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
	// SeverityLow is for errors that are informational.
	SeverityLow Severity = iota
	// SeverityMedium is for errors that might indicate a problem.
	SeverityMedium
	// SeverityHigh is for errors that indicate a real problem.
	SeverityHigh
	// SeverityCritical is for errors that abort a session.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity as its string form.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity written by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Category classifies where an error originated.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryResource      Category = "resource"
	CategoryDependency    Category = "dependency"
	CategoryExecution     Category = "execution"
	// CategoryTimeout is reserved; nothing in the core raises it directly.
	CategoryTimeout Category = "timeout"
	CategoryUnknown Category = "unknown"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Resolver sentinel errors
var (
	// ErrMissingDependency indicates a suite references an unknown suite id.
	ErrMissingDependency = New("missing dependency")
	// ErrDependencyCycle indicates a circular dependency between suites.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrDuplicateSuite indicates two suites share an id.
	ErrDuplicateSuite = New("duplicate suite id")
)

// Resource pool sentinel errors
var (
	// ErrInsufficientResources indicates a reservation exceeded available capacity.
	ErrInsufficientResources = New("insufficient resources")
	// ErrLimitsBelowUsage indicates new limits would not cover current usage.
	ErrLimitsBelowUsage = New("limits below current usage")
)

// Queue sentinel errors
var (
	// ErrQueueFull indicates the queue is at capacity.
	ErrQueueFull = New("queue is full")
	// ErrRetriesExhausted indicates a queued item used all of its retries.
	ErrRetriesExhausted = New("retries exhausted")
)

// Session sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionNotRunning indicates the operation requires a running session.
	ErrSessionNotRunning = New("session is not running")
	// ErrSessionNotQueued indicates the session is not waiting in the queue.
	ErrSessionNotQueued = New("session is not queued")
	// ErrOrchestratorStopped indicates the orchestrator no longer accepts work.
	ErrOrchestratorStopped = New("orchestrator stopped")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CategorizedError is implemented by every error type in this package.
type CategorizedError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Category returns where the error originated.
	Category() Category

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	category  Category
	severity  Severity
	retryable bool
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

// Category returns the error category.
func (e *baseError) Category() Category {
	return e.category
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// Message returns the message without context or cause.
func (e *baseError) Message() string {
	return e.message
}

// format renders "prefix [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ConfigurationError is raised synchronously by session start when the
// configuration cannot produce a runnable plan. It is critical and never retried.
type ConfigurationError struct {
	baseError
	SessionID       string
	ConfigurationID string
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			category: CategoryConfiguration,
			severity: SeverityCritical,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *ConfigurationError) WithSessionID(id string) *ConfigurationError {
	e.SessionID = id
	return e
}

// WithConfigurationID adds a configuration ID to the error context.
func (e *ConfigurationError) WithConfigurationID(id string) *ConfigurationError {
	e.ConfigurationID = id
	return e
}

// Error returns the formatted error message.
func (e *ConfigurationError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.ConfigurationID != "" {
		parts = append(parts, fmt.Sprintf("config=%s", e.ConfigurationID))
	}
	return e.format("configuration error", parts)
}

// Is checks if this error matches the target.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// Shortfall describes one resource dimension that could not be satisfied.
type Shortfall struct {
	Dimension string
	Requested float64
	Available float64
}

// String renders the shortfall as "insufficient memory: requested 30, available 20".
func (s Shortfall) String() string {
	return fmt.Sprintf("insufficient %s: requested %g, available %g", s.Dimension, s.Requested, s.Available)
}

// ResourceError represents a reservation or limit change the pool refused.
type ResourceError struct {
	baseError
	SessionID  string
	Shortfalls []Shortfall
}

// NewResourceError creates a new ResourceError.
func NewResourceError(message string, cause error) *ResourceError {
	return &ResourceError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			category:  CategoryResource,
			severity:  SeverityHigh,
			retryable: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *ResourceError) WithSessionID(id string) *ResourceError {
	e.SessionID = id
	return e
}

// WithShortfall records a dimension that could not be satisfied.
func (e *ResourceError) WithShortfall(dimension string, requested, available float64) *ResourceError {
	e.Shortfalls = append(e.Shortfalls, Shortfall{Dimension: dimension, Requested: requested, Available: available})
	return e
}

// WithSeverity sets the error severity.
func (e *ResourceError) WithSeverity(s Severity) *ResourceError {
	e.severity = s
	return e
}

// Error returns the formatted error message, listing every shortfall.
func (e *ResourceError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	msg := e.format("resource error", parts)
	if len(e.Shortfalls) > 0 {
		details := make([]string, len(e.Shortfalls))
		for i, s := range e.Shortfalls {
			details[i] = s.String()
		}
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(details, "; "))
	}
	return msg
}

// Is checks if this error matches the target.
func (e *ResourceError) Is(target error) bool {
	_, ok := target.(*ResourceError)
	return ok
}

// DependencyError represents a missing reference or cycle among suites.
type DependencyError struct {
	baseError
	SuiteID      string
	DependencyID string
	Cycle        []string
}

// NewDependencyError creates a new DependencyError.
func NewDependencyError(message string, cause error) *DependencyError {
	return &DependencyError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			category: CategoryDependency,
			severity: SeverityCritical,
		},
	}
}

// WithSuiteID adds the suite whose dependency is broken.
func (e *DependencyError) WithSuiteID(id string) *DependencyError {
	e.SuiteID = id
	return e
}

// WithDependencyID adds the referenced dependency id.
func (e *DependencyError) WithDependencyID(id string) *DependencyError {
	e.DependencyID = id
	return e
}

// WithCycle records the offending cycle path.
func (e *DependencyError) WithCycle(path []string) *DependencyError {
	e.Cycle = append([]string(nil), path...)
	return e
}

// Error returns the formatted error message.
func (e *DependencyError) Error() string {
	var parts []string
	if e.SuiteID != "" {
		parts = append(parts, fmt.Sprintf("suite=%s", e.SuiteID))
	}
	if e.DependencyID != "" {
		parts = append(parts, fmt.Sprintf("dependency=%s", e.DependencyID))
	}
	if len(e.Cycle) > 0 {
		parts = append(parts, fmt.Sprintf("cycle=%s", strings.Join(e.Cycle, " -> ")))
	}
	return e.format("dependency error", parts)
}

// Is checks if this error matches the target.
func (e *DependencyError) Is(target error) bool {
	_, ok := target.(*DependencyError)
	return ok
}

// RunError represents a failure while executing a session, phase or suite.
type RunError struct {
	baseError
	SessionID string
	PhaseID   string
	SuiteID   string
}

// NewRunError creates a new RunError.
func NewRunError(message string, cause error) *RunError {
	return &RunError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			category: CategoryExecution,
			severity: SeverityHigh,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *RunError) WithSessionID(id string) *RunError {
	e.SessionID = id
	return e
}

// WithPhaseID adds a phase ID to the error context.
func (e *RunError) WithPhaseID(id string) *RunError {
	e.PhaseID = id
	return e
}

// WithSuiteID adds a suite ID to the error context.
func (e *RunError) WithSuiteID(id string) *RunError {
	e.SuiteID = id
	return e
}

// WithSeverity sets the error severity.
func (e *RunError) WithSeverity(s Severity) *RunError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *RunError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.PhaseID != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.PhaseID))
	}
	if e.SuiteID != "" {
		parts = append(parts, fmt.Sprintf("suite=%s", e.SuiteID))
	}
	return e.format("execution error", parts)
}

// Is checks if this error matches the target.
func (e *RunError) Is(target error) bool {
	_, ok := target.(*RunError)
	return ok
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("session", "abc123")
//	fmt.Println(err) // "session 'abc123' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			category: CategoryUnknown,
			severity: SeverityMedium,
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
	_, ok := target.(*NotFoundError)
	return ok
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("concurrency level must be positive").
//	    WithField("concurrencyLevel").WithValue(0)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			category: CategoryConfiguration,
			severity: SeverityMedium,
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
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// CategoryOf returns the category of err, or CategoryUnknown when err does
// not carry one.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var ce CategorizedError
	if As(err, &ce) {
		return ce.Category()
	}
	if Is(err, ErrTimeout) {
		return CategoryTimeout
	}
	return CategoryUnknown
}

// GetSeverity returns the severity level of the error.
// Returns SeverityHigh for errors that don't implement CategorizedError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	var ce CategorizedError
	if As(err, &ce) {
		return ce.Severity()
	}
	return SeverityHigh
}

// IsRetryable returns true if the error represents a transient condition.
// Resource shortfalls are retryable; configuration and dependency errors
// are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce CategorizedError
	if As(err, &ce) {
		return ce.IsRetryable()
	}
	return Is(err, ErrTimeout)
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
