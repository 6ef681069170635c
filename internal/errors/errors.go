package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the different failure classes of the trading core
type ErrorCategory string

const (
	// Validation errors surfaced synchronously to the caller
	ErrorCategoryInvalidOrder ErrorCategory = "INVALID_ORDER"
	ErrorCategoryNotFound     ErrorCategory = "NOT_FOUND"
	ErrorCategoryInvalidState ErrorCategory = "INVALID_STATE"

	// Execution engine errors
	ErrorCategoryInsufficientData ErrorCategory = "INSUFFICIENT_DATA"
	ErrorCategoryUnknownStrategy  ErrorCategory = "UNKNOWN_STRATEGY"

	// Rule evaluation errors are caught and logged inside the rules engine
	ErrorCategoryRuleEvaluation ErrorCategory = "RULE_EVALUATION"
)

// CoreError is a categorized error with component context
type CoreError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// WithDetail adds context information to the error
func (e *CoreError) WithDetail(key string, value interface{}) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new categorized core error
func New(category ErrorCategory, component, operation, message string) *CoreError {
	return &CoreError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Details:   make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with core error context
func Wrap(err error, category ErrorCategory, component, operation string) *CoreError {
	if err == nil {
		return nil
	}
	return &CoreError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// Common error constructors

func NewInvalidOrderError(component, operation, message string) *CoreError {
	return New(ErrorCategoryInvalidOrder, component, operation, message)
}

func NewNotFoundError(component, operation, message string) *CoreError {
	return New(ErrorCategoryNotFound, component, operation, message)
}

func NewInvalidStateError(component, operation, message string) *CoreError {
	return New(ErrorCategoryInvalidState, component, operation, message)
}

func NewInsufficientDataError(component, operation, message string) *CoreError {
	return New(ErrorCategoryInsufficientData, component, operation, message)
}

func NewUnknownStrategyError(component, operation, message string) *CoreError {
	return New(ErrorCategoryUnknownStrategy, component, operation, message)
}

func NewRuleEvaluationError(component, operation string, err error) *CoreError {
	return Wrap(err, ErrorCategoryRuleEvaluation, component, operation)
}

// IsCategory reports whether err is a CoreError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Category == category
	}
	return false
}

func IsInvalidOrder(err error) bool     { return IsCategory(err, ErrorCategoryInvalidOrder) }
func IsNotFound(err error) bool         { return IsCategory(err, ErrorCategoryNotFound) }
func IsInvalidState(err error) bool     { return IsCategory(err, ErrorCategoryInvalidState) }
func IsInsufficientData(err error) bool { return IsCategory(err, ErrorCategoryInsufficientData) }
func IsUnknownStrategy(err error) bool  { return IsCategory(err, ErrorCategoryUnknownStrategy) }
