package entity

import (
	"errors"
	"fmt"
)

var (
	ErrElementNotFound        = errors.New("element not found")
	ErrElementNotVisible      = errors.New("element not visible")
	ErrElementNotInteractable = errors.New("element not interactable")
	ErrTimeout                = errors.New("timeout")
	ErrNavigation             = errors.New("navigation failed")
	ErrBackend                = errors.New("backend failure")
	ErrValidation             = errors.New("invalid parameters")
	ErrUnknownAction          = errors.New("unknown action type")
)

type ErrorCategory string

const (
	CategoryElementNotFound        ErrorCategory = "ELEMENT_NOT_FOUND"
	CategoryElementNotVisible      ErrorCategory = "ELEMENT_NOT_VISIBLE"
	CategoryElementNotInteractable ErrorCategory = "ELEMENT_NOT_INTERACTABLE"
	CategoryTimeout                ErrorCategory = "TIMEOUT"
	CategoryNavigation             ErrorCategory = "NAVIGATION_FAILED"
	CategoryBackend                ErrorCategory = "BACKEND_FAILURE"
	CategoryValidation             ErrorCategory = "VALIDATION"
)

// Recoverable reports whether the loop should keep going after an error of
// this category. Validation errors end the subtask.
func (c ErrorCategory) Recoverable() bool {
	return c != CategoryValidation
}

// categorySentinels is ordered: CategoryOf reports the first match, so the
// more specific categories come before the generic backend failure.
var categorySentinels = []struct {
	category ErrorCategory
	sentinel error
}{
	{CategoryValidation, ErrValidation},
	{CategoryElementNotFound, ErrElementNotFound},
	{CategoryElementNotVisible, ErrElementNotVisible},
	{CategoryElementNotInteractable, ErrElementNotInteractable},
	{CategoryTimeout, ErrTimeout},
	{CategoryNavigation, ErrNavigation},
	{CategoryBackend, ErrBackend},
}

func sentinelOf(c ErrorCategory) error {
	for _, cs := range categorySentinels {
		if cs.category == c {
			return cs.sentinel
		}
	}
	return nil
}

// ActionError is the error returned by action backends and locator resolution.
type ActionError struct {
	Category ErrorCategory
	Err      error
}

func NewActionError(category ErrorCategory, format string, args ...any) *ActionError {
	return &ActionError{Category: category, Err: fmt.Errorf(format, args...)}
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *ActionError) Unwrap() []error {
	errs := []error{}
	if sentinel := sentinelOf(e.Category); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// CategoryOf maps any error onto the action error taxonomy. Unclassified
// errors count as backend failures.
func CategoryOf(err error) ErrorCategory {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Category
	}
	for _, cs := range categorySentinels {
		if errors.Is(err, cs.sentinel) {
			return cs.category
		}
	}
	if errors.Is(err, ErrUnknownAction) {
		return CategoryValidation
	}
	return CategoryBackend
}

type ErrorCode string

const (
	CodeNoProgress           ErrorCode = "NO_PROGRESS"
	CodeModelReportedFailure ErrorCode = "MODEL_REPORTED_FAILURE"
	CodeConsecutiveFailures  ErrorCode = "CONSECUTIVE_FAILURES"
	CodeMaxStepsExceeded     ErrorCode = "MAX_STEPS_EXCEEDED"
	CodeActionFailed         ErrorCode = "ACTION_FAILED"
)

// SubtaskError is the structured failure carried by a SubtaskResult.
type SubtaskError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Step    int       `json:"step"`
}

func (e *SubtaskError) Error() string {
	return fmt.Sprintf("%s at step %d: %s", e.Code, e.Step, e.Message)
}
