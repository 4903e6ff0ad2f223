package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/olympiad-service/internal/errors"
	"github.com/SAP-F-2025/olympiad-service/internal/matching"
)

var (
	ErrQuestionNotFound       = errors.New("question not found")
	ErrQuestionInvalidType    = errors.New("question type cannot be authored here")
	ErrQuestionInvalidContent = errors.New("question content does not match its type")
	ErrQuestionLocked         = errors.New("question already has recorded answers")

	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptNotActive        = errors.New("attempt is no longer accepting answers")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")

	ErrGradingNotAllowed      = errors.New("question type is not auto-gradable")
	ErrAnswerAlreadySubmitted = errors.New("question already answered in this attempt")

	// ErrInsufficientPermissions is the sentinel every PermissionError unwraps to.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// BusinessRuleError reports a well-formed request the current state refuses.
// Cause, when set, is the sentinel callers match with errors.Is.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Cause
}

// PermissionError names who was refused what.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrInsufficientPermissions
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool {
	return isAny(err, ErrQuestionNotFound, ErrAttemptNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInsufficientPermissions)
}

// IsValidation covers field errors as well as unparseable answers and content.
func IsValidation(err error) bool {
	if isAny(err, ErrQuestionInvalidType, ErrQuestionInvalidContent, matching.ErrMalformedSubmission) {
		return true
	}
	var many apperrors.ValidationErrors
	var single *apperrors.ValidationError
	return errors.As(err, &many) || errors.As(err, &single)
}

func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre) || errors.Is(err, ErrGradingNotAllowed)
}

func IsConflict(err error) bool {
	return isAny(err, ErrQuestionLocked, ErrAttemptAlreadySubmitted, ErrAttemptNotActive, ErrAnswerAlreadySubmitted)
}
