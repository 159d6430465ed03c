package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUserExists         ErrorCode = "USER_ALREADY_EXISTS"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"

	ErrCodeOrganizationExists   ErrorCode = "ORGANIZATION_ALREADY_EXISTS"
	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"
	ErrCodeNotAMember           ErrorCode = "NOT_A_MEMBER"
	ErrCodeMembershipExists     ErrorCode = "MEMBERSHIP_ALREADY_EXISTS"
	ErrCodeInsufficientPerms    ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeRoleNotFound         ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeInvalidPermission    ErrorCode = "INVALID_PERMISSION"

	ErrCodeInviteInvalid  ErrorCode = "INVITE_INVALID"
	ErrCodeInviteExpired  ErrorCode = "INVITE_EXPIRED"
	ErrCodeInviteAccepted ErrorCode = "INVITE_ALREADY_ACCEPTED"

	ErrCodeTaskNotFound    ErrorCode = "TASK_NOT_FOUND"
	ErrCodeCommentNotFound ErrorCode = "COMMENT_NOT_FOUND"
	ErrCodeInvalidStatus   ErrorCode = "INVALID_TASK_STATUS"
	ErrCodeInvalidPriority ErrorCode = "INVALID_TASK_PRIORITY"

	ErrCodeMailDelivery ErrorCode = "MAIL_DELIVERY_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError keeps the CONFLICT type internally but answers 400,
// matching the external contract for duplicate names and emails.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)
	ErrUserExists         = NewConflictError("user with this email already exists", ErrCodeUserExists)
	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)

	ErrOrganizationExists   = NewConflictError("organization with this name already exists", ErrCodeOrganizationExists)
	ErrOrganizationNotFound = NewNotFoundError("organization not found", ErrCodeOrganizationNotFound)
	ErrNotAMember           = NewForbiddenError("user is not a member of this organization", ErrCodeNotAMember)
	ErrMembershipExists     = NewConflictError("user is already a member of this organization", ErrCodeMembershipExists)
	ErrInsufficientPerms    = NewForbiddenError("insufficient permissions", ErrCodeInsufficientPerms)
	ErrRoleNotFound         = NewNotFoundError("role not found", ErrCodeRoleNotFound)

	ErrInviteInvalid  = NewValidationError("invite token is invalid", ErrCodeInviteInvalid)
	ErrInviteExpired  = NewValidationError("invite token has expired", ErrCodeInviteExpired)
	ErrInviteAccepted = NewValidationError("invite has already been accepted", ErrCodeInviteAccepted)

	ErrTaskNotFound    = NewNotFoundError("task not found", ErrCodeTaskNotFound)
	ErrCommentNotFound = NewNotFoundError("comment not found", ErrCodeCommentNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
