package domain

import (
	"errors"
	"net/http"
)

// ErrorCode is the stable machine-readable identifier sent to clients
type ErrorCode string

const (
	CodeServerError         ErrorCode = "SERVER_ERROR"
	CodeValidation          ErrorCode = "VALIDATION_ERROR"
	CodeInvalidLogin        ErrorCode = "INVALID_LOGIN"
	CodeInvalidAccessToken  ErrorCode = "INVALID_ACCESS_TOKEN"
	CodeInvalidRefreshToken ErrorCode = "INVALID_REFRESH_TOKEN"
	CodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	CodeInvalidPassword     ErrorCode = "INVALID_PASSWORD"
	CodeWrongPassword       ErrorCode = "WRONG_PASSWORD"
	CodeUserNotFound        ErrorCode = "USER_NOT_FOUND"
	CodeItemNotFound        ErrorCode = "ITEM_NOT_FOUND"
	CodeAlreadyVerified     ErrorCode = "ALREADY_VERIFIED"
	CodeEmailInUse          ErrorCode = "EMAIL_IN_USE"
	CodeEmailAlreadySet     ErrorCode = "EMAIL_ALREADY_SET"
	CodeTooManyRequests     ErrorCode = "TOO_MANY_REQUESTS"
)

var statusByCode = map[ErrorCode]int{
	CodeServerError:         http.StatusInternalServerError,
	CodeValidation:          http.StatusUnprocessableEntity,
	CodeInvalidLogin:        http.StatusUnauthorized,
	CodeInvalidAccessToken:  http.StatusUnauthorized,
	CodeInvalidRefreshToken: http.StatusUnauthorized,
	CodeInvalidToken:        http.StatusBadRequest,
	CodeInvalidPassword:     http.StatusBadRequest,
	CodeWrongPassword:       http.StatusBadRequest,
	CodeUserNotFound:        http.StatusBadRequest,
	CodeItemNotFound:        http.StatusBadRequest,
	CodeAlreadyVerified:     http.StatusBadRequest,
	CodeEmailInUse:          http.StatusBadRequest,
	CodeEmailAlreadySet:     http.StatusBadRequest,
	CodeTooManyRequests:     http.StatusTooManyRequests,
}

// Error is a domain failure that can be presented to a client as is
type Error struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewError creates a domain error with the given code and message
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ValidationError creates a VALIDATION_ERROR naming the offending field
func ValidationError(field, reason string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "validation failed",
		Details: map[string]string{field: reason},
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is matches any domain error carrying the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Status returns the HTTP status associated with the error code
func (e *Error) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AsError extracts a domain error from err, or returns nil
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

var (
	ErrInvalidLogin        = NewError(CodeInvalidLogin, "invalid email or password")
	ErrInvalidAccessToken  = NewError(CodeInvalidAccessToken, "invalid or expired access token")
	ErrInvalidRefreshToken = NewError(CodeInvalidRefreshToken, "invalid refresh token")
	ErrInvalidToken        = NewError(CodeInvalidToken, "invalid or expired token")
	ErrInvalidPassword     = NewError(CodeInvalidPassword, "password does not satisfy the password policy")
	ErrWrongPassword       = NewError(CodeWrongPassword, "current password is incorrect")
	ErrUserNotFound        = NewError(CodeUserNotFound, "user not found")
	ErrItemNotFound        = NewError(CodeItemNotFound, "item not found")
	ErrAlreadyVerified     = NewError(CodeAlreadyVerified, "email is already verified")
	ErrEmailInUse          = NewError(CodeEmailInUse, "email is already in use")
	ErrEmailAlreadySet     = NewError(CodeEmailAlreadySet, "email is already set to this address")
	ErrTooManyRequests     = NewError(CodeTooManyRequests, "rate limit exceeded")
	ErrServer              = NewError(CodeServerError, "internal server error")
)
