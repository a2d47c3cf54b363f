package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a DomainError for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuthentication
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication"
	case KindUpload:
		return "upload"
	default:
		return "internal"
	}
}

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so wrapped copies of a predefined
// error still satisfy errors.Is against the original.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind Kind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Kind:    domainErr.Kind,
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: domainErr.Details,
		Err:     err,
	}
}

// WithDetails returns a copy of domainErr carrying per-field messages.
func WithDetails(domainErr *DomainError, details ...string) *DomainError {
	return &DomainError{
		Kind:    domainErr.Kind,
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: details,
		Err:     domainErr.Err,
	}
}

// Validation builds an ad hoc validation error with its own message.
func Validation(message string) *DomainError {
	return NewDomainError(KindValidation, ErrInvalidInput.Code, message)
}

// Predefined domain errors
var (
	// User errors
	ErrUserExists     = NewDomainError(KindConflict, "USER_EXISTS", "user already exists")
	ErrEmailTaken     = NewDomainError(KindConflict, "EMAIL_EXISTS", "email is already in use")
	ErrUserNotFound   = NewDomainError(KindNotFound, "USER_NOT_FOUND", "user does not exist")
	ErrUserNotCreated = NewDomainError(KindInternal, "USER_NOT_CREATED", "something went wrong while creating user")
	ErrAvatarMissing  = NewDomainError(KindValidation, "AVATAR_REQUIRED", "avatar is required")
	ErrFileMissing    = NewDomainError(KindValidation, "FILE_REQUIRED", "file is missing")

	// Authentication errors
	ErrInvalidCredentials  = NewDomainError(KindAuthentication, "INVALID_CREDENTIALS", "invalid user credentials")
	ErrIncorrectPassword   = NewDomainError(KindAuthentication, "INCORRECT_PASSWORD", "invalid old password")
	ErrUnauthorized        = NewDomainError(KindAuthentication, "UNAUTHORIZED", "unauthorized request")
	ErrInvalidToken        = NewDomainError(KindAuthentication, "INVALID_TOKEN", "invalid access token")
	ErrInvalidRefreshToken = NewDomainError(KindAuthentication, "INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrTokenUserNotFound   = NewDomainError(KindAuthentication, "TOKEN_USER_NOT_FOUND", "user not found")
	ErrRefreshTokenReused  = NewDomainError(KindAuthentication, "REFRESH_TOKEN_REUSED", "refresh token is expired or used")

	// Validation errors
	ErrInvalidInput    = NewDomainError(KindValidation, "INVALID_INPUT", "invalid input")
	ErrFieldsRequired  = NewDomainError(KindValidation, "FIELDS_REQUIRED", "all fields are required")
	ErrInvalidEmail    = NewDomainError(KindValidation, "INVALID_EMAIL", "invalid email address")
	ErrIdentifierEmpty = NewDomainError(KindValidation, "IDENTIFIER_REQUIRED", "username or email is required")

	// Upload errors
	ErrUploadFailed       = NewDomainError(KindUpload, "UPLOAD_FAILED", "error while uploading file")
	ErrAvatarUploadFailed = NewDomainError(KindUpload, "AVATAR_UPLOAD_FAILED", "unable to upload avatar image")

	// System errors
	ErrInternal = NewDomainError(KindInternal, "INTERNAL_ERROR", "internal server error")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// KindOf reports the kind of err, KindInternal for anything that is not a DomainError.
func KindOf(err error) Kind {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Kind
	}
	return KindInternal
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message. Internal failures never leak their cause.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return ErrInternal.Message
}

// GetErrorDetails returns the per-field messages attached to err, if any.
func GetErrorDetails(err error) []string {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Details
	}
	return nil
}
