package apperrors

import "errors"

// Common errors
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrBadRequest       = errors.New("bad request")
)

// Entity errors. Each one wraps ErrResourceNotFound or ErrConflict so the
// HTTP layer can match the generic kind.
var (
	ErrUserNotFound       = NewCustomError(ErrResourceNotFound, "user not found")
	ErrEmailAlreadyExists = NewCustomError(ErrConflict, "email already exists")

	ErrUniversityNotFound      = NewCustomError(ErrResourceNotFound, "university not found")
	ErrUniversityAlreadyExists = NewCustomError(ErrConflict, "user already belongs to a university")

	ErrProgramNotFound      = NewCustomError(ErrResourceNotFound, "program not found")
	ErrProgramAlreadyExists = NewCustomError(ErrConflict, "a program with this name already exists in the university")

	ErrBranchNotFound      = NewCustomError(ErrResourceNotFound, "branch not found")
	ErrBranchAlreadyExists = NewCustomError(ErrConflict, "a branch with this name already exists in the program")

	ErrYearNotFound      = NewCustomError(ErrResourceNotFound, "year not found")
	ErrYearAlreadyExists = NewCustomError(ErrConflict, "this year already exists in the branch")

	ErrSectionNotFound = NewCustomError(ErrResourceNotFound, "section not found")

	ErrNoUniversity = NewCustomError(ErrPermissionDenied, "no university assigned")
	ErrFileNotFound = NewCustomError(ErrResourceNotFound, "file not found")
)

// File workflow errors
var (
	ErrInvalidFileType      = errors.New("invalid file type")
	ErrStorageUploadFailed  = errors.New("storage upload failed")
	ErrIDGenerationFailed   = errors.New("id generation failed")
	ErrMetadataInsertFailed = errors.New("metadata insert failed")
	ErrSectionLinkFailed    = errors.New("section link failed")
	ErrParseFailed          = errors.New("document parsing failed")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying a user-facing message.
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}
