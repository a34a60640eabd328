package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTier          = NewDomainError(ErrCodeValidation, "invalid knowledge tier")
	ErrInvalidTicketStatus  = NewDomainError(ErrCodeValidation, "invalid ticket status")
	ErrInvalidUrgencyScore  = NewDomainError(ErrCodeValidation, "urgency score must be between 1 and 10")
	ErrInvalidUsageCount    = NewDomainError(ErrCodeValidation, "usage count cannot be negative")
	ErrInvalidFeedbackScore = NewDomainError(ErrCodeValidation, "feedback score must be between 1 and 5")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "search query cannot be empty")
)

// Not found errors
var (
	ErrTicketNotFound     = NewDomainError(ErrCodeNotFound, "ticket not found")
	ErrEntryNotFound      = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrAttachmentNotFound = NewDomainError(ErrCodeNotFound, "attachment not found")
	ErrUploadNotFound     = NewDomainError(ErrCodeNotFound, "pending attachment upload not found")
)

// Operation errors
var (
	ErrInvalidPromotion = NewDomainError(ErrCodeInvalidOperation, "promotion must move toward L1")
	ErrAlreadyResolved  = NewDomainError(ErrCodeInvalidOperation, "ticket is already resolved")
	ErrSHA256Mismatch   = NewDomainError(ErrCodeValidation, "SHA256 hash does not match uploaded file")
	ErrStorageOperation = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
