package errors

import "time"

// New creates a generic AppError with the supplied metadata.
func New(category ErrorCategory, code, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		Category:  category,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// NewRecoverable creates an AppError flagged as safe to retry.
func NewRecoverable(category ErrorCategory, code, message string, err error) *AppError {
	appErr := New(category, code, message, err)
	appErr.Recoverable = true
	return appErr
}

// SystemError creates a SYSTEM category error instance. Filesystem failures
// are recoverable at the batch level, so the flag defaults to true.
func SystemError(code, message string, err error) *AppError {
	return &AppError{
		Code:        code,
		Category:    ErrCategorySystem,
		Message:     message,
		Err:         err,
		Recoverable: true,
		Timestamp:   time.Now(),
	}
}

// NetworkError creates a NETWORK category error instance.
func NetworkError(code, message string, err error) *AppError {
	return &AppError{
		Code:        code,
		Category:    ErrCategoryNetwork,
		Message:     message,
		Err:         err,
		Recoverable: true,
		Timestamp:   time.Now(),
	}
}

// ConfigError creates a CONFIG category error instance.
func ConfigError(code, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		Category:  ErrCategoryConfig,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// ValidationError creates a VALIDATION category error instance.
func ValidationError(code, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		Category:  ErrCategoryValidation,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// IntegrityError creates an INTEGRITY category error instance. Integrity
// failures may be caused by transient transport corruption, so they stay
// recoverable; callers decide how often retrying is worth it.
func IntegrityError(code, message string, err error) *AppError {
	return &AppError{
		Code:        code,
		Category:    ErrCategoryIntegrity,
		Message:     message,
		Err:         err,
		Recoverable: true,
		Timestamp:   time.Now(),
	}
}

// DatabaseError creates a DATABASE category error instance.
func DatabaseError(code, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		Category:  ErrCategoryDatabase,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}
