package errors

import (
	"errors"
	"syscall"
)

// ErrorCategory represents the category of an error for CLI-level retry
// decisions and error metrics. The core never retries on it; cmd/entidb's
// caller-driven retry helper (RetryController.Retry, in retry.go) uses it to
// decide what to retry, and metrics.Metrics.RecordError to flag critical
// errors.
type ErrorCategory int

const (
	ErrorTransient  ErrorCategory = iota // Temporary errors - retry with backoff
	ErrorPermanent                       // Permanent errors - no retry
	ErrorCritical                        // System-level errors - alert immediately
	ErrorValidation                      // Data validation errors - no retry
	ErrorNetwork                         // Network-related - retry with backoff
)

// Classifier categorizes errors for caller-driven retry logic.
type Classifier struct{}

// NewClassifier creates a new error classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the category of an error.
func (c *Classifier) Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorPermanent
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EAGAIN, syscall.ENOMEM, syscall.ETIMEDOUT:
			return ErrorTransient
		case syscall.ENOENT, syscall.EINVAL, syscall.EEXIST:
			return ErrorPermanent
		case syscall.EIO, syscall.ENOSPC:
			return ErrorCritical
		}
	}

	switch KindOf(err) {
	case KindCorruption:
		return ErrorCritical
	case KindIoError:
		return ErrorTransient
	case KindInvalidArgument, KindVersionMismatch:
		return ErrorValidation
	case KindNotFound, KindTransaction:
		return ErrorPermanent
	}

	return ErrorPermanent
}

// ShouldRetry returns true if the error category indicates retry is appropriate.
func (c *Classifier) ShouldRetry(category ErrorCategory) bool {
	return category == ErrorTransient || category == ErrorNetwork
}

// IsCritical returns true if the error requires immediate attention.
func (c *Classifier) IsCritical(category ErrorCategory) bool {
	return category == ErrorCritical
}
