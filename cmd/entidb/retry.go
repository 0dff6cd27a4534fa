package main

import "github.com/entidb/entidb/internal/errors"

var ioClassifier = errors.NewClassifier()

// retryIO runs fn with the taxonomy's exponential-backoff retry controller,
// giving transient failures (EAGAIN, a timeout, a momentarily busy mount)
// a few chances before the CLI gives up and reports the error. Permanent,
// validation and critical errors (including a full disk, ENOSPC) are never
// retried.
func retryIO(fn func() error) error {
	return errors.NewRetryController().Retry(fn, ioClassifier)
}
