package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const maxRetries = 3

var retryDelay = 200 * time.Millisecond

// WithRetry runs fn up to maxRetries times with a linear backoff. A missing
// record is a final answer, not a transient failure.
func WithRetry(fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if attempt < maxRetries {
			time.Sleep(retryDelay * time.Duration(attempt))
		}
	}
	return err
}
