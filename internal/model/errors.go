package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by stores when a posting or alert does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by InsertPosting when the exact key already exists.
	ErrDuplicate = errors.New("duplicate posting")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// CollectorError means one source failed; other sources keep going.
type CollectorError struct {
	Source string
	Err    error
}

func (e *CollectorError) Error() string {
	return fmt.Sprintf("collector %s: %v", e.Source, e.Err)
}

func (e *CollectorError) Unwrap() error { return e.Err }

// EnrichmentError means one posting could not be analyzed by the upstream provider.
type EnrichmentError struct {
	Title string
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %q: %v", e.Title, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// PersistenceError means one item failed to commit. Op names the store call,
// Key identifies the item (posting id or title).
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError means one notification could not be delivered.
type DeliveryError struct {
	Email     string
	PostingID int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver posting %d to %s: %v", e.PostingID, e.Email, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
