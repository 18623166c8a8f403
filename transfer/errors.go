package transfer

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidInput matches every InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is returned before any network call when the contribution
// cannot be uploaded as given.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// ChunkUploadFailedError means one chunk could not be delivered within the retry budget.
// No chunk after ChunkIndex was sent.
type ChunkUploadFailedError struct {
	TransferId string
	ChunkIndex int
	Attempts   int
	LastErr    error
}

func (e *ChunkUploadFailedError) Error() string {
	return fmt.Sprintf("chunk %d of transfer %s failed after %d attempts: %v",
		e.ChunkIndex, e.TransferId, e.Attempts, e.LastErr)
}

func (e *ChunkUploadFailedError) Unwrap() error {
	return e.LastErr
}

// FinalizeFailedError means every chunk was delivered but the corpus API did not
// create the record. The uploaded chunks stay on the server.
// StatusCode is 0 when no answer arrived; whether the record exists is then unknown.
type FinalizeFailedError struct {
	StatusCode int
	Body       string
	Detail     string
	Err        error
}

func (e *FinalizeFailedError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = truncate(e.Body, 256)
	}
	if e.StatusCode == 0 {
		return "finalize failed: " + msg
	}
	if msg == "" {
		return fmt.Sprintf("finalize failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("finalize failed with status %d: %s", e.StatusCode, msg)
}

func (e *FinalizeFailedError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx answer from the chunk endpoint.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed: %s", e.Status)
	}
	return fmt.Sprintf("request failed: %s: %s", e.Status, truncate(e.Body, 256))
}

// contextError names why ctx ended: its own deadline or a cancellation.
func contextError(ctx context.Context, op string) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out: %w", op, err)
	}
	return fmt.Errorf("%s cancelled: %w", op, err)
}

func cancelled(err error) error {
	return fmt.Errorf("upload cancelled: %w", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
