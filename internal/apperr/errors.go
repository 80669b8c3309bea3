// Package apperr defines the error taxonomy shared by every layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no valid user identity is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnauthorized means the identity does not own the target resource.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrRemoteWriteFailed wraps any failed durable write.
	ErrRemoteWriteFailed = errors.New("remote write failed")
	ErrEmptyAIResponse   = errors.New("empty ai response")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrAlreadyExists     = errors.New("already exists")
)

// RemoteWrite classifies a failed durable write. Identity failures are
// returned as is; anything else is wrapped in ErrRemoteWriteFailed.
func RemoteWrite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRemoteWriteFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
}
