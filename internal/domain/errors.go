package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRule marks a rule rejected by validation. The message
	// wrapped around it is safe to show the user.
	ErrInvalidRule = errors.New("invalid alert rule")

	// ErrNotFound marks an operation that referenced an unknown rule or
	// trigger id.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable marks a transient storage failure. Callers may
	// retry; the ingestion pipeline just moves on to the next message.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func invalidRule(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, reason)
}
