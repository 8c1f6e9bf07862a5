package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady reports that no canonical graph is loaded yet. Callers should
	// surface it as a retryable "warming up" condition.
	ErrNotReady = errors.New("canonical graph not loaded")
	// ErrSpeciesNotFound reports an unknown species in a projection request.
	ErrSpeciesNotFound = errors.New("species not found")
	// ErrEmptySample is returned when an analysis is requested without identifiers.
	ErrEmptySample = errors.New("identifier sample is empty")
	// ErrGraphNotStored is returned by a GraphStore holding no graph document.
	ErrGraphNotStored = errors.New("graph document not stored")
)

// NotReadyError wraps ErrNotReady with the reason the graph is unavailable.
type NotReadyError struct {
	Reason string
}

func (e NotReadyError) Error() string {
	if e.Reason == "" {
		return ErrNotReady.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNotReady, e.Reason)
}

// Is allows errors.Is(err, ErrNotReady).
func (e NotReadyError) Is(target error) bool { return target == ErrNotReady }

// SpeciesNotFoundError names the species that has no registered hierarchy.
type SpeciesNotFoundError struct {
	Species string
}

func (e SpeciesNotFoundError) Error() string {
	return fmt.Sprintf("species %q not found", e.Species)
}

// Is allows errors.Is(err, ErrSpeciesNotFound).
func (e SpeciesNotFoundError) Is(target error) bool { return target == ErrSpeciesNotFound }

// IsRetryable reports whether err describes a transient condition the caller
// may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNotReady)
}
