package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the kgroup library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// Components wrap external errors with context using fmt.Errorf("%s: %w", msg, err).

// Partitioner errors - Public API errors returned by the Partitioner.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSessionRequired is returned when no coordination session was supplied.
	ErrSessionRequired = errors.New("coordination session is required")

	// ErrBrokerRequired is returned when no broker metadata client was supplied.
	ErrBrokerRequired = errors.New("broker metadata client is required")

	// ErrNoTopics is returned when the topic list is empty.
	ErrNoTopics = errors.New("at least one topic is required")

	// ErrAlreadyStarted is returned when Start is called on a running partitioner.
	ErrAlreadyStarted = errors.New("partitioner already started")

	// ErrDiscovery is the class of broker metadata failures.
	ErrDiscovery = errors.New("partition discovery failed")

	// ErrCoordination is the class of callback and session setup failures.
	// After it is raised the ownership state must be treated as unknown.
	ErrCoordination = errors.New("partition coordination failed")

	// ErrCoordinationFatal is the class of irrecoverable partitioner failures.
	ErrCoordinationFatal = errors.New("partition coordination failed irrecoverably")

	// ErrMalformedPartitionID is returned when a partition token cannot be parsed.
	ErrMalformedPartitionID = errors.New("malformed partition id")
)

// Set partitioner errors - NATS group partitioning primitive errors.
var (
	// ErrPartitionerFinished is returned when operating on a finished partitioner.
	ErrPartitionerFinished = errors.New("set partitioner finished")

	// ErrLockLost is returned when a held partition lock was taken or expired.
	ErrLockLost = errors.New("partition lock lost")

	// ErrLockTimeout is returned when a partition lock stays with another
	// member past the lock wait limit.
	ErrLockTimeout = errors.New("timed out waiting for partition lock")

	// ErrSessionClosed is returned when the session has no usable connection.
	ErrSessionClosed = errors.New("coordination session closed")

	// ErrConnectivity indicates a NATS/KV connectivity issue.
	ErrConnectivity = errors.New("connectivity issue")
)

// Common errors - Shared errors used across multiple components.
var (
	// ErrNoKeysFound is returned when NATS KV returns no keys (expected condition).
	ErrNoKeysFound = errors.New("no keys found")
)

// IsNoKeysFoundError checks if an error indicates that no keys were found in NATS KV.
//
// This function handles NATS-specific "no keys found" errors which may come as:
//   - Direct error: "nats: no keys found"
//   - Wrapped error: "failed to list KV keys: nats: no keys found"
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error indicates no keys were found, false otherwise
func IsNoKeysFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoKeysFound) {
		return true
	}

	return strings.Contains(err.Error(), "no keys found")
}
