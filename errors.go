package kgroup

import (
	"errors"
	"fmt"

	"github.com/arloliu/kgroup/types"
)

// Sentinel errors re-exported from the types package.
var (
	ErrInvalidConfig     = types.ErrInvalidConfig
	ErrSessionRequired   = types.ErrSessionRequired
	ErrBrokerRequired    = types.ErrBrokerRequired
	ErrNoTopics          = types.ErrNoTopics
	ErrAlreadyStarted    = types.ErrAlreadyStarted
	ErrDiscovery         = types.ErrDiscovery
	ErrCoordination      = types.ErrCoordination
	ErrCoordinationFatal = types.ErrCoordinationFatal
)

// DiscoveryError reports that broker metadata could not be retrieved.
//
// It is recoverable: a later refresh may succeed.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	if errors.Is(e.Err, types.ErrDiscovery) {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %v", types.ErrDiscovery, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDiscovery.
func (e *DiscoveryError) Is(target error) bool { return target == types.ErrDiscovery }

// CoordinationError reports a failed acquire or release callback, a session
// that could not be re-established, or a set partitioner that could not be
// created.
//
// The primitive-level transition has already taken effect when this error
// is returned, so the caller no longer knows which partitions it owns and
// should rebuild its view.
type CoordinationError struct {
	// Op is one of "acquire", "release", "connect" or "create".
	Op  string
	Err error
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", types.ErrCoordination, e.Op, e.Err)
}

func (e *CoordinationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCoordination.
func (e *CoordinationError) Is(target error) bool { return target == types.ErrCoordination }

// CoordinationFatalError reports that the primitive or its session failed
// irrecoverably. The Partitioner has been torn down when it is returned.
type CoordinationFatalError struct {
	// Err is the failure cause when the primitive reports one.
	Err error
}

func (e *CoordinationFatalError) Error() string {
	if e.Err == nil {
		return types.ErrCoordinationFatal.Error()
	}

	return fmt.Sprintf("%s: %v", types.ErrCoordinationFatal, e.Err)
}

func (e *CoordinationFatalError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCoordinationFatal.
func (e *CoordinationFatalError) Is(target error) bool { return target == types.ErrCoordinationFatal }
