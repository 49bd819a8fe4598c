package strategy

import "errors"

var (
	// ErrNoMembers indicates that no members were provided for assignment.
	ErrNoMembers = errors.New("no members available for assignment")

	// ErrEmptyRing indicates that the hash ring has no node for a partition.
	ErrEmptyRing = errors.New("hash ring has no nodes")
)
