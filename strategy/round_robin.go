package strategy

import (
	"slices"

	"github.com/arloliu/kgroup/types"
)

// RoundRobin implements sorted round-robin partition assignment.
type RoundRobin struct{}

var _ types.AssignmentStrategy = (*RoundRobin)(nil)

// NewRoundRobin creates a new round-robin strategy.
//
// Members and partitions are both sorted, then the member at position i
// receives partitions i, i+n, i+2n and so on. This is the allocation used
// by the reference group partitioner recipe, which keeps mixed groups
// interoperable.
//
// Example:
//
//	sess := natsgroup.NewSession(url, natsgroup.WithStrategy(strategy.NewRoundRobin()))
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Assign calculates partition assignments using round-robin distribution.
//
// Parameters:
//   - members: Group member IDs
//   - partitions: Partitions to divide
//
// Returns:
//   - map[string][]types.Partition: Map from member ID to assigned partitions
//   - error: ErrNoMembers if members is empty
func (rr *RoundRobin) Assign(members []string, partitions []types.Partition) (map[string][]types.Partition, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	sortedMembers := slices.Clone(members)
	slices.Sort(sortedMembers)
	sortedMembers = slices.Compact(sortedMembers)

	sortedParts := slices.Clone(partitions)
	slices.SortFunc(sortedParts, types.Partition.Compare)

	assignments := make(map[string][]types.Partition, len(sortedMembers))
	for _, m := range sortedMembers {
		assignments[m] = []types.Partition{}
	}
	for i, p := range sortedParts {
		m := sortedMembers[i%len(sortedMembers)]
		assignments[m] = append(assignments[m], p)
	}

	return assignments, nil
}
