package strategy

import (
	"slices"

	"github.com/arloliu/kgroup/internal/hash"
	"github.com/arloliu/kgroup/types"
)

// ConsistentHash implements consistent hashing with virtual nodes.
type ConsistentHash struct {
	virtualNodes int
	hashSeed     uint64
}

var _ types.AssignmentStrategy = (*ConsistentHash)(nil)

// ConsistentHashOption configures a ConsistentHash strategy.
type ConsistentHashOption func(*ConsistentHash)

// NewConsistentHash creates a new consistent hash strategy.
//
// Partitions are placed on a hash ring with virtual nodes per member, so a
// membership change only moves the partitions adjacent to the joining or
// leaving member. All members of a group must use the same options.
//
// Parameters:
//   - opts: Optional configuration (WithVirtualNodes, WithHashSeed)
//
// Returns:
//   - *ConsistentHash: Initialized consistent hash strategy
func NewConsistentHash(opts ...ConsistentHashOption) *ConsistentHash {
	ch := &ConsistentHash{
		virtualNodes: 150,
	}
	for _, opt := range opts {
		opt(ch)
	}

	return ch
}

// WithVirtualNodes sets the number of virtual nodes per member (default: 150).
func WithVirtualNodes(nodes int) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		if nodes > 0 {
			ch.virtualNodes = nodes
		}
	}
}

// WithHashSeed sets a custom hash seed.
func WithHashSeed(seed uint64) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.hashSeed = seed
	}
}

// Assign calculates partition assignments using consistent hashing.
//
// Parameters:
//   - members: Group member IDs
//   - partitions: Partitions to divide
//
// Returns:
//   - map[string][]types.Partition: Map from member ID to assigned partitions,
//     each list sorted by topic and index
//   - error: ErrNoMembers if members is empty
func (ch *ConsistentHash) Assign(members []string, partitions []types.Partition) (map[string][]types.Partition, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	ring := hash.NewRing(members, ch.virtualNodes, ch.hashSeed)

	sortedParts := slices.Clone(partitions)
	slices.SortFunc(sortedParts, types.Partition.Compare)

	assignments := make(map[string][]types.Partition, len(members))
	for _, m := range ring.Members() {
		assignments[m] = []types.Partition{}
	}
	for _, p := range sortedParts {
		m := ring.GetNodeForPartition(p)
		if m == "" {
			return nil, ErrEmptyRing
		}
		assignments[m] = append(assignments[m], p)
	}

	return assignments, nil
}
