// Package hash implements the consistent hash ring used by strategy.ConsistentHash.
package hash

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/kgroup/types"
)

// Ring is a consistent hash ring with virtual nodes.
//
// Every group member builds the same ring from the same sorted member list,
// so all members agree on the owner of each partition without exchanging
// messages.
type Ring struct {
	// nodes holds all virtual nodes sorted by hash
	nodes []virtualNode

	// members holds the unique members present on the ring
	members []string

	seed uint64
}

type virtualNode struct {
	hash   uint64
	member string
}

// NewRing creates a consistent hash ring.
//
// Parameters:
//   - members: Member IDs to place on the ring (duplicates are ignored)
//   - virtualNodesPerMember: Number of virtual nodes per member
//   - seed: Hash seed (0 for unseeded)
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"member-a", "member-b"}, 150, 0)
//	owner := ring.GetNodeForPartition(types.Partition{Topic: "orders", Index: 3})
func NewRing(members []string, virtualNodesPerMember int, seed uint64) *Ring {
	ring := &Ring{
		nodes:   make([]virtualNode, 0, len(members)*virtualNodesPerMember),
		members: make([]string, 0, len(members)),
		seed:    seed,
	}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		ring.members = append(ring.members, m)
		ring.addMember(m, virtualNodesPerMember)
	}

	slices.SortFunc(ring.nodes, func(a, b virtualNode) int {
		if c := cmp.Compare(a.hash, b.hash); c != 0 {
			return c
		}
		// Tie-break on member so the ring does not depend on input order.
		return cmp.Compare(a.member, b.member)
	})

	return ring
}

// GetNode returns the member responsible for an arbitrary key.
func (r *Ring) GetNode(key string) string {
	if len(r.nodes) == 0 {
		return ""
	}

	return r.getNodeByHash(r.hash(key))
}

// GetNodeForPartition returns the member responsible for a partition.
func (r *Ring) GetNodeForPartition(partition types.Partition) string {
	if len(r.nodes) == 0 {
		return ""
	}

	return r.getNodeByHash(partition.HashIDSeed(r.seed))
}

// Members returns a copy of the unique members on the ring.
func (r *Ring) Members() []string {
	return slices.Clone(r.members)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

func (r *Ring) addMember(member string, virtualNodes int) {
	base := r.hash(member)
	for i := range virtualNodes {
		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		r.nodes = append(r.nodes, virtualNode{
			hash:   xxh3.HashSeed(ib[:], base),
			member: member,
		})
	}
}

func (r *Ring) hash(key string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(key, r.seed)
	}

	return xxh3.HashString(key)
}

// getNodeByHash returns the first virtual node at or after target, wrapping
// around to the start of the ring.
func (r *Ring) getNodeByHash(target uint64) string {
	idx, _ := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		return cmp.Compare(node.hash, t)
	})
	if idx >= len(r.nodes) {
		idx = 0
	}

	return r.nodes[idx].member
}
