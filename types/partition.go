package types

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Partition identifies one sub-partition of a topic.
//
// Partitions are carried in structured form everywhere inside the library and
// rendered to the "topic-index" token only at the coordination service boundary.
type Partition struct {
	// Topic is the broker topic name. It may itself contain dashes.
	Topic string `json:"topic"`

	// Index is the zero-based sub-partition index.
	Index int `json:"index"`
}

// ID returns the coordination token for the partition ("topic-index").
func (p Partition) ID() string {
	return p.Topic + "-" + strconv.Itoa(p.Index)
}

// String implements fmt.Stringer.
func (p Partition) String() string {
	return p.ID()
}

// Compare orders partitions by topic name, then by index.
//
// Returns:
//   - int: -1 if p < q, 0 if equal, +1 if p > q
func (p Partition) Compare(q Partition) int {
	if c := strings.Compare(p.Topic, q.Topic); c != 0 {
		return c
	}

	return cmp.Compare(p.Index, q.Index)
}

// HashIDSeed hashes the partition with xxh3 without building the ID string.
// The topic hash becomes the seed for the index bytes.
//
// Parameters:
//   - seed: Hash seed (0 means unseeded)
//
// Returns:
//   - uint64: Stable 64-bit hash of the partition
func (p Partition) HashIDSeed(seed uint64) uint64 {
	var h uint64
	if seed != 0 {
		h = xxh3.HashStringSeed(p.Topic, seed)
	} else {
		h = xxh3.HashString(p.Topic)
	}

	var ib [8]byte
	binary.LittleEndian.PutUint64(ib[:], uint64(p.Index)) //nolint:gosec // index is never negative

	return xxh3.HashSeed(ib[:], h)
}

// ParsePartitionID parses a "topic-index" token back into a Partition.
//
// The token is split at its last dash so topic names containing dashes
// round-trip correctly ("topic-2-1" is topic "topic-2", index 1).
//
// Parameters:
//   - id: Partition token
//
// Returns:
//   - Partition: Parsed partition
//   - error: ErrMalformedPartitionID if the token has no dash, an empty topic,
//     or an index that is not an unsigned integer
func ParsePartitionID(id string) (Partition, error) {
	sep := strings.LastIndexByte(id, '-')
	if sep <= 0 || sep == len(id)-1 {
		return Partition{}, fmt.Errorf("%w: %q", ErrMalformedPartitionID, id)
	}

	idx, err := strconv.ParseUint(id[sep+1:], 10, 31)
	if err != nil {
		return Partition{}, fmt.Errorf("%w: %q: %w", ErrMalformedPartitionID, id, err)
	}

	return Partition{Topic: id[:sep], Index: int(idx)}, nil
}

// MustParsePartitionID is like ParsePartitionID but panics on malformed input.
//
// Tokens handed back by the coordination service were produced by
// Partition.ID, so a parse failure is a programming error.
func MustParsePartitionID(id string) Partition {
	p, err := ParsePartitionID(id)
	if err != nil {
		panic(err)
	}

	return p
}

// PartitionSet is an immutable set of partitions.
//
// The zero value is an empty set.
type PartitionSet struct {
	members map[Partition]struct{}
}

// NewPartitionSet builds a set from the given partitions. Duplicates are ignored.
func NewPartitionSet(partitions ...Partition) PartitionSet {
	members := make(map[Partition]struct{}, len(partitions))
	for _, p := range partitions {
		members[p] = struct{}{}
	}

	return PartitionSet{members: members}
}

// PartitionSetFromTopics expands a topic to sub-partition indices mapping into a set.
func PartitionSetFromTopics(topics map[string][]int) PartitionSet {
	members := make(map[Partition]struct{})
	for topic, indices := range topics {
		for _, idx := range indices {
			members[Partition{Topic: topic, Index: idx}] = struct{}{}
		}
	}

	return PartitionSet{members: members}
}

// Len returns the number of partitions in the set.
func (s PartitionSet) Len() int {
	return len(s.members)
}

// Contains reports whether p is a member of the set.
func (s PartitionSet) Contains(p Partition) bool {
	_, ok := s.members[p]
	return ok
}

// Equal reports whether both sets hold exactly the same partitions.
func (s PartitionSet) Equal(other PartitionSet) bool {
	if len(s.members) != len(other.members) {
		return false
	}
	for p := range s.members {
		if _, ok := other.members[p]; !ok {
			return false
		}
	}

	return true
}

// Partitions returns the members sorted by topic, then index.
func (s PartitionSet) Partitions() []Partition {
	out := make([]Partition, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	slices.SortFunc(out, Partition.Compare)

	return out
}

// IDs returns the rendered partition tokens in sorted partition order.
func (s PartitionSet) IDs() []string {
	parts := s.Partitions()
	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = p.ID()
	}

	return ids
}

// Assignment maps topic names to the sorted sub-partition indices owned by
// this process.
type Assignment map[string][]int

// AssignmentFromIDs parses held partition tokens into an Assignment.
//
// Indices are sorted ascending per topic. Malformed tokens panic, see
// MustParsePartitionID.
func AssignmentFromIDs(ids []string) Assignment {
	out := make(Assignment)
	for _, id := range ids {
		p := MustParsePartitionID(id)
		out[p.Topic] = append(out[p.Topic], p.Index)
	}
	for topic := range out {
		slices.Sort(out[topic])
	}

	return out
}

// Len returns the total number of sub-partitions in the assignment.
func (a Assignment) Len() int {
	n := 0
	for _, indices := range a {
		n += len(indices)
	}

	return n
}

// Clone returns a deep copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for topic, indices := range a {
		out[topic] = slices.Clone(indices)
	}

	return out
}

// Equal reports whether both assignments hold the same sub-partitions.
func (a Assignment) Equal(other Assignment) bool {
	if a.Len() != other.Len() {
		return false
	}
	for topic, indices := range a {
		if len(indices) == 0 {
			continue
		}
		if !slices.Equal(indices, other[topic]) {
			return false
		}
	}

	return true
}
