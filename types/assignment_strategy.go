package types

// AssignmentStrategy decides which member of a group owns which partition.
//
// Every member of a group computes the allocation independently from the
// same inputs, so implementations must be deterministic: the same members
// and partitions always yield the same result regardless of input order.
type AssignmentStrategy interface {
	// Assign calculates partition assignments for the given members.
	//
	// Parameters:
	//   - members: Group member IDs
	//   - partitions: Partitions to divide
	//
	// Returns:
	//   - map[string][]Partition: Map from member ID to assigned partitions
	//   - error: Assignment error (e.g., no members)
	Assign(members []string, partitions []Partition) (map[string][]Partition, error)
}
