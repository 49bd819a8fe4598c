// Package strategy provides built-in assignment strategy implementations.
//
// A strategy decides which group member owns which partition. Every member
// of a group evaluates the strategy locally on the same sorted member list,
// so strategies must be deterministic.
//
//   - RoundRobin: Sorted members take every n-th sorted partition (default)
//   - ConsistentHash: Hash ring with virtual nodes, minimal movement when members change
//
// Custom strategies can be implemented by satisfying the types.AssignmentStrategy interface.
package strategy
