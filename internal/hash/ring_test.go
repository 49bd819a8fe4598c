package hash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kgroup/types"
)

func TestNewRing(t *testing.T) {
	members := []string{"member-0", "member-1", "member-2", "member-1"}
	ring := NewRing(members, 100, 0)

	require.Equal(t, 300, ring.Size())
	require.Equal(t, []string{"member-0", "member-1", "member-2"}, ring.Members())
}

func TestRing_GetNode(t *testing.T) {
	t.Run("assigns keys consistently", func(t *testing.T) {
		members := []string{"member-0", "member-1"}
		ring := NewRing(members, 150, 0)

		for _, key := range []string{"test-partition", "another-key", "xyz"} {
			require.Equal(t, ring.GetNode(key), ring.GetNode(key), "key %s not consistent", key)
			require.Contains(t, members, ring.GetNode(key))
		}
	})

	t.Run("returns empty string for empty ring", func(t *testing.T) {
		ring := NewRing(nil, 150, 0)
		require.Empty(t, ring.GetNode("any-key"))
		require.Empty(t, ring.GetNodeForPartition(types.Partition{Topic: "t", Index: 0}))
	})
}

func TestRing_GetNodeForPartition(t *testing.T) {
	t.Run("distributes partitions across members", func(t *testing.T) {
		members := []string{"member-0", "member-1", "member-2"}
		ring := NewRing(members, 150, 0)

		counts := make(map[string]int)
		for i := range 3000 {
			p := types.Partition{Topic: fmt.Sprintf("topic-%d", i%30), Index: i}
			counts[ring.GetNodeForPartition(p)]++
		}

		expected := 3000 / len(members)
		tolerance := expected * 25 / 100
		for _, m := range members {
			require.InDelta(t, expected, counts[m], float64(tolerance), "member %s", m)
		}
	})

	t.Run("independent of member order", func(t *testing.T) {
		a := NewRing([]string{"m-a", "m-b", "m-c"}, 50, 7)
		b := NewRing([]string{"m-c", "m-a", "m-b"}, 50, 7)

		for i := range 200 {
			p := types.Partition{Topic: "orders", Index: i}
			require.Equal(t, a.GetNodeForPartition(p), b.GetNodeForPartition(p))
		}
	})

	t.Run("limited movement when a member joins", func(t *testing.T) {
		before := NewRing([]string{"m-0", "m-1", "m-2"}, 150, 0)
		after := NewRing([]string{"m-0", "m-1", "m-2", "m-3"}, 150, 0)

		moved := 0
		for i := range 1000 {
			p := types.Partition{Topic: "events", Index: i}
			if before.GetNodeForPartition(p) != after.GetNodeForPartition(p) {
				moved++
			}
		}
		// Ideal movement is 1/4 of partitions.
		require.Less(t, moved, 400)
	})
}
