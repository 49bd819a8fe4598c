package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kgroup/internal/logging"
	"github.com/arloliu/kgroup/source"
	"github.com/arloliu/kgroup/types"
)

type allTopics struct {
	topics map[string][]int
}

func (a allTopics) TopicPartitions(context.Context, []string) (map[string][]int, error) {
	return a.topics, nil
}

func (a allTopics) Close() error { return nil }

func TestEnumerator_PartitionSet(t *testing.T) {
	t.Run("restricts to requested topics", func(t *testing.T) {
		src := source.NewStatic(map[string]int{"topic1": 4, "topic2": 3, "topic3": 4})
		e := NewEnumerator(src, logging.NewNop())

		set, err := e.PartitionSet(context.Background(), []string{"topic1", "topic2"})
		require.NoError(t, err)
		require.Equal(t, []string{
			"topic1-0", "topic1-1", "topic1-2", "topic1-3",
			"topic2-0", "topic2-1", "topic2-2",
		}, set.IDs())
	})

	t.Run("ignores extra topics returned by the broker", func(t *testing.T) {
		broker := allTopics{topics: map[string][]int{"topic1": {0, 1}, "topic3": {0}}}
		e := NewEnumerator(broker, logging.NewNop())

		set, err := e.PartitionSet(context.Background(), []string{"topic1", "topic2"})
		require.NoError(t, err)
		require.Equal(t, []string{"topic1-0", "topic1-1"}, set.IDs())
	})

	t.Run("wraps broker failures", func(t *testing.T) {
		src := source.NewStatic(nil)
		src.SetError(errors.New("no brokers"))
		e := NewEnumerator(src, logging.NewNop())

		_, err := e.PartitionSet(context.Background(), []string{"topic1"})
		require.ErrorIs(t, err, types.ErrDiscovery)
		require.ErrorContains(t, err, "no brokers")
	})
}

func TestSearchTopics(t *testing.T) {
	src := source.NewStatic(map[string]int{"orders.v1": 1, "orders.v2": 1, "payments": 1})

	got, err := SearchTopics(context.Background(), src, `^orders\.`)
	require.NoError(t, err)
	require.Equal(t, []string{"orders.v1", "orders.v2"}, got)

	t.Run("matches only at the start of the name", func(t *testing.T) {
		src := source.NewStatic(map[string]int{"orders.v1": 1, "scribe.uswest1.orders": 1})

		got, err := SearchTopics(context.Background(), src, "orders")
		require.NoError(t, err)
		require.Equal(t, []string{"orders.v1"}, got)

		got, err = SearchTopics(context.Background(), src, `.*\.orders`)
		require.NoError(t, err)
		require.Equal(t, []string{"scribe.uswest1.orders"}, got)
	})

	got, err = SearchTopics(context.Background(), src, "nothing")
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = SearchTopics(context.Background(), src, "(")
	require.Error(t, err)

	src.SetError(errors.New("down"))
	_, err = SearchTopics(context.Background(), src, ".*")
	require.ErrorIs(t, err, types.ErrDiscovery)
}

func TestHasTopic(t *testing.T) {
	src := source.NewStatic(map[string]int{"payments": 2})

	ok, err := HasTopic(context.Background(), src, "payments")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = HasTopic(context.Background(), src, "pay")
	require.NoError(t, err)
	require.False(t, ok)
}
