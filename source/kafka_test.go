package source

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeMetadata struct {
	resp     *kafka.MetadataResponse
	err      error
	requests []*kafka.MetadataRequest
}

func (f *fakeMetadata) Metadata(_ context.Context, req *kafka.MetadataRequest) (*kafka.MetadataResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	return f.resp, nil
}

func kafkaTopic(name string, ids ...int) kafka.Topic {
	parts := make([]kafka.Partition, len(ids))
	for i, id := range ids {
		parts[i] = kafka.Partition{Topic: name, ID: id}
	}

	return kafka.Topic{Name: name, Partitions: parts}
}

func TestNewKafka(t *testing.T) {
	_, err := NewKafka(nil)
	require.ErrorIs(t, err, ErrNoBrokers)

	k, err := NewKafka([]string{"localhost:9092"}, WithClientID("test"))
	require.NoError(t, err)
	require.NotNil(t, k.transport)
	require.Equal(t, "test", k.transport.ClientID)
	require.NoError(t, k.Close())
}

func TestKafka_TopicPartitions(t *testing.T) {
	t.Run("expands and sorts partitions", func(t *testing.T) {
		fake := &fakeMetadata{resp: &kafka.MetadataResponse{Topics: []kafka.Topic{
			kafkaTopic("topic1", 3, 1, 0, 2),
			kafkaTopic("topic2", 0, 2, 1),
		}}}
		k := newKafkaWithClient(fake, nil)

		got, err := k.TopicPartitions(context.Background(), []string{"topic1", "topic2"})
		require.NoError(t, err)
		require.Equal(t, map[string][]int{"topic1": {0, 1, 2, 3}, "topic2": {0, 1, 2}}, got)
		require.Equal(t, []string{"topic1", "topic2"}, fake.requests[0].Topics)
	})

	t.Run("skips topics with errors", func(t *testing.T) {
		bad := kafkaTopic("missing")
		bad.Error = kafka.UnknownTopicOrPartition
		fake := &fakeMetadata{resp: &kafka.MetadataResponse{Topics: []kafka.Topic{kafkaTopic("ok", 0), bad}}}

		got, err := newKafkaWithClient(fake, nil).TopicPartitions(context.Background(), []string{"ok", "missing"})
		require.NoError(t, err)
		require.Equal(t, map[string][]int{"ok": {0}}, got)
	})

	t.Run("propagates broker errors", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		fake := &fakeMetadata{err: cause}

		_, err := newKafkaWithClient(fake, nil).TopicPartitions(context.Background(), []string{"t"})
		require.ErrorIs(t, err, cause)
	})

	t.Run("no topics skips the request", func(t *testing.T) {
		fake := &fakeMetadata{}
		got, err := newKafkaWithClient(fake, nil).TopicPartitions(context.Background(), nil)
		require.NoError(t, err)
		require.Empty(t, got)
		require.Empty(t, fake.requests)
	})
}

func TestKafka_ListTopics(t *testing.T) {
	fake := &fakeMetadata{resp: &kafka.MetadataResponse{Topics: []kafka.Topic{kafkaTopic("a", 0), kafkaTopic("b", 1, 0)}}}

	got, err := newKafkaWithClient(fake, nil).ListTopics(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string][]int{"a": {0}, "b": {0, 1}}, got)
	require.Nil(t, fake.requests[0].Topics)
}
