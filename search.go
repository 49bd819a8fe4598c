package kgroup

import (
	"context"

	"github.com/arloliu/kgroup/internal/discovery"
)

// TopicLister lists every topic of a cluster. source.Kafka and
// source.Static implement it.
type TopicLister = discovery.TopicLister

// SearchTopics returns the sorted names of all topics whose name starts
// with a match of the regular expression pattern.
//
// Example:
//
//	topics, err := kgroup.SearchTopics(ctx, kafka, `^orders\.v[0-9]+$`)
func SearchTopics(ctx context.Context, lister TopicLister, pattern string) ([]string, error) {
	return discovery.SearchTopics(ctx, lister, pattern)
}

// HasTopic reports whether the cluster has a topic named topic.
func HasTopic(ctx context.Context, lister TopicLister, topic string) (bool, error) {
	return discovery.HasTopic(ctx, lister, topic)
}
