// Package discovery expands configured topics into the target partition set.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/arloliu/kgroup/types"
)

// Enumerator computes the target partition set from broker metadata.
type Enumerator struct {
	broker types.TopicMetadata
	logger types.Logger
}

// NewEnumerator creates an enumerator over the given metadata client.
func NewEnumerator(broker types.TopicMetadata, logger types.Logger) *Enumerator {
	return &Enumerator{broker: broker, logger: logger}
}

// PartitionSet returns every currently valid partition of the requested topics.
//
// Topics returned by the broker that were not requested are ignored. Topics
// unknown to the broker contribute nothing.
//
// Parameters:
//   - ctx: Context for the metadata query
//   - topics: Topic names to expand
//
// Returns:
//   - types.PartitionSet: Target partition set
//   - error: Wraps types.ErrDiscovery when metadata cannot be retrieved
func (e *Enumerator) PartitionSet(ctx context.Context, topics []string) (types.PartitionSet, error) {
	meta, err := e.broker.TopicPartitions(ctx, topics)
	if err != nil {
		return types.PartitionSet{}, fmt.Errorf("%w: %w", types.ErrDiscovery, err)
	}

	requested := make(map[string][]int, len(topics))
	for _, topic := range topics {
		indices, ok := meta[topic]
		if !ok {
			e.logger.Warn("topic not found in broker metadata", "topic", topic)
			continue
		}
		requested[topic] = indices
	}

	return types.PartitionSetFromTopics(requested), nil
}

// TopicLister lists every topic of a cluster with its sub-partition indices.
type TopicLister interface {
	ListTopics(ctx context.Context) (map[string][]int, error)
}

// SearchTopics returns the sorted names of all topics matching pattern.
// The pattern is anchored at the start of the name, so "orders" matches
// "orders.v1" but not "scribe.orders".
//
// Parameters:
//   - ctx: Context for the metadata query
//   - lister: Cluster metadata source
//   - pattern: Regular expression matched against the start of topic names
//
// Returns:
//   - []string: Matching topic names
//   - error: Invalid pattern or a types.ErrDiscovery wrapped metadata error
func SearchTopics(ctx context.Context, lister TopicLister, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid topic pattern %q: %w", pattern, err)
	}

	all, err := lister.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrDiscovery, err)
	}

	var matches []string
	for name := range all {
		if loc := re.FindStringIndex(name); loc != nil && loc[0] == 0 {
			matches = append(matches, name)
		}
	}
	slices.Sort(matches)

	return matches, nil
}

// HasTopic reports whether the cluster has a topic with the exact given name.
func HasTopic(ctx context.Context, lister TopicLister, topic string) (bool, error) {
	all, err := lister.ListTopics(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", types.ErrDiscovery, err)
	}
	_, ok := all[topic]

	return ok, nil
}
