package source

import (
	"context"
	"slices"
	"sync"

	"github.com/arloliu/kgroup/types"
)

// Static implements types.TopicMetadata with a fixed topic layout.
type Static struct {
	mu     sync.RWMutex
	topics map[string]int
	err    error
	closed bool
}

var _ types.TopicMetadata = (*Static)(nil)

// NewStatic creates a static source.
//
// Parameters:
//   - topics: Topic name to number of sub-partitions
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := source.NewStatic(map[string]int{"topic1": 4, "topic2": 3})
func NewStatic(topics map[string]int) *Static {
	s := &Static{}
	s.Update(topics)

	return s
}

// TopicPartitions returns indices 0..n-1 for every requested topic known to the source.
func (s *Static) TopicPartitions(_ context.Context, topics []string) (map[string][]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	out := make(map[string][]int, len(topics))
	for _, topic := range topics {
		n, ok := s.topics[topic]
		if !ok {
			continue
		}
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		out[topic] = indices
	}

	return out, nil
}

// ListTopics returns every topic of the source.
func (s *Static) ListTopics(ctx context.Context) (map[string][]int, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.topics))
	for name := range s.topics {
		names = append(names, name)
	}
	s.mu.RUnlock()
	slices.Sort(names)

	return s.TopicPartitions(ctx, names)
}

// Update replaces the topic layout, simulating partitions being added or removed.
func (s *Static) Update(topics map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topics = make(map[string]int, len(topics))
	for name, n := range topics {
		s.topics[name] = n
	}
}

// SetError makes subsequent queries fail with err (nil clears it).
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Close marks the source closed.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Closed reports whether Close was called.
func (s *Static) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}
