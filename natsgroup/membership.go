package natsgroup

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kgroup/types"
)

// membership announces this member in the member bucket and tracks the
// live members of the group.
//
// A member key lives for one bucket TTL after its last write, so a member
// that stops heartbeating drops out of the group on its own.
type membership struct {
	kv       jetstream.KeyValue
	keys     groupKeys
	memberID string
	logger   types.Logger
	metrics  types.MetricsCollector

	mu      sync.Mutex
	members []string // last observed, sorted

	// changed receives a token whenever the observed member list changes.
	changed chan struct{}
}

func newMembership(kv jetstream.KeyValue, keys groupKeys, memberID string, logger types.Logger, metrics types.MetricsCollector) *membership {
	return &membership{
		kv:       kv,
		keys:     keys,
		memberID: memberID,
		logger:   logger,
		metrics:  metrics,
		changed:  make(chan struct{}, 1),
	}
}

// beat writes this member's heartbeat key.
func (m *membership) beat(ctx context.Context) error {
	defer observe(m.metrics, "put", time.Now())

	value := []byte(time.Now().Format(time.RFC3339Nano))
	if _, err := m.kv.Put(ctx, m.keys.member(m.memberID), value); err != nil {
		m.metrics.RecordHeartbeat(m.memberID, false)
		return fmt.Errorf("failed to publish heartbeat for %s: %w", m.memberID, err)
	}
	m.metrics.RecordHeartbeat(m.memberID, true)

	return nil
}

// leave deletes this member's heartbeat key so the other members notice
// the departure without waiting for the TTL.
func (m *membership) leave(ctx context.Context) error {
	defer observe(m.metrics, "delete", time.Now())

	if err := m.kv.Delete(ctx, m.keys.member(m.memberID)); err != nil {
		return fmt.Errorf("failed to delete heartbeat for %s: %w", m.memberID, err)
	}

	return nil
}

// list returns the sorted IDs of all members with a live heartbeat key.
func (m *membership) list(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := m.kv.Keys(ctx)
	observe(m.metrics, "keys", start)
	if err != nil {
		if types.IsNoKeysFoundError(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list member keys: %w", err)
	}

	members := make([]string, 0, len(keys))
	for _, key := range keys {
		if id, ok := m.keys.memberID(key); ok {
			members = append(members, id)
		}
	}
	slices.Sort(members)

	return members, nil
}

// refresh lists the members and signals changed when the list differs from
// the last observation.
func (m *membership) refresh(ctx context.Context) ([]string, error) {
	members, err := m.list(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	diff := !slices.Equal(m.members, members)
	if diff {
		m.members = members
	}
	m.mu.Unlock()

	if diff {
		m.metrics.RecordMemberCount(len(members))
		m.logger.Debug("group membership changed", "members", members)
		select {
		case m.changed <- struct{}{}:
		default:
		}
	}

	return slices.Clone(members), nil
}

// current returns the last observed member list.
func (m *membership) current() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.members)
}

// drain discards a pending change notification.
func (m *membership) drain() {
	select {
	case <-m.changed:
	default:
	}
}

// monitor keeps the member list current until ctx is done.
//
// A KV watcher gives fast detection of joins and explicit leaves; polling
// every ttl/2 catches members whose keys expired, which the watcher does
// not report.
func (m *membership) monitor(ctx context.Context, ttl time.Duration) {
	var updates <-chan jetstream.KeyValueEntry
	watcher, err := m.kv.Watch(ctx, m.keys.memberPattern(), jetstream.MetaOnly())
	if err != nil {
		m.logger.Warn("failed to start member watcher, falling back to polling only", "error", err)
	} else {
		defer func() {
			if err := watcher.Stop(); err != nil {
				m.logger.Debug("failed to stop member watcher", "error", err)
			}
		}()
		updates = watcher.Updates()
	}

	poll := time.NewTicker(ttl / 2)
	defer poll.Stop()

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	pending := false

	check := func() {
		if _, err := m.refresh(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("membership check failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return
		case <-poll.C:
			check()
		case entry, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if entry == nil || pending {
				continue
			}
			pending = true
			debounce.Reset(watchDebounce)
		case <-debounce.C:
			pending = false
			check()
		}
	}
}

func observe(metrics types.MetricsCollector, op string, start time.Time) {
	metrics.RecordKVOperationDuration(op, time.Since(start).Seconds())
}
