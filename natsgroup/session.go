package natsgroup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kgroup/internal/kvutil"
	"github.com/arloliu/kgroup/internal/logging"
	"github.com/arloliu/kgroup/internal/metrics"
	"github.com/arloliu/kgroup/strategy"
	"github.com/arloliu/kgroup/types"
)

const (
	// DefaultMemberBucket is the default KV bucket for member heartbeats.
	DefaultMemberBucket = "kgroup-members"

	// DefaultLockBucket is the default KV bucket for partition locks.
	DefaultLockBucket = "kgroup-locks"

	// DefaultMemberTTL is the default lifetime of member and lock keys.
	DefaultMemberTTL = 10 * time.Second

	reconnectPollInterval = 50 * time.Millisecond
	bucketAttempts        = 3
)

// Session is a coordination session backed by a NATS connection.
//
// A Session dials lazily: Connect establishes the connection, and may be
// called again after Close to dial a fresh one.
type Session struct {
	url          string
	natsOpts     []nats.Option
	memberBucket string
	lockBucket   string
	memberTTL    time.Duration
	storage      jetstream.StorageType
	strategy     types.AssignmentStrategy
	logger       types.Logger
	metrics      types.MetricsCollector

	mu   sync.Mutex
	conn *nats.Conn
}

var _ types.Session = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithConn uses an existing connection instead of dialing.
//
// Closing the session closes nc. If the session was created without a URL,
// the server nc is connected to is used for later re-dials.
func WithConn(nc *nats.Conn) Option {
	return func(s *Session) {
		s.conn = nc
		if s.url == "" && nc != nil {
			s.url = nc.ConnectedUrl()
		}
	}
}

// WithNATSOptions sets options passed to nats.Connect.
func WithNATSOptions(opts ...nats.Option) Option {
	return func(s *Session) {
		s.natsOpts = append(s.natsOpts, opts...)
	}
}

// WithBuckets sets the member and lock bucket names.
func WithBuckets(memberBucket, lockBucket string) Option {
	return func(s *Session) {
		if memberBucket != "" {
			s.memberBucket = memberBucket
		}
		if lockBucket != "" {
			s.lockBucket = lockBucket
		}
	}
}

// WithMemberTTL sets how long member and lock keys live without renewal.
//
// A crashed member leaves the group, and its partitions become claimable,
// after at most one TTL.
func WithMemberTTL(ttl time.Duration) Option {
	return func(s *Session) {
		if ttl > 0 {
			s.memberTTL = ttl
		}
	}
}

// WithStorage sets the JetStream storage type of the buckets.
func WithStorage(storage jetstream.StorageType) Option {
	return func(s *Session) {
		s.storage = storage
	}
}

// WithStrategy sets the assignment strategy. All members of a group must
// use the same strategy.
func WithStrategy(st types.AssignmentStrategy) Option {
	return func(s *Session) {
		if st != nil {
			s.strategy = st
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger types.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewSession creates a session for the NATS server at url.
//
// Parameters:
//   - url: NATS server URL; may be empty when WithConn is given
//   - opts: Optional configuration
//
// Returns:
//   - *Session: The session, not yet connected unless WithConn was used
func NewSession(url string, opts ...Option) *Session {
	s := &Session{
		url:          url,
		memberBucket: DefaultMemberBucket,
		lockBucket:   DefaultLockBucket,
		memberTTL:    DefaultMemberTTL,
		storage:      jetstream.FileStorage,
		strategy:     strategy.NewRoundRobin(),
		logger:       logging.NewNop(),
		metrics:      metrics.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State maps the NATS connection status to a session state.
func (s *Session) State() types.SessionState {
	conn := s.connection()
	if conn == nil {
		return types.SessionLost
	}

	switch conn.Status() {
	case nats.CONNECTED:
		return types.SessionConnected
	case nats.CONNECTING, nats.RECONNECTING, nats.DISCONNECTED, nats.DRAINING_SUBS, nats.DRAINING_PUBS:
		return types.SessionSuspended
	default:
		return types.SessionLost
	}
}

// Connect establishes the connection.
//
// A closed connection is replaced by a new dial. A connection that is
// reconnecting on its own is waited for until it recovers or ctx is done.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	if conn != nil && !conn.IsClosed() {
		s.mu.Unlock()
		if conn.IsConnected() {
			return nil
		}

		return s.awaitConnected(ctx, conn)
	}
	defer s.mu.Unlock()

	if s.url == "" {
		return types.ErrSessionClosed
	}

	nc, err := nats.Connect(s.url, s.natsOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	s.conn = nc
	s.logger.Info("connected to NATS", "url", nc.ConnectedUrl())

	return nil
}

func (s *Session) awaitConnected(ctx context.Context, conn *nats.Conn) error {
	ticker := time.NewTicker(reconnectPollInterval)
	defer ticker.Stop()

	for {
		switch {
		case conn.IsConnected():
			return nil
		case conn.IsClosed():
			return types.ErrSessionClosed
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for reconnect: %w", types.ErrConnectivity, ctx.Err())
		case <-ticker.C:
		}
	}
}

// NewSetPartitioner joins the group at path with a fresh member ID and
// starts arbitrating set among the group members.
//
// Parameters:
//   - ctx: Context for bucket setup and the first heartbeat
//   - path: Group path shared by all members
//   - set: Partition IDs as rendered by types.Partition.ID
//   - timeBoundary: How long membership must stay stable before allocation
//
// Returns:
//   - types.SetPartitioner: The started *SetPartitioner
//   - error: Setup error
func (s *Session) NewSetPartitioner(ctx context.Context, path string, set []string, timeBoundary time.Duration) (types.SetPartitioner, error) {
	conn := s.connection()
	if conn == nil || conn.IsClosed() {
		return nil, types.ErrSessionClosed
	}
	if timeBoundary <= 0 {
		return nil, fmt.Errorf("%w: time boundary must be positive, got %s", types.ErrInvalidConfig, timeBoundary)
	}

	partitions := make([]types.Partition, 0, len(set))
	for _, id := range set {
		partition, err := types.ParsePartitionID(id)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, partition)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	memberKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js,
		kvutil.BucketConfig(s.memberBucket, s.memberTTL, s.storage), bucketAttempts)
	if err != nil {
		return nil, err
	}
	lockKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js,
		kvutil.BucketConfig(s.lockBucket, s.memberTTL, s.storage), bucketAttempts)
	if err != nil {
		return nil, err
	}

	memberID := uuid.NewString()
	keys := newGroupKeys(path)
	logger := s.logger
	if l, ok := logger.(*logging.SlogLogger); ok {
		logger = l.With("member_id", memberID)
	}

	sp := newSetPartitioner(setPartitionerConfig{
		path:         path,
		memberID:     memberID,
		set:          partitions,
		timeBoundary: timeBoundary,
		memberTTL:    s.memberTTL,
		strategy:     s.strategy,
		logger:       logger,
		members:      newMembership(memberKV, keys, memberID, logger, s.metrics),
		locks:        newLockTable(lockKV, keys, memberID, s.metrics),
	})
	if err := sp.start(ctx); err != nil {
		return nil, err
	}

	return sp, nil
}

// Stop drains the connection, flushing pending publishes.
func (s *Session) Stop() error {
	conn := s.connection()
	if conn == nil || conn.IsClosed() {
		return nil
	}

	if err := conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}

	return nil
}

// Close closes the connection. Connect may dial again afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	return nil
}

func (s *Session) connection() *nats.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn
}
