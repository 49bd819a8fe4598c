package kgroup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/arloliu/kgroup/internal/discovery"
	"github.com/arloliu/kgroup/internal/hooks"
	"github.com/arloliu/kgroup/internal/logging"
	"github.com/arloliu/kgroup/internal/metrics"
	"github.com/arloliu/kgroup/natsgroup"
	"github.com/arloliu/kgroup/source"
	"github.com/arloliu/kgroup/types"
)

// Partitioner divides the partitions of a set of topics among the
// processes of a group.
//
// The Partitioner is driven by ticks. Each tick recomputes the target
// partition set when the cooldown has elapsed, replaces the set
// partitioner when the set changed, and then reacts to the set
// partitioner's state by invoking the acquire and release callbacks.
//
// Lifecycle operations (Start, Refresh, Tick, Run, ReleaseAndFinish,
// CloseConnections) are serialized; the accessors may be called from any
// goroutine. Callbacks run inside a tick and must not call the lifecycle
// operations.
type Partitioner struct {
	cfg       Config
	topics    []string
	groupPath string

	onAcquire AssignmentFunc
	onRelease AssignmentFunc

	session    Session
	broker     TopicMetadata
	enumerator *discovery.Enumerator

	hooks   Hooks
	metrics MetricsCollector
	logger  Logger

	// opMu serializes lifecycle operations.
	opMu    sync.Mutex
	started bool

	// mu guards st. It is written only while opMu is held, so lifecycle
	// code reads st without taking mu.
	mu sync.RWMutex
	st coordState
}

// NewPartitioner creates a Partitioner for topics.
//
// Parameters:
//   - cfg: Configuration; missing values are filled with defaults
//   - topics: Topics whose partitions are divided among the group
//   - onAcquire: Called with the new mapping when partitions are acquired
//   - onRelease: Called with the current mapping when partitions must be given up
//   - opts: Optional dependencies (WithSession, WithBroker, WithLogger, ...)
//
// Returns:
//   - *Partitioner: The partitioner, not yet started
//   - error: Configuration error
//
// Example:
//
//	cfg := kgroup.DefaultConfig()
//	cfg.GroupID = "orders-consumers"
//	cfg.Brokers = []string{"kafka-1:9092"}
//	p, err := kgroup.NewPartitioner(&cfg, []string{"orders"}, onAcquire, onRelease)
//	if err != nil {
//	    return err
//	}
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.CloseConnections(context.Background())
//	return p.Run(ctx)
func NewPartitioner(cfg *Config, topics []string, onAcquire, onRelease AssignmentFunc, opts ...Option) (*Partitioner, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	if onAcquire == nil || onRelease == nil {
		return nil, fmt.Errorf("%w: acquire and release callbacks are required", ErrInvalidConfig)
	}

	// Fill in missing configuration values with defaults
	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &partitionerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Provide safe defaults for optional dependencies to avoid nil checks everywhere
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance)

	broker := options.broker
	if broker == nil {
		if len(cfg.Brokers) == 0 {
			return nil, ErrBrokerRequired
		}
		kafka, err := source.NewKafka(cfg.Brokers,
			source.WithClientID(cfg.ClientID),
			source.WithKafkaLogger(loggerInstance),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create broker metadata client: %w", err)
		}
		broker = kafka
	}

	session := options.session
	if session == nil {
		session = natsgroup.NewSession(cfg.NATS.URL,
			natsgroup.WithBuckets(cfg.NATS.MemberBucket, cfg.NATS.LockBucket),
			natsgroup.WithMemberTTL(cfg.NATS.MemberTTL),
			natsgroup.WithLogger(loggerInstance),
			natsgroup.WithMetrics(metricsCollector),
		)
	}

	topics = slices.Clone(topics)
	slices.Sort(topics)
	topics = slices.Compact(topics)

	p := &Partitioner{
		cfg:        *cfg,
		topics:     topics,
		groupPath:  GroupPath(cfg.GroupRoot, cfg.GroupID, topics, cfg.UseGroupSHA),
		onAcquire:  onAcquire,
		onRelease:  onRelease,
		session:    session,
		broker:     broker,
		enumerator: discovery.NewEnumerator(broker, loggerInstance),
		hooks:      hooks.Fill(options.hooks),
		metrics:    metricsCollector,
		logger:     loggerInstance,
	}
	p.st.reset()

	return p, nil
}

// Start connects the session, forces a partition refresh and blocks until
// partitions are acquired or ctx is done.
//
// Returns:
//   - error: ErrAlreadyStarted if called again before CloseConnections;
//     otherwise any Refresh error, after which connections are closed
func (p *Partitioner) Start(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	p.logger.Info("starting partitioner",
		"group_path", p.groupPath,
		"topics", p.topics,
		"cooldown", p.cfg.Cooldown,
	)

	if p.session.State() != SessionConnected {
		connectCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
		err := p.session.Connect(connectCtx)
		cancel()
		if err != nil {
			err = &CoordinationError{Op: "connect", Err: err}
			p.reportError(err)
			_ = p.closeConnections(ctx)

			return err
		}
	}

	p.st.forceRefresh.Store(true)

	return p.refresh(ctx)
}

// Refresh ticks until partitions are acquired or ctx is done.
//
// An acquisition with no partitions (more members than partitions) also
// ends the loop. On error the connections are closed before it is returned.
func (p *Partitioner) Refresh(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	return p.refresh(ctx)
}

func (p *Partitioner) refresh(ctx context.Context) error {
	for {
		if err := p.tick(ctx); err != nil {
			p.reportError(err)
			if closeErr := p.closeConnections(context.WithoutCancel(ctx)); closeErr != nil {
				p.logger.Warn("failed to close connections", "group_path", p.groupPath, "error", closeErr)
			}

			return err
		}

		if p.st.observed == PartitionAcquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// Tick runs one refresh opportunity followed by one state observation.
//
// Returns:
//   - error: *DiscoveryError, *CoordinationError or *CoordinationFatalError
func (p *Partitioner) Tick(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	err := p.tick(ctx)
	if err != nil {
		p.reportError(err)
	}

	return err
}

// Run ticks every Config.TickInterval until ctx is done or a tick fails.
//
// A failed tick closes the connections; the Partitioner may then be
// started again.
//
// Returns:
//   - error: nil when ctx is done, otherwise the tick error
func (p *Partitioner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := p.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if closeErr := p.CloseConnections(context.WithoutCancel(ctx)); closeErr != nil {
				p.logger.Warn("failed to close connections", "group_path", p.groupPath, "error", closeErr)
			}

			return err
		}
	}
}

// ForceRefresh makes the next tick recompute the partition set regardless
// of the cooldown.
func (p *Partitioner) ForceRefresh() {
	p.st.forceRefresh.Store(true)
}

func (p *Partitioner) tick(ctx context.Context) error {
	if err := p.refreshPartitions(ctx); err != nil {
		return err
	}

	return p.handleState(ctx)
}

// refreshPartitions recomputes the target partition set when due, and
// replaces the set partitioner when the set changed.
func (p *Partitioner) refreshPartitions(ctx context.Context) error {
	now := time.Now()
	if !p.st.refreshDue(now, p.cfg.Cooldown) {
		return nil
	}
	forced := p.st.forceRefresh.Load() || p.st.primitive == nil

	target, err := p.enumerator.PartitionSet(ctx, p.topics)
	if err != nil {
		if !forced {
			p.metrics.RecordDiscoveryFailure(true)
			p.logger.Warn("partition discovery failed, keeping current partitions",
				"group_path", p.groupPath,
				"error", err,
			)

			return nil
		}

		p.metrics.RecordDiscoveryFailure(false)
		if relErr := p.releaseAndFinish(ctx); relErr != nil {
			p.logger.Warn("teardown after discovery failure failed", "group_path", p.groupPath, "error", relErr)
		}

		return &DiscoveryError{Err: err}
	}
	p.metrics.RecordPartitionCount(target.Len())

	if p.st.primitive != nil && target.Equal(p.st.target) {
		p.update(func(st *coordState) { st.touch(now) })
		return nil
	}

	reason := "initial"
	if p.st.primitive != nil {
		reason = "partitions_changed"
		p.logger.Info("partition set changed, rebalancing",
			"group_path", p.groupPath,
			"old_partitions", p.st.target.Len(),
			"new_partitions", target.Len(),
		)
		if err := p.releaseAndFinish(ctx); err != nil {
			return err
		}
	}

	primitive, err := p.createPrimitive(ctx, target)
	if err != nil {
		return err
	}

	p.update(func(st *coordState) { st.adopt(target, primitive, now) })
	p.metrics.RecordRebalance(reason)
	p.logger.Info("joined group",
		"group_path", p.groupPath,
		"partitions", target.Len(),
		"reason", reason,
	)

	return nil
}

// createPrimitive reconnects the session if needed and creates a set
// partitioner for target. It does not touch the coordinator state.
func (p *Partitioner) createPrimitive(ctx context.Context, target PartitionSet) (SetPartitioner, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	if state := p.session.State(); state != SessionConnected {
		p.logger.Info("session not connected, reconnecting", "group_path", p.groupPath, "state", state.String())
		if err := p.session.Connect(ctx); err != nil {
			return nil, &CoordinationError{Op: "connect", Err: err}
		}
	}

	primitive, err := p.session.NewSetPartitioner(ctx, p.groupPath, target.IDs(), p.cfg.Cooldown)
	if err != nil {
		return nil, &CoordinationError{Op: "create", Err: err}
	}

	return primitive, nil
}

// handleState observes the set partitioner once and reacts to its state.
func (p *Partitioner) handleState(ctx context.Context) error {
	primitive := p.st.primitive
	if primitive == nil {
		return nil
	}

	state := primitive.State()
	if state == PartitionAllocating {
		waitCtx, cancel := context.WithTimeout(ctx, p.cfg.Cooldown)
		err := primitive.WaitForAcquire(waitCtx)
		cancel()
		if err != nil {
			p.logger.Debug("wait for acquire ended", "group_path", p.groupPath, "error", err)
		}
		state = primitive.State()
	}
	p.observe(ctx, state)

	switch state {
	case PartitionAcquired:
		return p.handleAcquired(ctx, primitive)
	case PartitionRelease:
		return p.handleRelease(ctx, primitive)
	case PartitionFailure:
		return p.handleFailure(ctx, primitive)
	default:
		p.logger.Debug("allocating partitions", "group_path", p.groupPath)
		return nil
	}
}

func (p *Partitioner) handleAcquired(ctx context.Context, primitive SetPartitioner) error {
	mapping := types.AssignmentFromIDs(primitive.Held())
	if p.st.delivered && mapping.Equal(p.st.acquired) {
		return nil
	}

	p.update(func(st *coordState) { st.acquire(mapping) })
	p.metrics.RecordAcquiredCount(mapping.Len())
	p.logger.Info("partitions acquired", "group_path", p.groupPath, "partitions", mapping.Len())

	if err := p.onAcquire(ctx, mapping.Clone()); err != nil {
		p.metrics.RecordCallbackError("acquire")
		return &CoordinationError{Op: "acquire", Err: err}
	}

	return nil
}

func (p *Partitioner) handleRelease(ctx context.Context, primitive SetPartitioner) error {
	var cbErr error
	if !p.st.released {
		cbErr = p.callRelease(ctx)
	}

	if err := primitive.ReleaseSet(ctx); err != nil {
		p.logger.Warn("release acknowledgement failed", "group_path", p.groupPath, "error", err)
	}

	// The locks are handed over even when the callback failed, so the
	// mapping is gone either way.
	p.update(func(st *coordState) { st.release() })
	// Membership changed; the partition set may have changed with it.
	p.st.forceRefresh.Store(true)

	if cbErr != nil {
		return &CoordinationError{Op: "release", Err: cbErr}
	}

	return nil
}

func (p *Partitioner) handleFailure(ctx context.Context, primitive SetPartitioner) error {
	var cause error
	if f, ok := primitive.(interface{ Err() error }); ok {
		cause = f.Err()
	}

	p.logger.Error("set partitioner failed", "group_path", p.groupPath, "error", cause)
	if err := p.releaseAndFinish(ctx); err != nil {
		p.logger.Warn("teardown after failure failed", "group_path", p.groupPath, "error", err)
	}

	return &CoordinationFatalError{Err: cause}
}

// callRelease hands the current mapping to the release callback.
func (p *Partitioner) callRelease(ctx context.Context) error {
	mapping := p.st.acquired.Clone()
	p.logger.Info("releasing partitions", "group_path", p.groupPath, "partitions", mapping.Len())

	if err := p.onRelease(ctx, mapping); err != nil {
		p.metrics.RecordCallbackError("release")
		return err
	}

	return nil
}

// observe records the observed state and reports transitions.
func (p *Partitioner) observe(ctx context.Context, to PartitionState) {
	from := p.st.observed
	if from == to {
		return
	}
	p.update(func(st *coordState) { st.observed = to })

	p.logger.Info("state transition",
		"group_path", p.groupPath,
		"from", from.String(),
		"to", to.String(),
	)
	p.metrics.RecordStateTransition(from, to)

	// Run hook in background to avoid blocking the tick
	hookCtx := context.WithoutCancel(ctx)
	go func() {
		if err := p.hooks.OnStateChanged(hookCtx, from, to); err != nil {
			p.logger.Error("state change hook error", "from", from.String(), "to", to.String(), "error", err)
		}
	}()
}

func (p *Partitioner) reportError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	go func() {
		if hookErr := p.hooks.OnError(context.Background(), err); hookErr != nil {
			p.logger.Error("error hook error", "error", hookErr)
		}
	}()
}

// PartitionSet returns the target partition set the current set
// partitioner was built with.
func (p *Partitioner) PartitionSet() PartitionSet {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.st.target
}

// AcquiredPartitions returns a copy of the acquired partition mapping.
func (p *Partitioner) AcquiredPartitions() Assignment {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.st.acquired.Clone()
}

// GroupPath returns the coordination path of the group.
func (p *Partitioner) GroupPath() string {
	return p.groupPath
}

// State returns the last observed set partitioner state.
func (p *Partitioner) State() PartitionState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.st.observed
}

func (p *Partitioner) update(fn func(st *coordState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn(&p.st)
}
