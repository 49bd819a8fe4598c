package kgroup

// Option configures a Partitioner with optional dependencies.
type Option func(*partitionerOptions)

// partitionerOptions holds optional Partitioner configuration.
type partitionerOptions struct {
	session Session
	broker  TopicMetadata
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
}

// WithSession sets the coordination session.
//
// The Partitioner takes ownership of the session and closes it in
// CloseConnections. Without this option a natsgroup.Session is built from
// Config.NATS.
//
// Parameters:
//   - session: Session implementation
//
// Returns:
//   - Option: Functional option for NewPartitioner
//
// Example:
//
//	sess := natsgroup.NewSession("", natsgroup.WithConn(nc))
//	p, err := kgroup.NewPartitioner(&cfg, topics, onAcquire, onRelease, kgroup.WithSession(sess))
func WithSession(session Session) Option {
	return func(o *partitionerOptions) {
		o.session = session
	}
}

// WithBroker sets the broker metadata client used for partition discovery.
//
// The Partitioner takes ownership of the client and closes it in
// CloseConnections. Without this option a source.Kafka client is built from
// Config.Brokers.
//
// Parameters:
//   - broker: TopicMetadata implementation
//
// Returns:
//   - Option: Functional option for NewPartitioner
//
// Example:
//
//	src := source.NewStatic(map[string]int{"orders": 12})
//	p, err := kgroup.NewPartitioner(&cfg, []string{"orders"}, onAcquire, onRelease, kgroup.WithBroker(src))
func WithBroker(broker TopicMetadata) Option {
	return func(o *partitionerOptions) {
		o.broker = broker
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewPartitioner
func WithHooks(hooks *Hooks) Option {
	return func(o *partitionerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewPartitioner
//
// Example:
//
//	collector := metrics.NewPrometheus(prometheus.DefaultRegisterer, "orders")
//	p, err := kgroup.NewPartitioner(&cfg, topics, onAcquire, onRelease, kgroup.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *partitionerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewPartitioner
//
// Example:
//
//	logger := logging.NewSlog(slog.Default())
//	p, err := kgroup.NewPartitioner(&cfg, topics, onAcquire, onRelease, kgroup.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *partitionerOptions) {
		o.logger = logger
	}
}
