// Package kgroup divides the partitions of a set of topics among a group of
// cooperating processes.
//
// Every process of a group runs a Partitioner with the same group name and
// topic list. The Partitioner expands the topics into their partitions with
// a broker metadata client, joins the group through a coordination session
// and hands each process a disjoint share of the partitions through the
// acquire callback. When a process joins or leaves, or when a topic gains
// or loses partitions, the shares are given back through the release
// callback and redistributed.
//
// # Quick Start
//
//	cfg := kgroup.DefaultConfig()
//	cfg.GroupID = "orders-consumers"
//	cfg.Brokers = []string{"kafka-1:9092"}
//	cfg.NATS.URL = "nats://nats:4222"
//
//	p, err := kgroup.NewPartitioner(&cfg, []string{"orders"},
//	    func(ctx context.Context, a kgroup.Assignment) error {
//	        return consumer.Assign(a)
//	    },
//	    func(ctx context.Context, a kgroup.Assignment) error {
//	        return consumer.Revoke(a)
//	    },
//	)
//	if err != nil {
//	    return err
//	}
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.CloseConnections(context.Background())
//
//	return p.Run(ctx)
//
// # States
//
// The Partitioner mirrors the state of its set partitioner:
//
//	Allocating → Acquired → Release → Allocating → ...
//
// Failure is terminal for a set partitioner; the Partitioner tears it down
// and returns a *CoordinationFatalError.
//
// # Group Path
//
// Processes cooperate when they share a group path, see GroupPath. With
// Config.UseGroupSHA the path includes a digest of the sorted topic list,
// so the same group name used for different topics forms separate groups.
//
// # Pluggable Parts
//
//   - Session and SetPartitioner: the coordination service, natsgroup by default
//   - TopicMetadata: the broker metadata client, source.Kafka by default
//   - AssignmentStrategy: how a set partitioner splits the set, see strategy
package kgroup
