package source

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"

	"github.com/arloliu/kgroup/internal/logging"
	"github.com/arloliu/kgroup/types"
)

// ErrNoBrokers is returned when a Kafka source is created without broker addresses.
var ErrNoBrokers = errors.New("at least one broker address is required")

// metadataRequester is the part of *kafka.Client used by Kafka.
type metadataRequester interface {
	Metadata(ctx context.Context, req *kafka.MetadataRequest) (*kafka.MetadataResponse, error)
}

// Kafka enumerates topic sub-partitions from a Kafka cluster.
//
// Every call issues a fresh metadata request; nothing is cached.
type Kafka struct {
	client    metadataRequester
	transport *kafka.Transport
	logger    types.Logger
}

var _ types.TopicMetadata = (*Kafka)(nil)

// KafkaOption configures a Kafka source.
type KafkaOption func(*kafkaOptions)

type kafkaOptions struct {
	tls         *tls.Config
	sasl        sasl.Mechanism
	dialTimeout time.Duration
	clientID    string
	logger      types.Logger
}

// WithTLS enables TLS towards the brokers.
func WithTLS(cfg *tls.Config) KafkaOption {
	return func(o *kafkaOptions) {
		o.tls = cfg
	}
}

// WithSASL sets the SASL mechanism used to authenticate with the brokers.
func WithSASL(mechanism sasl.Mechanism) KafkaOption {
	return func(o *kafkaOptions) {
		o.sasl = mechanism
	}
}

// WithDialTimeout sets the broker dial timeout (default: 5s).
func WithDialTimeout(d time.Duration) KafkaOption {
	return func(o *kafkaOptions) {
		o.dialTimeout = d
	}
}

// WithClientID sets the client ID reported to the brokers.
func WithClientID(id string) KafkaOption {
	return func(o *kafkaOptions) {
		o.clientID = id
	}
}

// WithKafkaLogger sets the logger used to report per-topic metadata errors.
func WithKafkaLogger(logger types.Logger) KafkaOption {
	return func(o *kafkaOptions) {
		o.logger = logger
	}
}

// NewKafka creates a Kafka metadata source.
//
// Parameters:
//   - brokers: Bootstrap broker addresses ("host:port")
//   - opts: Optional TLS, SASL, timeout and logging settings
//
// Returns:
//   - *Kafka: Metadata source
//   - error: ErrNoBrokers if brokers is empty
//
// Example:
//
//	src, err := source.NewKafka([]string{"kafka-1:9092", "kafka-2:9092"},
//	    source.WithClientID("my-consumer"))
func NewKafka(brokers []string, opts ...KafkaOption) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	o := kafkaOptions{dialTimeout: 5 * time.Second, clientID: "kgroup"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	transport := &kafka.Transport{
		DialTimeout: o.dialTimeout,
		TLS:         o.tls,
		SASL:        o.sasl,
		ClientID:    o.clientID,
	}

	return &Kafka{
		client: &kafka.Client{
			Addr:      kafka.TCP(brokers...),
			Transport: transport,
		},
		transport: transport,
		logger:    o.logger,
	}, nil
}

// newKafkaWithClient builds a Kafka source on an arbitrary metadata client.
func newKafkaWithClient(client metadataRequester, logger types.Logger) *Kafka {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Kafka{client: client, logger: logger}
}

// TopicPartitions returns the sub-partition indices of each requested topic.
//
// Topics reporting a metadata error (e.g. unknown topic) are skipped and
// logged. Indices are sorted ascending.
//
// Parameters:
//   - ctx: Context for the metadata request
//   - topics: Topic names to query
//
// Returns:
//   - map[string][]int: Topic name to sub-partition indices
//   - error: Broker unavailability or protocol error
func (k *Kafka) TopicPartitions(ctx context.Context, topics []string) (map[string][]int, error) {
	if len(topics) == 0 {
		return map[string][]int{}, nil
	}

	return k.metadata(ctx, topics)
}

// ListTopics returns the sub-partition indices of every topic in the cluster.
func (k *Kafka) ListTopics(ctx context.Context) (map[string][]int, error) {
	return k.metadata(ctx, nil)
}

func (k *Kafka) metadata(ctx context.Context, topics []string) (map[string][]int, error) {
	resp, err := k.client.Metadata(ctx, &kafka.MetadataRequest{Topics: topics})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kafka metadata: %w", err)
	}

	out := make(map[string][]int, len(resp.Topics))
	for _, topic := range resp.Topics {
		if topic.Error != nil {
			k.logger.Warn("skipping topic with metadata error", "topic", topic.Name, "error", topic.Error)
			continue
		}

		indices := make([]int, 0, len(topic.Partitions))
		for _, p := range topic.Partitions {
			indices = append(indices, p.ID)
		}
		slices.Sort(indices)
		out[topic.Name] = indices
	}

	return out, nil
}

// Close releases idle broker connections.
func (k *Kafka) Close() error {
	if k.transport != nil {
		k.transport.CloseIdleConnections()
	}

	return nil
}
