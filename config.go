package kgroup

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/kgroup/natsgroup"
)

// DefaultGroupRoot is the coordination path under which groups live.
const DefaultGroupRoot = "/yelp-kafka"

// NATSConfig configures the default NATS coordination session.
//
// It is ignored when a session is supplied with WithSession.
type NATSConfig struct {
	// URL is the NATS server URL.
	URL string `yaml:"url"`

	// MemberBucket is the KV bucket for member heartbeats.
	MemberBucket string `yaml:"memberBucket"`

	// LockBucket is the KV bucket for partition locks.
	LockBucket string `yaml:"lockBucket"`

	// MemberTTL is how long member and lock keys live without renewal.
	// A crashed process leaves the group after at most one MemberTTL.
	// Recommended: 10 seconds.
	MemberTTL time.Duration `yaml:"memberTtl"`
}

// Config is the configuration for the Partitioner.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h".
type Config struct {
	// GroupRoot is the path prefix of every group.
	// Processes only cooperate when they share the same root.
	GroupRoot string `yaml:"groupRoot"`

	// GroupID names the group. Required.
	GroupID string `yaml:"groupId"`

	// ClientID identifies this process to the brokers.
	ClientID string `yaml:"clientId"`

	// Brokers is the broker address list for partition discovery.
	// Ignored when a metadata client is supplied with WithBroker.
	Brokers []string `yaml:"brokers"`

	// Cooldown is the minimum interval between partition set recomputations.
	// It is also the time group membership must stay stable before
	// partitions are allocated, and the bound of each allocation wait.
	// Recommended: 30 seconds.
	Cooldown time.Duration `yaml:"cooldown"`

	// TickInterval is how often Run drives the state machine.
	// Recommended: 1 second.
	TickInterval time.Duration `yaml:"tickInterval"`

	// UseGroupSHA appends a digest of the sorted topic list to the group path,
	// so the same group name used with different topics forms separate groups.
	UseGroupSHA bool `yaml:"useGroupSha"`

	// OperationTimeout bounds session connects and primitive creation.
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// NATS configures the default coordination session.
	NATS NATSConfig `yaml:"nats"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// GroupID has no default and must be set by the caller.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		GroupRoot:        DefaultGroupRoot,
		ClientID:         "kgroup",
		Cooldown:         30 * time.Second,
		TickInterval:     time.Second,
		UseGroupSHA:      true,
		OperationTimeout: 10 * time.Second,
		NATS: NATSConfig{
			URL:          "nats://127.0.0.1:4222",
			MemberBucket: natsgroup.DefaultMemberBucket,
			LockBucket:   natsgroup.DefaultLockBucket,
			MemberTTL:    natsgroup.DefaultMemberTTL,
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.GroupRoot == "" {
		cfg.GroupRoot = defaults.GroupRoot
	}
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = defaults.NATS.URL
	}
	if cfg.NATS.MemberBucket == "" {
		cfg.NATS.MemberBucket = defaults.NATS.MemberBucket
	}
	if cfg.NATS.LockBucket == "" {
		cfg.NATS.LockBucket = defaults.NATS.LockBucket
	}
	if cfg.NATS.MemberTTL == 0 {
		cfg.NATS.MemberTTL = defaults.NATS.MemberTTL
	}
	// Note: UseGroupSHA=false is a valid choice, so it is never overridden.
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - GroupID is set
//   - GroupRoot is an absolute path without a trailing slash
//   - Cooldown > 0
//   - TickInterval > 0
//   - OperationTimeout > 0
//   - NATS.MemberTTL > 0 and the bucket names differ
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	// Rule 1: a group needs a name
	if cfg.GroupID == "" {
		return fmt.Errorf("%w: GroupID is required", ErrInvalidConfig)
	}

	// Rule 2: GroupRoot shape, since it is joined with "/"
	if !strings.HasPrefix(cfg.GroupRoot, "/") || (len(cfg.GroupRoot) > 1 && strings.HasSuffix(cfg.GroupRoot, "/")) {
		return fmt.Errorf("%w: GroupRoot (%q) must start with '/' and must not end with '/'",
			ErrInvalidConfig, cfg.GroupRoot)
	}

	// Rule 3: Cooldown sanity
	if cfg.Cooldown <= 0 {
		return fmt.Errorf("%w: Cooldown must be > 0, got %v", ErrInvalidConfig, cfg.Cooldown)
	}

	// Rule 4: TickInterval sanity
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("%w: TickInterval must be > 0, got %v", ErrInvalidConfig, cfg.TickInterval)
	}

	// Rule 5: OperationTimeout sanity
	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("%w: OperationTimeout must be > 0, got %v", ErrInvalidConfig, cfg.OperationTimeout)
	}

	// Rule 6: NATS session settings
	if cfg.NATS.MemberTTL <= 0 {
		return fmt.Errorf("%w: NATS.MemberTTL must be > 0, got %v", ErrInvalidConfig, cfg.NATS.MemberTTL)
	}
	if cfg.NATS.MemberBucket == cfg.NATS.LockBucket {
		return fmt.Errorf("%w: NATS.MemberBucket and NATS.LockBucket must differ, both are %q",
			ErrInvalidConfig, cfg.NATS.MemberBucket)
	}

	return nil
}

// ValidateWithWarnings logs warnings for valid but non-recommended values.
//
// This is called after Validate() in NewPartitioner() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	// Allocation waits are bounded by Cooldown; ticking slower only delays reactions.
	if cfg.TickInterval > cfg.Cooldown {
		logger.Warn(
			"TickInterval exceeds Cooldown, rebalances will be noticed late",
			"tick_interval", cfg.TickInterval,
			"cooldown", cfg.Cooldown,
		)
	}

	// A crashed member is only noticed after MemberTTL, so a shorter stability
	// window can allocate around a member that is about to disappear.
	if cfg.Cooldown < cfg.NATS.MemberTTL {
		logger.Warn(
			"Cooldown is shorter than NATS.MemberTTL, allocations may race member expiry",
			"cooldown", cfg.Cooldown,
			"member_ttl", cfg.NATS.MemberTTL,
		)
	}

	if cfg.NATS.MemberTTL < 3*time.Second {
		logger.Warn(
			"NATS.MemberTTL is very short, transient network issues may evict members",
			"member_ttl", cfg.NATS.MemberTTL,
			"recommended", "10s or higher",
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := kgroup.TestConfig()
//	cfg.GroupID = "orders"
//	p, err := kgroup.NewPartitioner(&cfg, topics, onAcquire, onRelease)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.GroupID = "test-group"
	cfg.Cooldown = 200 * time.Millisecond
	cfg.TickInterval = 50 * time.Millisecond
	cfg.OperationTimeout = 5 * time.Second
	cfg.NATS.MemberTTL = 2 * time.Second

	return cfg
}

// ParseConfig decodes a YAML document into a Config.
//
// Fields missing from the document keep their DefaultConfig values. The
// result is validated.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - Config: Decoded configuration
//   - error: Decode or validation error
//
// Example:
//
//	groupId: orders
//	cooldown: 10s
//	brokers: ["kafka-1:9092", "kafka-2:9092"]
//	nats:
//	  url: nats://nats:4222
//	  memberTtl: 6s
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
