package kgroup

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/kgroup/internal/logging"
	"github.com/arloliu/kgroup/natsgroup"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "/yelp-kafka", cfg.GroupRoot)
	require.Empty(t, cfg.GroupID)
	require.Equal(t, "kgroup", cfg.ClientID)
	require.Empty(t, cfg.Brokers)
	require.Equal(t, 30*time.Second, cfg.Cooldown)
	require.Equal(t, time.Second, cfg.TickInterval)
	require.True(t, cfg.UseGroupSHA)
	require.Equal(t, 10*time.Second, cfg.OperationTimeout)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	require.Equal(t, natsgroup.DefaultMemberBucket, cfg.NATS.MemberBucket)
	require.Equal(t, natsgroup.DefaultLockBucket, cfg.NATS.LockBucket)
	require.Equal(t, natsgroup.DefaultMemberTTL, cfg.NATS.MemberTTL)

	// Only GroupID is missing.
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	cfg.GroupID = "orders"
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, DefaultGroupRoot, cfg.GroupRoot)
		require.Equal(t, "kgroup", cfg.ClientID)
		require.Equal(t, 30*time.Second, cfg.Cooldown)
		require.Equal(t, time.Second, cfg.TickInterval)
		require.Equal(t, 10*time.Second, cfg.OperationTimeout)
		require.Equal(t, natsgroup.DefaultMemberTTL, cfg.NATS.MemberTTL)
		require.NotEmpty(t, cfg.NATS.URL)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			GroupRoot:        "/custom",
			GroupID:          "orders",
			ClientID:         "orders-consumer",
			Brokers:          []string{"kafka-1:9092"},
			Cooldown:         5 * time.Second,
			TickInterval:     500 * time.Millisecond,
			OperationTimeout: 3 * time.Second,
			NATS: NATSConfig{
				URL:          "nats://nats:4222",
				MemberBucket: "m",
				LockBucket:   "l",
				MemberTTL:    4 * time.Second,
			},
		}
		SetDefaults(&cfg)

		require.Equal(t, "/custom", cfg.GroupRoot)
		require.Equal(t, "orders", cfg.GroupID)
		require.Equal(t, "orders-consumer", cfg.ClientID)
		require.Equal(t, []string{"kafka-1:9092"}, cfg.Brokers)
		require.Equal(t, 5*time.Second, cfg.Cooldown)
		require.Equal(t, 500*time.Millisecond, cfg.TickInterval)
		require.Equal(t, 3*time.Second, cfg.OperationTimeout)
		require.Equal(t, "nats://nats:4222", cfg.NATS.URL)
		require.Equal(t, "m", cfg.NATS.MemberBucket)
		require.Equal(t, "l", cfg.NATS.LockBucket)
		require.Equal(t, 4*time.Second, cfg.NATS.MemberTTL)
	})

	t.Run("never enables group digest", func(t *testing.T) {
		cfg := Config{UseGroupSHA: false}
		SetDefaults(&cfg)

		require.False(t, cfg.UseGroupSHA)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing group id", func(cfg *Config) { cfg.GroupID = "" }, "GroupID"},
		{"relative root", func(cfg *Config) { cfg.GroupRoot = "yelp-kafka" }, "GroupRoot"},
		{"trailing slash root", func(cfg *Config) { cfg.GroupRoot = "/yelp-kafka/" }, "GroupRoot"},
		{"slash root", func(cfg *Config) { cfg.GroupRoot = "/" }, ""},
		{"zero cooldown", func(cfg *Config) { cfg.Cooldown = 0 }, "Cooldown"},
		{"negative tick", func(cfg *Config) { cfg.TickInterval = -time.Second }, "TickInterval"},
		{"zero operation timeout", func(cfg *Config) { cfg.OperationTimeout = 0 }, "OperationTimeout"},
		{"zero member ttl", func(cfg *Config) { cfg.NATS.MemberTTL = 0 }, "MemberTTL"},
		{"same buckets", func(cfg *Config) { cfg.NATS.LockBucket = cfg.NATS.MemberBucket }, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := TestConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// warnRecorder captures warning messages.
type warnRecorder struct {
	logging.NopLogger

	mu       sync.Mutex
	messages []string
}

func (w *warnRecorder) Warn(msg string, _ ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, msg)
}

func (w *warnRecorder) has(substr string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, msg := range w.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}

	return false
}

func TestConfig_ValidateWithWarnings(t *testing.T) {
	t.Run("recommended values are quiet", func(t *testing.T) {
		cfg := DefaultConfig()
		rec := &warnRecorder{}
		cfg.ValidateWithWarnings(rec)

		require.Empty(t, rec.messages)
	})

	t.Run("slow ticks", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TickInterval = time.Minute
		rec := &warnRecorder{}
		cfg.ValidateWithWarnings(rec)

		require.True(t, rec.has("TickInterval exceeds Cooldown"))
	})

	t.Run("short cooldown and ttl", func(t *testing.T) {
		cfg := TestConfig()
		rec := &warnRecorder{}
		cfg.ValidateWithWarnings(rec)

		require.True(t, rec.has("Cooldown is shorter than NATS.MemberTTL"))
		require.True(t, rec.has("MemberTTL is very short"))
	})
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	require.NoError(t, cfg.Validate())
	require.Equal(t, "test-group", cfg.GroupID)
	require.Less(t, cfg.TickInterval, cfg.Cooldown)
	require.Less(t, cfg.Cooldown, DefaultConfig().Cooldown)
}

// TestConfig_YAML checks that durations decode from duration strings.
func TestConfig_YAML(t *testing.T) {
	yamlConfig := `
groupRoot: /kafka
groupId: orders
clientId: orders-consumer
brokers: ["kafka-1:9092", "kafka-2:9092"]
cooldown: 1m
tickInterval: 2s
useGroupSha: false
operationTimeout: 15s
nats:
  url: nats://nats:4222
  memberBucket: members
  lockBucket: locks
  memberTtl: 6s
`

	var cfg Config
	err := yaml.Unmarshal([]byte(yamlConfig), &cfg)
	require.NoError(t, err)

	require.Equal(t, "/kafka", cfg.GroupRoot)
	require.Equal(t, "orders", cfg.GroupID)
	require.Equal(t, "orders-consumer", cfg.ClientID)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	require.Equal(t, time.Minute, cfg.Cooldown)
	require.Equal(t, 2*time.Second, cfg.TickInterval)
	require.False(t, cfg.UseGroupSHA)
	require.Equal(t, 15*time.Second, cfg.OperationTimeout)
	require.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	require.Equal(t, "members", cfg.NATS.MemberBucket)
	require.Equal(t, "locks", cfg.NATS.LockBucket)
	require.Equal(t, 6*time.Second, cfg.NATS.MemberTTL)
}

func TestParseConfig(t *testing.T) {
	t.Run("partial document keeps defaults", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
groupId: orders
cooldown: 5s
`))
		require.NoError(t, err)

		require.Equal(t, "orders", cfg.GroupID)
		require.Equal(t, 5*time.Second, cfg.Cooldown)
		require.Equal(t, DefaultGroupRoot, cfg.GroupRoot)
		require.True(t, cfg.UseGroupSHA)
		require.Equal(t, natsgroup.DefaultMemberTTL, cfg.NATS.MemberTTL)
	})

	t.Run("digest can be disabled", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("groupId: orders\nuseGroupSha: false\n"))
		require.NoError(t, err)

		require.False(t, cfg.UseGroupSHA)
	})

	t.Run("invalid document", func(t *testing.T) {
		_, err := ParseConfig([]byte("groupId: [unclosed"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := ParseConfig([]byte("groupId: orders\ncooldown: soon\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing group id", func(t *testing.T) {
		_, err := ParseConfig([]byte("cooldown: 5s\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Contains(t, err.Error(), "GroupID")
	})
}
