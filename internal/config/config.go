package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// PathEnv names the environment variable holding the optional YAML config file.
const PathEnv = "RELAY_CONFIG"

const (
	SnapshotSourceREST   = "rest"
	SnapshotSourceSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Publisher PublisherConfig `yaml:"publisher"`
	Websocket WebsocketConfig `yaml:"websocket"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" yaml:"port"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Directory string `envconfig:"LOG_DIR" yaml:"directory"`
	Level     string `envconfig:"LOG_LEVEL" yaml:"level"`
	Format    string `envconfig:"LOG_FORMAT" yaml:"format"`
}

// KafkaConfig binds Kafka topics to the hub their events belong to. An empty
// broker list disables consumption.
type KafkaConfig struct {
	Brokers []string          `envconfig:"KAFKA_BROKERS" yaml:"brokers"`
	GroupID string            `envconfig:"KAFKA_GROUP_ID" yaml:"group_id"`
	Topics  map[string]string `envconfig:"KAFKA_TOPICS" yaml:"topics"`
}

type SnapshotConfig struct {
	Source     string        `envconfig:"SNAPSHOT_SOURCE" yaml:"source"`
	BaseURL    string        `envconfig:"MMS_API_BASE_URL" yaml:"base_url"`
	Token      string        `envconfig:"MMS_API_TOKEN" yaml:"token"`
	SQLitePath string        `envconfig:"SNAPSHOT_SQLITE_PATH" yaml:"sqlite_path"`
	Timeout    time.Duration `envconfig:"SNAPSHOT_TIMEOUT" yaml:"timeout"`
	MaxAge     time.Duration `envconfig:"SNAPSHOT_MAX_AGE" yaml:"max_age"`
}

type PublisherConfig struct {
	Enabled      bool          `envconfig:"PUBLISHER_ENABLED" yaml:"enabled"`
	Interval     time.Duration `envconfig:"PUBLISHER_INTERVAL" yaml:"interval"`
	RetryBackoff time.Duration `envconfig:"PUBLISHER_RETRY_BACKOFF" yaml:"retry_backoff"`
	FetchTimeout time.Duration `envconfig:"PUBLISHER_FETCH_TIMEOUT" yaml:"fetch_timeout"`
}

type WebsocketConfig struct {
	SendBuffer      int     `envconfig:"WS_SEND_BUFFER" yaml:"send_buffer"`
	InvocationRate  float64 `envconfig:"WS_INVOCATION_RATE" yaml:"invocation_rate"`
	InvocationBurst int     `envconfig:"WS_INVOCATION_BURST" yaml:"invocation_burst"`
}

// SecurityConfig enables JWT checks on hub attach and ingestion when a secret
// or public key is set. IngestRole, when set, is required on ingestion tokens.
type SecurityConfig struct {
	JWTSecret    string `envconfig:"JWT_SECRET" yaml:"jwt_secret"`
	JWTPublicKey string `envconfig:"JWT_PUBLIC_KEY" yaml:"jwt_public_key"`
	IngestRole   string `envconfig:"INGEST_ROLE" yaml:"ingest_role"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", ShutdownTimeout: 10 * time.Second},
		Logging: LoggingConfig{
			Directory: "./logs",
			Level:     "info",
			Format:    "text",
		},
		Kafka: KafkaConfig{
			GroupID: "machine-relay",
			Topics: map[string]string{
				"mms.machines":      domain.HubMachine,
				"mms.logs":          domain.HubLog,
				"mms.commands":      domain.HubCommand,
				"mms.notifications": domain.HubNotification,
			},
		},
		Snapshot: SnapshotConfig{
			Source:     SnapshotSourceREST,
			BaseURL:    "http://localhost:5000",
			SQLitePath: "./data/relay.db",
			Timeout:    10 * time.Second,
			MaxAge:     5 * time.Second,
		},
		Publisher: PublisherConfig{
			Enabled:      true,
			Interval:     30 * time.Second,
			RetryBackoff: 10 * time.Second,
			FetchTimeout: 10 * time.Second,
		},
		Websocket: WebsocketConfig{
			SendBuffer:      64,
			InvocationRate:  20,
			InvocationBurst: 40,
		},
	}
}

// Load reads the file named by RELAY_CONFIG (if any) and the environment.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(PathEnv))
}

// LoadFile applies, in order: defaults, the YAML file at path when path is
// not empty, environment overrides. The result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config and canonicalizes Kafka hub bindings and the
// snapshot source name.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server port is required"))
	}

	bindings := make(map[string]string, len(c.Kafka.Topics))
	for topic, hub := range c.Kafka.Topics {
		topic = strings.TrimSpace(topic)
		canonical := domain.NormalizeHub(hub)
		if topic == "" || canonical == "" {
			errs = append(errs, fmt.Errorf("kafka topic %q is bound to unknown hub %q", topic, hub))
			continue
		}
		bindings[topic] = canonical
	}
	c.Kafka.Topics = bindings
	brokers := c.Kafka.Brokers[:0]
	for _, b := range c.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Kafka.Brokers = brokers

	c.Snapshot.Source = strings.ToLower(strings.TrimSpace(c.Snapshot.Source))
	switch c.Snapshot.Source {
	case SnapshotSourceREST:
		if strings.TrimSpace(c.Snapshot.BaseURL) == "" {
			errs = append(errs, errors.New("snapshot base url is required for the rest source"))
		}
	case SnapshotSourceSQLite:
		if strings.TrimSpace(c.Snapshot.SQLitePath) == "" {
			errs = append(errs, errors.New("snapshot sqlite path is required for the sqlite source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot source %q", c.Snapshot.Source))
	}
	if c.Snapshot.MaxAge < 0 {
		errs = append(errs, errors.New("snapshot max age must not be negative"))
	}

	p := c.Publisher
	if p.Interval <= 0 || p.RetryBackoff <= 0 || p.FetchTimeout <= 0 {
		errs = append(errs, errors.New("publisher interval, retry backoff and fetch timeout must be positive"))
	} else if p.RetryBackoff >= p.Interval {
		errs = append(errs, fmt.Errorf("publisher retry backoff %s must be shorter than interval %s", p.RetryBackoff, p.Interval))
	}

	if c.Websocket.SendBuffer <= 0 {
		errs = append(errs, errors.New("websocket send buffer must be positive"))
	}
	if c.Websocket.InvocationRate < 0 || c.Websocket.InvocationBurst < 0 {
		errs = append(errs, errors.New("websocket invocation rate and burst must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// KafkaTopics lists the configured Kafka topics in sorted order.
func (c *Config) KafkaTopics() []string {
	topics := make([]string, 0, len(c.Kafka.Topics))
	for topic := range c.Kafka.Topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
