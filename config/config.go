package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration of the showroom assist service. Values are
// resolved in three layers: built-in defaults, an optional config file, and
// SHOWROOM_* environment variables (dots in keys become underscores, so
// service.port is overridden by SHOWROOM_SERVICE_PORT).
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Collab    CollabConfig    `mapstructure:"collaboration"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServiceConfig describes the listening socket and connection tuning.
type ServiceConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	MailboxSize     int           `mapstructure:"mailbox_size"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr renders the host:port pair the HTTP server binds to.
func (s ServiceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// QueueConfig tunes the waiting line housekeeping.
type QueueConfig struct {
	// GracePeriod is how long a disconnected shopper keeps their spot
	// before the janitor evicts them.
	GracePeriod time.Duration `mapstructure:"grace_period"`
	// SweepInterval is how often the janitor runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// CollabConfig tunes collaboration session housekeeping.
type CollabConfig struct {
	// PendingTTL is how long an unanswered collaboration request stays
	// pending before it is discarded.
	PendingTTL time.Duration `mapstructure:"pending_ttl"`
}

// InventoryConfig points at the vehicle catalog.
type InventoryConfig struct {
	// CatalogPath is an optional JSON file overriding the embedded
	// catalog. Empty keeps the built-in listing.
	CatalogPath string `mapstructure:"catalog_path"`
	// Watch reloads the catalog when the file changes on disk.
	Watch bool `mapstructure:"watch"`
}

// ChatConfig configures the LLM-backed shopper chat endpoint.
type ChatConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	HistorySize  int           `mapstructure:"history_size"`
	HistoryDepth int           `mapstructure:"history_depth"`
}

// Enabled reports whether the chat endpoint can serve requests.
func (c ChatConfig) Enabled() bool {
	return c.APIKey != ""
}

// BrokerConfig configures the optional AMQP mirror of queue events. The
// in-process bus always runs; the broker only adds an external export.
type BrokerConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// Enabled reports whether queue events should be mirrored to AMQP.
func (b BrokerConfig) Enabled() bool {
	return b.AMQPURL != ""
}

// TelemetryConfig configures OTLP trace and log export.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// Protocol selects the trace exporter transport, grpc or http.
	Protocol    string `mapstructure:"protocol"`
	Insecure    bool   `mapstructure:"insecure"`
	LogsEnabled bool   `mapstructure:"logs_enabled"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig builds the configuration from defaults, the optional file at
// path, and the environment. An empty path skips the file layer entirely.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// [ENV_OVERRIDE] SHOWROOM_SERVICE_PORT=8080 beats any file value.
	v.SetEnvPrefix("SHOWROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The chat key is commonly provisioned under provider-native names.
	_ = v.BindEnv("chat.api_key", "SHOWROOM_CHAT_API_KEY", "LLM_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("broker.amqp_url", "SHOWROOM_BROKER_AMQP_URL", "AMQP_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port %d out of range", c.Service.Port)
	}

	if c.Service.MailboxSize < 1 {
		return fmt.Errorf("service.mailbox_size must be positive, got %d", c.Service.MailboxSize)
	}

	if c.Queue.GracePeriod < 0 {
		return fmt.Errorf("queue.grace_period must not be negative, got %s", c.Queue.GracePeriod)
	}

	if c.Queue.SweepInterval <= 0 {
		return fmt.Errorf("queue.sweep_interval must be positive, got %s", c.Queue.SweepInterval)
	}

	if c.Collab.PendingTTL <= 0 {
		return fmt.Errorf("collaboration.pending_ttl must be positive, got %s", c.Collab.PendingTTL)
	}

	if c.Broker.Enabled() && c.Broker.Exchange == "" {
		return fmt.Errorf("broker.exchange must be set when broker.amqp_url is set")
	}

	switch c.Telemetry.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "localhost")
	v.SetDefault("service.port", 3000)
	v.SetDefault("service.mailbox_size", 64)
	v.SetDefault("service.send_timeout", 5*time.Second)
	v.SetDefault("service.shutdown_timeout", 10*time.Second)

	v.SetDefault("queue.grace_period", time.Minute)
	v.SetDefault("queue.sweep_interval", 30*time.Second)

	v.SetDefault("collaboration.pending_ttl", 5*time.Minute)

	v.SetDefault("inventory.catalog_path", "")
	v.SetDefault("inventory.watch", false)

	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.base_url", "https://api.anthropic.com")
	v.SetDefault("chat.model", "claude-3-5-haiku-20241022")
	v.SetDefault("chat.max_tokens", 512)
	v.SetDefault("chat.timeout", 60*time.Second)
	v.SetDefault("chat.history_size", 256)
	v.SetDefault("chat.history_depth", 12)

	v.SetDefault("broker.amqp_url", "")
	v.SetDefault("broker.exchange", "showroom.queue")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.logs_enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
