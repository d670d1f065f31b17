package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hculink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	HCU      HCUConfig      `yaml:"hcu"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HCUConfig contains connection settings for the Home Control Unit.
type HCUConfig struct {
	// Host is the hostname or IP address of the HCU on the local network.
	Host string `yaml:"host"`

	// WebsocketPort is the plugin WebSocket API port. Default: 9001.
	WebsocketPort int `yaml:"websocket_port"`

	// AuthToken is the opaque plugin token obtained during pairing.
	// Always override via HCULINK_HCU_TOKEN in production.
	AuthToken string `yaml:"auth_token"`

	// PluginID identifies this client to the HCU.
	PluginID string `yaml:"plugin_id"`

	// TLSInsecureSkipVerify disables certificate verification.
	// The HCU ships a self-signed certificate, so this defaults to true.
	TLSInsecureSkipVerify bool `yaml:"tls_insecure_skip_verify"`

	// ConnectTimeout is the maximum time to wait for dial + handshake (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// RequestTimeout is the per-request correlation timeout (seconds).
	RequestTimeout int `yaml:"request_timeout"`

	// IdleTimeout is how long the session may go without any inbound frame
	// (including pong replies) before the link is considered dead (seconds).
	IdleTimeout int `yaml:"idle_timeout"`

	// PingInterval is the keepalive ping interval (seconds).
	PingInterval int `yaml:"ping_interval"`

	// Reconnect controls the supervisor's retry behaviour.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains reconnection backoff settings.
type ReconnectConfig struct {
	// InitialDelay is the first retry delay (seconds).
	InitialDelay int `yaml:"initial_delay"`

	// MaxDelay caps the exponential backoff (seconds).
	MaxDelay int `yaml:"max_delay"`

	// JitterMax is the upper bound of the random jitter added to each delay (seconds).
	JitterMax int `yaml:"jitter_max"`

	// MaxAttempts limits consecutive failed cycles. 0 means retry forever.
	MaxAttempts int `yaml:"max_attempts"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays is how long button occurrences are kept before being
	// pruned. Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Broker    MQTTBrokerConfig `yaml:"broker"`
	Auth      MQTTAuthConfig   `yaml:"auth"`
	QoS       int              `yaml:"qos"`
	Reconnect ReconnectConfig  `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HCULINK_SECTION_KEY
// For example: HCULINK_HCU_HOST, HCULINK_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		HCU: HCUConfig{
			WebsocketPort:         9001,
			PluginID:              "de.hmiplocal.hculink",
			TLSInsecureSkipVerify: true,
			ConnectTimeout:        10,
			RequestTimeout:        10,
			IdleTimeout:           30,
			PingInterval:          25,
			Reconnect: ReconnectConfig{
				InitialDelay: 5,
				MaxDelay:     60,
				JitterMax:    5,
				MaxAttempts:  0,
			},
		},
		Database: DatabaseConfig{
			Path:          "./data/hculink.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hculink",
			},
			QoS: 1,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8420,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HCULINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// HCU
	if v := os.Getenv("HCULINK_HCU_HOST"); v != "" {
		cfg.HCU.Host = v
	}
	if v := os.Getenv("HCULINK_HCU_TOKEN"); v != "" {
		cfg.HCU.AuthToken = v
	}

	// Database
	if v := os.Getenv("HCULINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HCULINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HCULINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HCULINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HCULINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// HCU validation: host and token are required, everything else has defaults
	if c.HCU.Host == "" {
		errs = append(errs, "hcu.host is required")
	}
	if c.HCU.AuthToken == "" {
		errs = append(errs, "hcu.auth_token is required (set HCULINK_HCU_TOKEN environment variable)")
	}
	if c.HCU.WebsocketPort < 1 || c.HCU.WebsocketPort > 65535 {
		errs = append(errs, "hcu.websocket_port must be between 1 and 65535")
	}
	if c.HCU.Reconnect.InitialDelay < 1 {
		errs = append(errs, "hcu.reconnect.initial_delay must be at least 1 second")
	}
	if c.HCU.Reconnect.MaxDelay < c.HCU.Reconnect.InitialDelay {
		errs = append(errs, "hcu.reconnect.max_delay must be >= initial_delay")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Endpoint returns the HCU WebSocket URL.
func (c HCUConfig) Endpoint() string {
	return fmt.Sprintf("wss://%s:%d", c.Host, c.WebsocketPort)
}

// GetConnectTimeout returns the HCU connect timeout as a Duration.
func (c HCUConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetRequestTimeout returns the per-request timeout as a Duration.
func (c HCUConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetIdleTimeout returns the session idle timeout as a Duration.
func (c HCUConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

// GetPingInterval returns the keepalive ping interval as a Duration.
func (c HCUConfig) GetPingInterval() time.Duration {
	return time.Duration(c.PingInterval) * time.Second
}

// GetInitialDelay returns the first reconnect delay as a Duration.
func (c ReconnectConfig) GetInitialDelay() time.Duration {
	return time.Duration(c.InitialDelay) * time.Second
}

// GetMaxDelay returns the backoff cap as a Duration.
func (c ReconnectConfig) GetMaxDelay() time.Duration {
	return time.Duration(c.MaxDelay) * time.Second
}

// GetJitterMax returns the jitter upper bound as a Duration.
func (c ReconnectConfig) GetJitterMax() time.Duration {
	return time.Duration(c.JitterMax) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
