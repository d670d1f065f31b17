package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
hcu:
  host: "hcu.local"
  auth_token: "test-token"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HCU.WebsocketPort != 9001 {
		t.Errorf("HCU.WebsocketPort = %d, want 9001", cfg.HCU.WebsocketPort)
	}
	if cfg.HCU.PluginID != "de.hmiplocal.hculink" {
		t.Errorf("HCU.PluginID = %q, want %q", cfg.HCU.PluginID, "de.hmiplocal.hculink")
	}
	if !cfg.HCU.TLSInsecureSkipVerify {
		t.Error("HCU.TLSInsecureSkipVerify = false, want true")
	}
	if cfg.HCU.Reconnect.InitialDelay != 5 {
		t.Errorf("HCU.Reconnect.InitialDelay = %d, want 5", cfg.HCU.Reconnect.InitialDelay)
	}
	if cfg.HCU.Reconnect.MaxDelay != 60 {
		t.Errorf("HCU.Reconnect.MaxDelay = %d, want 60", cfg.HCU.Reconnect.MaxDelay)
	}
	if cfg.API.Port != 8420 {
		t.Errorf("API.Port = %d, want 8420", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Database.RetentionDays != 90 {
		t.Errorf("Database.RetentionDays = %d, want 90", cfg.Database.RetentionDays)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
hcu:
  host: "192.168.1.50"
  websocket_port: 9002
  auth_token: "fixture-token"
  request_timeout: 5
  reconnect:
    initial_delay: 2
    max_delay: 30
mqtt:
  enabled: true
  broker:
    host: "broker.lan"
    port: 8883
    tls: true
  qos: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HCU.Host != "192.168.1.50" {
		t.Errorf("HCU.Host = %q, want %q", cfg.HCU.Host, "192.168.1.50")
	}
	if cfg.HCU.WebsocketPort != 9002 {
		t.Errorf("HCU.WebsocketPort = %d, want 9002", cfg.HCU.WebsocketPort)
	}
	if got := cfg.HCU.GetRequestTimeout(); got != 5*time.Second {
		t.Errorf("GetRequestTimeout() = %v, want 5s", got)
	}
	if cfg.HCU.Reconnect.InitialDelay != 2 {
		t.Errorf("HCU.Reconnect.InitialDelay = %d, want 2", cfg.HCU.Reconnect.InitialDelay)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.MQTT.QoS != 2 {
		t.Errorf("MQTT.QoS = %d, want 2", cfg.MQTT.QoS)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
hcu:
  host: "hcu.local"
  auth_token: "file-token"
`)

	t.Setenv("HCULINK_HCU_HOST", "10.0.0.9")
	t.Setenv("HCULINK_HCU_TOKEN", "env-token")
	t.Setenv("HCULINK_MQTT_HOST", "env-broker")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HCU.Host != "10.0.0.9" {
		t.Errorf("HCU.Host = %q, want %q", cfg.HCU.Host, "10.0.0.9")
	}
	if cfg.HCU.AuthToken != "env-token" {
		t.Errorf("HCU.AuthToken = %q, want %q", cfg.HCU.AuthToken, "env-token")
	}
	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "env-broker")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "hcu: [not a mapping")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "hcu.host is required") {
		t.Errorf("error = %v, want mention of hcu.host", err)
	}
	if !strings.Contains(err.Error(), "hcu.auth_token is required") {
		t.Errorf("error = %v, want mention of hcu.auth_token", err)
	}
}

func TestValidate_ReconnectSanity(t *testing.T) {
	path := writeConfig(t, `
hcu:
  host: "hcu.local"
  auth_token: "token"
  reconnect:
    initial_delay: 30
    max_delay: 10
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "max_delay") {
		t.Errorf("error = %v, want mention of max_delay", err)
	}
}

func TestValidate_NegativeRetention(t *testing.T) {
	path := writeConfig(t, `
hcu:
  host: "hcu.local"
  auth_token: "token"
database:
  retention_days: -1
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "retention_days") {
		t.Errorf("error = %v, want mention of retention_days", err)
	}
}

func TestEndpoint(t *testing.T) {
	cfg := HCUConfig{Host: "hcu.local", WebsocketPort: 9001}
	if got := cfg.Endpoint(); got != "wss://hcu.local:9001" {
		t.Errorf("Endpoint() = %q, want %q", got, "wss://hcu.local:9001")
	}
}
