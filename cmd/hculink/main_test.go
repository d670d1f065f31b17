package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("HCULINK_CONFIG")
	defer os.Setenv("HCULINK_CONFIG", originalEnv)

	os.Setenv("HCULINK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingHCUHost verifies run fails when the hub host is not configured.
func TestRun_MissingHCUHost(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
hcu:
  host: ""
  auth_token: "test-token"

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("HCULINK_CONFIG")
	defer os.Setenv("HCULINK_CONFIG", originalEnv)
	os.Setenv("HCULINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty hcu.host")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HCULINK_CONFIG")
	defer os.Setenv("HCULINK_CONFIG", originalEnv)

	os.Unsetenv("HCULINK_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("HCULINK_CONFIG")
	defer os.Setenv("HCULINK_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("HCULINK_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_ShutdownBeforeConnect verifies a cancelled context unwinds
// startup cleanly. The hub address points at an unroutable host, so the
// supervisor keeps retrying until the context expires.
func TestRun_ShutdownBeforeConnect(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
hcu:
  host: "127.0.0.1"
  websocket_port: 19999
  auth_token: "test-token"
  connect_timeout: 1
  reconnect:
    initial_delay: 1
    max_delay: 2

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5
  retention_days: 0

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("HCULINK_CONFIG")
	defer os.Setenv("HCULINK_CONFIG", originalEnv)
	os.Setenv("HCULINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() after cancellation = %v, want nil", err)
	}
}
