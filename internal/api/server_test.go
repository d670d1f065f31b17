package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hmiplocal/hculink/internal/events"
	"github.com/hmiplocal/hculink/internal/history"
	"github.com/hmiplocal/hculink/internal/infrastructure/config"
	"github.com/hmiplocal/hculink/internal/infrastructure/logging"
	"github.com/hmiplocal/hculink/internal/mirror"
	"github.com/hmiplocal/hculink/internal/supervisor"
)

// testServer creates a Server with a populated mirror and an occurrence
// history backed by in-memory SQLite.
func testServer(t *testing.T) (*Server, *mirror.Mirror) {
	t.Helper()

	m := mirror.New()
	m.LoadSnapshot(
		map[string]map[string]interface{}{
			"dev-1": {
				"id":    "dev-1",
				"label": "Hall Switch",
				"type":  "PLUGABLE_SWITCH_MEASURING",
			},
		},
		map[string]map[string]interface{}{
			"grp-1": {
				"id":    "grp-1",
				"label": "Living Room",
				"type":  "HEATING",
			},
		},
		map[string]interface{}{
			"id":            "home-1",
			"connected":     true,
			"currentAPHost": "192.168.1.20",
		},
	)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	sup := supervisor.New(supervisor.Config{}, func() (supervisor.Link, error) {
		return nil, errors.New("not dialled in tests")
	}, m, log)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:     log,
		Mirror:     m,
		History:    history.NewRepository(setupTestDB(t)),
		Supervisor: sup,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, m
}

// setupTestDB creates an in-memory SQLite database with the occurrences schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE occurrences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			channel_index INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			occurred_at TEXT NOT NULL
		);
		CREATE INDEX idx_occurrences_device ON occurrences (device_id, channel_index, occurred_at);
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["link"] != string(supervisor.StateDisconnected) {
		t.Errorf("link = %v, want %s", resp["link"], supervisor.StateDisconnected)
	}
	if resp["loaded"] != true {
		t.Errorf("loaded = %v, want true", resp["loaded"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health")
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── State Endpoint Tests ──────────────────────────────────────────

func TestListDevices(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if len(resp) != 1 {
		t.Fatalf("devices = %d, want 1", len(resp))
	}
	dev, ok := resp["dev-1"].(map[string]any)
	if !ok {
		t.Fatalf("dev-1 missing from response: %v", resp)
	}
	if dev["label"] != "Hall Switch" {
		t.Errorf("label = %v, want Hall Switch", dev["label"])
	}
}

func TestGetDevice(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/dev-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["type"] != "PLUGABLE_SWITCH_MEASURING" {
		t.Errorf("type = %v, want PLUGABLE_SWITCH_MEASURING", resp["type"])
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetGroup(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/groups/grp-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["label"] != "Living Room" {
		t.Errorf("label = %v, want Living Room", resp["label"])
	}
}

func TestGetGroup_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/groups/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetHome(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/home")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	home, ok := resp["home"].(map[string]interface{})
	if !ok {
		t.Fatalf("home missing from response: %v", resp)
	}
	if home["currentAPHost"] != "192.168.1.20" {
		t.Errorf("currentAPHost = %v, want 192.168.1.20", home["currentAPHost"])
	}
	if _, ok := resp["primary_access_point"]; ok {
		t.Error("primary_access_point reported without any access-point device")
	}
}

func TestGetHome_PrimaryAccessPoint(t *testing.T) {
	srv, m := testServer(t)

	m.ApplyDevice(map[string]interface{}{
		"id":        "hub-1",
		"type":      "HOME_CONTROL_ACCESS_POINT",
		"modelType": "HmIP-HCU1",
	})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/home")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["primary_access_point"] != "hub-1" {
		t.Errorf("primary_access_point = %v, want hub-1", resp["primary_access_point"])
	}
}

// ─── Occurrence Endpoint Tests ─────────────────────────────────────

func TestDeviceOccurrences(t *testing.T) {
	srv, _ := testServer(t)

	for i := 0; i < 3; i++ {
		occ := events.Occurrence{
			DeviceID:     "dev-1",
			ChannelIndex: i % 2,
			Type:         events.TypePress,
			ChannelType:  "SINGLE_KEY_CHANNEL",
		}
		if err := srv.history.Record(context.Background(), occ); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/dev-1/occurrences")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	entries, ok := resp["occurrences"].([]any)
	if !ok {
		t.Fatalf("occurrences is not a list: %T", resp["occurrences"])
	}
	if len(entries) != 3 {
		t.Errorf("occurrences = %d, want 3", len(entries))
	}

	// Filter to one channel
	w = doRequest(t, srv, http.MethodGet, "/api/v1/devices/dev-1/occurrences?channel=1")
	resp = decodeBody(t, w)
	entries, _ = resp["occurrences"].([]any)
	if len(entries) != 1 {
		t.Errorf("channel 1 occurrences = %d, want 1", len(entries))
	}
}

func TestDeviceOccurrences_InvalidQuery(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"non-numeric channel", "/api/v1/devices/dev-1/occurrences?channel=abc"},
		{"negative channel", "/api/v1/devices/dev-1/occurrences?channel=-1"},
		{"non-numeric limit", "/api/v1/devices/dev-1/occurrences?limit=abc"},
		{"zero limit", "/api/v1/devices/dev-1/occurrences?limit=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodGet, tt.path)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestDeviceOccurrences_HistoryDisabled(t *testing.T) {
	srv, _ := testServer(t)
	srv.history = nil

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/dev-1/occurrences")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Metrics Endpoint Tests ────────────────────────────────────────

func TestMetrics(t *testing.T) {
	srv, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["link_state"] != string(supervisor.StateDisconnected) {
		t.Errorf("link_state = %v, want %s", resp["link_state"], supervisor.StateDisconnected)
	}
	if int(resp["devices"].(float64)) != 1 {
		t.Errorf("devices = %v, want 1", resp["devices"])
	}
	if int(resp["groups"].(float64)) != 1 {
		t.Errorf("groups = %v, want 1", resp["groups"])
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.Port = 19090

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Wait for the listener to come up
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:19090/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	_, err = http.Get("http://127.0.0.1:19090/api/v1/health")
	if err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestNew_Validation(t *testing.T) {
	m := mirror.New()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	sup := supervisor.New(supervisor.Config{}, func() (supervisor.Link, error) {
		return nil, errors.New("not dialled in tests")
	}, m, log)

	tests := []struct {
		name string
		deps Deps
	}{
		{"missing logger", Deps{Mirror: m, Supervisor: sup}},
		{"missing mirror", Deps{Logger: log, Supervisor: sup}},
		{"missing supervisor", Deps{Logger: log, Mirror: m}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("expected error for missing dependency")
			}
		})
	}
}
