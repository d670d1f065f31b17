// hculink - local Homematic IP HCU client
//
// hculink connects to the plugin WebSocket API of a Homematic IP Home
// Control Unit on the local network, mirrors the hub's system state,
// detects button presses from push events, and fans everything out to
// MQTT, InfluxDB, and a read-only HTTP API. No cloud account is
// involved at any point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hmiplocal/hculink/migrations"

	"github.com/hmiplocal/hculink/internal/api"
	"github.com/hmiplocal/hculink/internal/bridge"
	"github.com/hmiplocal/hculink/internal/events"
	"github.com/hmiplocal/hculink/internal/history"
	"github.com/hmiplocal/hculink/internal/hmip"
	"github.com/hmiplocal/hculink/internal/infrastructure/config"
	"github.com/hmiplocal/hculink/internal/infrastructure/database"
	"github.com/hmiplocal/hculink/internal/infrastructure/influxdb"
	"github.com/hmiplocal/hculink/internal/infrastructure/logging"
	"github.com/hmiplocal/hculink/internal/infrastructure/mqtt"
	"github.com/hmiplocal/hculink/internal/mirror"
	"github.com/hmiplocal/hculink/internal/supervisor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often old occurrences are removed from the database.
const pruneInterval = 6 * time.Hour

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting hculink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Occurrence history
	repo := history.NewRepository(db.DB)
	if cfg.Database.RetentionDays > 0 {
		go pruneLoop(ctx, repo, cfg.Database.RetentionDays, log)
	}

	// Connect to MQTT broker (optional)
	var publisher bridge.Publisher = noopPublisher{}
	var commandSub bridge.Subscriber
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		publisher = mqttClient
		commandSub = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var metrics bridge.MetricsWriter
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		metrics = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// State mirror, press classifier, and the fan-out bridge between them
	m := mirror.New()
	classifier, err := events.NewClassifier(events.DefaultTables(), m, log)
	if err != nil {
		return fmt.Errorf("building classifier: %w", err)
	}
	brd := bridge.New(bridge.Config{QoS: byte(cfg.MQTT.QoS)}, classifier, m, publisher, metrics, repo, log)

	// Supervisor keeps the hub session alive and feeds the bridge
	sup := supervisor.New(supervisor.Config{
		InitialDelay: time.Duration(cfg.HCU.Reconnect.InitialDelay) * time.Second,
		MaxDelay:     time.Duration(cfg.HCU.Reconnect.MaxDelay) * time.Second,
		JitterMax:    time.Duration(cfg.HCU.Reconnect.JitterMax) * time.Second,
		MaxAttempts:  cfg.HCU.Reconnect.MaxAttempts,
	}, hubFactory(cfg.HCU, log), m, log)
	sup.SetOnEvents(brd.OnEvents)
	sup.SetOnSnapshot(brd.OnSnapshot)
	sup.SetOnLink(brd.OnLink)

	// Inbound command path: MQTT command topics drive the live hub
	// session. The source resolves per command so reconnects are
	// transparent.
	brd.SetCommander(func() bridge.Commander {
		if c, ok := sup.Client().(bridge.Commander); ok {
			return c
		}
		return nil
	})
	if commandSub != nil {
		if err := brd.SubscribeCommands(commandSub); err != nil {
			return fmt.Errorf("subscribing command topics: %w", err)
		}
	}

	supErr := make(chan error, 1)
	go func() {
		supErr <- sup.Run(ctx)
	}()
	log.Info("hub supervisor started", "endpoint", cfg.HCU.Endpoint())

	// HTTP API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log,
			Mirror:     m,
			History:    repo,
			Supervisor: sup,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown or a terminal supervisor failure
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
		<-supErr
	case err := <-supErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("hub supervisor: %w", err)
		}
	}

	log.Info("hculink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HCULINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HCULINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// hubFactory returns a supervisor factory that builds a fresh hub client
// for each connection attempt. Sessions are single-use, so the supervisor
// needs a new client every time the link drops.
func hubFactory(cfg config.HCUConfig, log *logging.Logger) supervisor.Factory {
	return func() (supervisor.Link, error) {
		client, err := hmip.New(hmip.Config{
			Endpoint:              cfg.Endpoint(),
			AuthToken:             cfg.AuthToken,
			PluginID:              cfg.PluginID,
			TLSInsecureSkipVerify: cfg.TLSInsecureSkipVerify,
			ConnectTimeout:        time.Duration(cfg.ConnectTimeout) * time.Second,
			RequestTimeout:        time.Duration(cfg.RequestTimeout) * time.Second,
			IdleTimeout:           time.Duration(cfg.IdleTimeout) * time.Second,
			PingInterval:          time.Duration(cfg.PingInterval) * time.Second,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// pruneLoop removes occurrences older than the retention window at a
// fixed interval until the context is cancelled.
func pruneLoop(ctx context.Context, repo *history.Repository, retentionDays int, log *logging.Logger) {
	retention := time.Duration(retentionDays) * 24 * time.Hour

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.Prune(ctx, retention)
			if err != nil {
				log.Error("pruning occurrence history", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("pruned occurrence history", "removed", removed, "retention_days", retentionDays)
			}
		}
	}
}

// noopPublisher satisfies bridge.Publisher when MQTT is disabled.
type noopPublisher struct{}

func (noopPublisher) Publish(_ string, _ []byte, _ byte, _ bool) error { return nil }
