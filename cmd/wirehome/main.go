// Wirehome Core - home automation hub runtime.
//
// This is the main entry point for the Wirehome Core application. The
// hub hosts the in-process message bus, the component and component
// group registries with their JSON-tree persistence, the diagnostics
// counters, and the HTTP API the clients poll.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noriffik/wirehome-core/internal/api"
	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/component"
	"github.com/noriffik/wirehome-core/internal/componentgroup"
	"github.com/noriffik/wirehome-core/internal/diagnostics"
	"github.com/noriffik/wirehome-core/internal/globalvar"
	"github.com/noriffik/wirehome-core/internal/history"
	"github.com/noriffik/wirehome-core/internal/infrastructure/config"
	"github.com/noriffik/wirehome-core/internal/infrastructure/database"
	"github.com/noriffik/wirehome-core/internal/infrastructure/influxdb"
	"github.com/noriffik/wirehome-core/internal/infrastructure/logging"
	"github.com/noriffik/wirehome-core/internal/infrastructure/mqtt"
	"github.com/noriffik/wirehome-core/internal/infrastructure/storage"
	"github.com/noriffik/wirehome-core/internal/notification"
	"github.com/noriffik/wirehome-core/internal/system"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// defaultConfigPath is used when WIREHOME_CONFIG is not set and no
// argument is given.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// The process-wide shutdown signal: every background loop observes
	// this context cooperatively.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Wirehome Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Document tree storage for the registries.
	store := storage.New(cfg.Hub.DataDir)
	log.Info("storage initialised", "data_dir", store.Root())

	// Diagnostics counters and the system status surface.
	diag := diagnostics.NewService()
	diag.SetLogger(log)
	go diag.Run(ctx)

	status := system.NewStatusService()
	status.SetValue("wirehome.id", cfg.Hub.ID)
	status.SetValue("wirehome.version", version)
	startTime := time.Now()
	status.SetProvider("wirehome.uptime_seconds", func() any {
		return int64(time.Since(startTime).Seconds())
	})
	status.SetProvider("diagnostics.rates", func() any {
		return diag.Rates()
	})

	// Message bus.
	messageBus := bus.New(bus.Options{
		HistorySize:   cfg.MessageBus.HistorySize,
		QueueCapacity: cfg.MessageBus.QueueCapacity,
	})
	messageBus.SetLogger(log.With("component", "message_bus"))
	messageBus.SetCounters(
		diag.CreateCounter("message_bus.messages_published"),
		diag.CreateCounter("message_bus.messages_dropped"),
	)
	go messageBus.Run(ctx)
	status.SetProvider("message_bus.subscriptions", func() any {
		return messageBus.SubscriptionCount()
	})

	// Registries over storage + bus, reloaded from disk.
	components := component.NewRegistry(store, messageBus)
	components.SetLogger(log)
	components.SetEventCounter(diag.CreateCounter("component_registry.events"))
	if err := components.InitializeAll(); err != nil {
		return fmt.Errorf("loading component registry: %w", err)
	}

	groups := componentgroup.NewRegistry(store, messageBus)
	groups.SetLogger(log)
	groups.SetEventCounter(diag.CreateCounter("component_group_registry.events"))
	if err := groups.InitializeAll(); err != nil {
		return fmt.Errorf("loading component group registry: %w", err)
	}

	globalVars := globalvar.NewService(store, messageBus)
	if err := globalVars.Initialize(); err != nil {
		return fmt.Errorf("loading global variables: %w", err)
	}

	// SQLite for the notification store.
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
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	notifications := notification.NewStore(db.DB, messageBus, notification.Options{
		DefaultTTL:    time.Duration(cfg.Notifications.DefaultTTL) * time.Second,
		SweepInterval: time.Duration(cfg.Notifications.SweepInterval) * time.Second,
	})
	notifications.SetLogger(log)
	go notifications.Run(ctx)

	// Optional external collaborators: MQTT bridge and InfluxDB telemetry.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Bus ↔ external wiring.
	recorderOpts := history.Options{
		QoS:    byte(cfg.MQTT.QoS),
		Logger: log.With("component", "history"),
	}
	if influxClient != nil {
		recorderOpts.StatusWriter = influxClient
	}
	if mqttClient != nil {
		recorderOpts.EventPublisher = mqttClient
	}
	recorder := history.New(messageBus, recorderOpts)
	if err := recorder.Start(); err != nil {
		return fmt.Errorf("starting history recorder: %w", err)
	}
	defer recorder.Stop()

	// HTTP facade.
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Bus:           messageBus,
		Components:    components,
		Groups:        groups,
		GlobalVars:    globalVars,
		Notifications: notifications,
		Status:        status,
		WaitTimeout:   cfg.GetDefaultWaitTimeout(),
		RequestCount:  diag.CreateCounter("api.requests"),
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("Wirehome Core running",
		"components", components.Count(),
		"groups", groups.Count(),
	)

	// Block until the shutdown signal fires.
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath resolves the configuration file path from the command
// line, the environment, or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if path := os.Getenv("WIREHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
