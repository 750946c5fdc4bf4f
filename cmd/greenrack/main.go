// Greenrack Core - Vertical Farm Warehouse Orchestration
//
// This is the main entry point for the Greenrack Core application.
// Greenrack Core coordinates the station hardware of a multi-floor
// tray warehouse:
//   - Per-station transfer flow (lift, shuttle AGV, tray gripper)
//   - Rate-limited command dispatch over MQTT
//   - Sensor telemetry debouncing and history
//   - Grow lighting bus control
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/greenrack/greenrack-core/migrations"

	"github.com/greenrack/greenrack-core/internal/api"
	"github.com/greenrack/greenrack-core/internal/dispatch"
	"github.com/greenrack/greenrack-core/internal/flow"
	"github.com/greenrack/greenrack-core/internal/infrastructure/config"
	"github.com/greenrack/greenrack-core/internal/infrastructure/database"
	"github.com/greenrack/greenrack-core/internal/infrastructure/influxdb"
	"github.com/greenrack/greenrack-core/internal/infrastructure/logging"
	"github.com/greenrack/greenrack-core/internal/infrastructure/mqtt"
	"github.com/greenrack/greenrack-core/internal/lighting"
	"github.com/greenrack/greenrack-core/internal/task"
	"github.com/greenrack/greenrack-core/internal/telemetry"
	"github.com/greenrack/greenrack-core/internal/tray"
	"github.com/greenrack/greenrack-core/internal/water"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Greenrack Core",
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	taskRepo := task.NewSQLiteRepository(db.DB)
	trayRepo := tray.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Command dispatcher: one paced FIFO per device class
	dispatcher := dispatch.New(mqttClient, cfg.DispatchInterval(), log)
	defer func() {
		log.Info("stopping dispatcher")
		dispatcher.Close()
	}()
	log.Info("dispatcher started", "min_interval", cfg.DispatchInterval())

	// WebSocket hub, shared between the API server and the flow
	// supervisor's broadcasts
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Flow supervisor: one machine per station
	stations := make([]flow.StationConfig, 0, len(cfg.Warehouse.Stations))
	for _, st := range cfg.Warehouse.Stations {
		stations = append(stations, flow.StationConfig{ID: st.ID, HomeFloor: st.HomeFloor})
	}
	broadcaster := &flowRecorder{next: hub}
	if influxClient != nil {
		broadcaster.sink = influxClient
	}
	supervisor := flow.NewSupervisor(stations, flow.Deps{
		Tasks:       taskRepo,
		Trays:       trayRepo,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
		Logger:      log,
		SettleDelay: cfg.SettleDelay(),
	})
	defer func() {
		log.Info("stopping flow supervisor")
		supervisor.Close()
	}()
	log.Info("flow supervisor started", "stations", len(stations))

	// Lighting bus controller
	lightController, err := startLighting(cfg, dispatcher, log)
	if err != nil {
		return fmt.Errorf("starting lighting: %w", err)
	}

	// Irrigation point commands
	waterController := water.New(dispatcher, trayRepo)

	// Route device status topics into the supervisor and telemetry
	aggregator, err := subscribeStations(cfg, mqttClient, supervisor, hub, influxClient, log)
	if err != nil {
		return fmt.Errorf("subscribing to station topics: %w", err)
	}
	defer func() {
		log.Info("stopping telemetry aggregator")
		aggregator.Close()
	}()

	// API server
	apiDeps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Warehouse:   cfg.Warehouse,
		Logger:      log,
		Flow:        supervisor,
		Tasks:       taskRepo,
		Trays:       trayRepo,
		Water:       waterController,
		ExternalHub: hub,
		Version:     version,
	}
	if lightController != nil {
		apiDeps.Lighting = lightController
	}
	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Announce the core on the bus
	topics := mqtt.Topics{}
	if err := mqttClient.PublishString(topics.SystemStatus(), `{"status":"online"}`, 1, true); err != nil {
		log.Warn("publishing system status failed", "error", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, aggregator, supervisor, dispatcher, InfluxDB, MQTT,
	// database.

	log.Info("Greenrack Core stopped")
	return nil
}

// flowHistorySink records flow transitions for later analysis.
// Satisfied by *influxdb.Client.
type flowHistorySink interface {
	WriteFlowEvent(stationID int, fromState, toState string)
}

// flowRecorder forwards supervisor broadcasts to the WebSocket hub and
// mirrors flow state changes into the history sink when one is
// configured. Both paths are fire and forget.
type flowRecorder struct {
	next flow.Broadcaster
	sink flowHistorySink
}

func (r *flowRecorder) Broadcast(eventType string, payload interface{}) {
	r.next.Broadcast(eventType, payload)

	if r.sink == nil || eventType != "flow_state_changed" {
		return
	}
	change, ok := payload.(map[string]interface{})
	if !ok {
		return
	}
	stationID, ok := change["station_id"].(int)
	if !ok {
		return
	}
	r.sink.WriteFlowEvent(stationID, fmt.Sprint(change["from"]), fmt.Sprint(change["to"]))
}

// getConfigPath returns the configuration file path.
// Uses GREENRACK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GREENRACK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startLighting loads the wiring calibration and creates the lighting
// bus controller. A missing address table disables lighting rather
// than failing startup; the transfer flow does not depend on it.
func startLighting(cfg *config.Config, dispatcher *dispatch.Dispatcher, log *logging.Logger) (*lighting.Controller, error) {
	table, err := lighting.LoadAddressTable(cfg.Lighting.AddressTable)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("lighting address table missing, lighting disabled",
				"path", cfg.Lighting.AddressTable)
			return nil, nil
		}
		return nil, err
	}

	log.Info("lighting controller started",
		"devices", table.Len(), "topic", cfg.Lighting.Topic)
	return lighting.NewController(table, dispatcher, cfg.Lighting.Topic, cfg.Lighting.Key), nil
}

// subscribeStations wires the station status topics: lift and AGV
// status and tray acknowledgments into the flow supervisor, raw AGV
// sensor frames into the debouncing aggregator, and air quality into
// history.
func subscribeStations(cfg *config.Config, client *mqtt.Client, supervisor *flow.Supervisor, hub *api.Hub, influx *influxdb.Client, log *logging.Logger) (*telemetry.Aggregator, error) {
	topics := mqtt.Topics{}

	aggregator := telemetry.NewAggregator(cfg.DebounceWindow(), func(stationID int, snapshot telemetry.Snapshot) {
		hub.Broadcast("sensor_snapshot", map[string]interface{}{
			"station_id": stationID,
			"fields":     snapshot,
		})
		if influx != nil {
			influx.WriteSensorSnapshot(stationID, snapshot)
		}
	})

	route := func(pattern string, handle func(station int, payload []byte)) error {
		return client.Subscribe(pattern, 1, func(topic string, payload []byte) error {
			st, ok := mqtt.ParseStationTopic(topic)
			if !ok {
				log.Warn("unroutable station topic", "topic", topic)
				return nil
			}
			handle(st.Station, payload)
			return nil
		})
	}

	if err := route(topics.AllLiftStatuses(), func(station int, payload []byte) {
		supervisor.HandleLiftStatus(station, payload)
	}); err != nil {
		return nil, err
	}
	if err := route(topics.AllAGVStatuses(), func(station int, payload []byte) {
		supervisor.HandleAGVStatus(station, payload)
	}); err != nil {
		return nil, err
	}
	if err := route(topics.AllTrayActionDone(), func(station int, _ []byte) {
		supervisor.HandleTrayActionDone(station)
	}); err != nil {
		return nil, err
	}

	if err := route(topics.AllAGVSensors(), func(station int, payload []byte) {
		if ingestErr := aggregator.Ingest(station, payload); ingestErr != nil {
			// Unparseable frames bypass debouncing and surface raw.
			hub.Broadcast("raw_message", map[string]interface{}{
				"station_id": station,
				"kind":       "agv/sensors",
				"payload":    string(payload),
			})
		}
	}); err != nil {
		return nil, err
	}

	if err := route(topics.AllAirQuality(), func(station int, payload []byte) {
		aq, parseErr := telemetry.ParseAirQuality(payload)
		if parseErr != nil {
			hub.Broadcast("raw_message", map[string]interface{}{
				"station_id": station,
				"kind":       "air/quality",
				"payload":    string(payload),
			})
			return
		}
		hub.Broadcast("air_quality", map[string]interface{}{
			"station_id":  station,
			"co2":         aq.CO2,
			"temperature": aq.Temperature,
			"humidity":    aq.Humidity,
		})
		if influx != nil {
			influx.WriteAirQuality(station, aq.CO2, aq.Temperature, aq.Humidity)
		}
	}); err != nil {
		return nil, err
	}

	return aggregator, nil
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
