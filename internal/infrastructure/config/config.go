package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Greenrack Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Flow      FlowConfig      `yaml:"flow"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Lighting  LightingConfig  `yaml:"lighting"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// WarehouseConfig describes the physical rack geometry and stations.
type WarehouseConfig struct {
	Floors   int             `yaml:"floors"`
	Slots    int             `yaml:"slots"`
	Stations []StationConfig `yaml:"stations"`
}

// StationConfig describes one station cell: its identifier on the message bus
// and the floor at which its AGV parks and hands trays to the workstation.
type StationConfig struct {
	ID        int `yaml:"id"`
	HomeFloor int `yaml:"home_floor"`
}

// FlowConfig contains station flow-machine timing settings.
type FlowConfig struct {
	// SettleDelayMS is the pause inserted before issuing the next device
	// command after a mechanical acknowledgment, to absorb sensor bounce.
	SettleDelayMS int `yaml:"settle_delay_ms"`

	// DebounceMS is the window raw sensor frames must hold stable before
	// a snapshot is delivered downstream.
	DebounceMS int `yaml:"debounce_ms"`
}

// DispatchConfig contains outbound command pacing settings.
type DispatchConfig struct {
	// MinIntervalMS is the minimum delay between consecutive publishes on
	// one device-class queue. Protects devices that cannot absorb bursts.
	MinIntervalMS int `yaml:"min_interval_ms"`
}

// LightingConfig contains settings for the addressable lighting/fan subsystem.
type LightingConfig struct {
	// Topic is the fixed command topic the serial bridging device listens on.
	Topic string `yaml:"topic"`

	// Key identifies the bridging device in the command envelope.
	Key string `yaml:"key"`

	// AddressTable is the path to the YAML wiring calibration file mapping
	// (floor, device type) to bus address and register.
	AddressTable string `yaml:"address_table"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GREENRACK_SECTION_KEY
// For example: GREENRACK_DATABASE_PATH, GREENRACK_MQTT_HOST
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
		Site: SiteConfig{
			ID:       "farm-001",
			Name:     "Greenrack",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/greenrack.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "greenrack-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Warehouse: WarehouseConfig{
			Floors: 8,
			Slots:  18,
			Stations: []StationConfig{
				{ID: 1, HomeFloor: 1},
			},
		},
		Flow: FlowConfig{
			SettleDelayMS: 500,
			DebounceMS:    400,
		},
		Dispatch: DispatchConfig{
			MinIntervalMS: 200,
		},
		Lighting: LightingConfig{
			Topic:        "greenrack/lighting/command",
			Key:          "grow-bus-01",
			AddressTable: "configs/lighting.yaml",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GREENRACK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GREENRACK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GREENRACK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GREENRACK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GREENRACK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GREENRACK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GREENRACK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("GREENRACK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Warehouse.Floors < 1 {
		errs = append(errs, "warehouse.floors must be at least 1")
	}
	if c.Warehouse.Slots < 1 {
		errs = append(errs, "warehouse.slots must be at least 1")
	}
	if len(c.Warehouse.Stations) == 0 {
		errs = append(errs, "warehouse.stations must list at least one station")
	}
	seen := make(map[int]bool, len(c.Warehouse.Stations))
	for _, st := range c.Warehouse.Stations {
		if st.ID < 1 {
			errs = append(errs, fmt.Sprintf("warehouse.stations: invalid station id %d", st.ID))
		}
		if seen[st.ID] {
			errs = append(errs, fmt.Sprintf("warehouse.stations: duplicate station id %d", st.ID))
		}
		seen[st.ID] = true
		if st.HomeFloor < 1 || st.HomeFloor > c.Warehouse.Floors {
			errs = append(errs, fmt.Sprintf("warehouse.stations: station %d home_floor %d out of range", st.ID, st.HomeFloor))
		}
	}

	if c.Flow.SettleDelayMS < 0 {
		errs = append(errs, "flow.settle_delay_ms must not be negative")
	}
	if c.Flow.DebounceMS < 1 {
		errs = append(errs, "flow.debounce_ms must be at least 1")
	}
	if c.Dispatch.MinIntervalMS < 0 {
		errs = append(errs, "dispatch.min_interval_ms must not be negative")
	}

	if c.Lighting.Topic == "" {
		errs = append(errs, "lighting.topic is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Station returns the station config for the given id, or false if unknown.
func (c *Config) Station(id int) (StationConfig, bool) {
	for _, st := range c.Warehouse.Stations {
		if st.ID == id {
			return st, true
		}
	}
	return StationConfig{}, false
}

// SettleDelay returns the flow settle delay as a Duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Flow.SettleDelayMS) * time.Millisecond
}

// DebounceWindow returns the sensor debounce window as a Duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Flow.DebounceMS) * time.Millisecond
}

// DispatchInterval returns the minimum inter-command delay as a Duration.
func (c *Config) DispatchInterval() time.Duration {
	return time.Duration(c.Dispatch.MinIntervalMS) * time.Millisecond
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
