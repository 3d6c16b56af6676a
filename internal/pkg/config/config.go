package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Camera    CameraConfig    `mapstructure:"camera"`
	Platform  PlatformConfig  `mapstructure:"platform"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// GeocoderConfig tunes the reverse-geocoding lookup.
type GeocoderConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	UserAgent       string `mapstructure:"user_agent"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// SensorConfig selects and tunes the position sensor driver.
type SensorConfig struct {
	Driver    string  `mapstructure:"driver"` // "sim" or "nmea"
	Port      string  `mapstructure:"port"`   // serial device for nmea
	BaudRate  int     `mapstructure:"baud_rate"`
	Latitude  float64 `mapstructure:"latitude"`  // sim base position
	Longitude float64 `mapstructure:"longitude"` //
	DeviceID  string  `mapstructure:"device_id"`
	IntervalS int     `mapstructure:"interval_seconds"` // tracker publish cadence
}

// CameraConfig tunes the camera driver.
type CameraConfig struct {
	Driver   string `mapstructure:"driver"` // "sim"
	WarmupMs int    `mapstructure:"warmup_ms"`
}

// PlatformConfig describes the install/worker environment.
type PlatformConfig struct {
	WorkerScript string   `mapstructure:"worker_script"`
	WorkerScope  string   `mapstructure:"worker_scope"`
	PreviewHosts []string `mapstructure:"preview_hosts"`
	DataDir      string   `mapstructure:"data_dir"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "devicehub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "devicehub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "florapix-devicehub/1.0")
	v.SetDefault("geocoder.timeout_seconds", 10)
	v.SetDefault("geocoder.cache_ttl_seconds", 86400)
	v.SetDefault("sensor.driver", "sim")
	v.SetDefault("sensor.port", "/dev/serial0")
	v.SetDefault("sensor.baud_rate", 9600)
	v.SetDefault("sensor.latitude", 43.263)
	v.SetDefault("sensor.longitude", -2.935)
	v.SetDefault("sensor.device_id", "dev-local")
	v.SetDefault("sensor.interval_seconds", 15)
	v.SetDefault("camera.driver", "sim")
	v.SetDefault("camera.warmup_ms", 50)
	v.SetDefault("platform.worker_script", "/service-worker.js")
	v.SetDefault("platform.worker_scope", "/")
	v.SetDefault("platform.preview_hosts", []string{"figma.site", "localhost"})
	v.SetDefault("platform.data_dir", "./data")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: DEVICEHUB_SENSOR_DRIVER → sensor.driver
	v.SetEnvPrefix("DEVICEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	switch c.Sensor.Driver {
	case "sim", "nmea":
	default:
		errs = append(errs, fmt.Sprintf("sensor.driver must be sim or nmea, got %q", c.Sensor.Driver))
	}
	if c.Sensor.Driver == "nmea" && c.Sensor.Port == "" {
		errs = append(errs, "sensor.port is required for the nmea driver")
	}
	if c.Sensor.DeviceID == "" {
		errs = append(errs, "sensor.device_id is required")
	}
	if c.Platform.WorkerScript == "" {
		errs = append(errs, "platform.worker_script is required")
	}
	if c.Platform.WorkerScope == "" {
		errs = append(errs, "platform.worker_scope is required")
	}
	if c.Platform.DataDir == "" {
		errs = append(errs, "platform.data_dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
