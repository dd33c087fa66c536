package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Girder     GirderConfig     `mapstructure:"girder"`
	Search     SearchConfig     `mapstructure:"search"`
	Heatmap    HeatmapConfig    `mapstructure:"heatmap"`
	Filters    FiltersConfig    `mapstructure:"filters"`
	Thumbnails ThumbnailsConfig `mapstructure:"thumbnails"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// GirderConfig points at the asset API.
type GirderConfig struct {
	APIRoot            string        `mapstructure:"api_root"`
	WebRoot            string        `mapstructure:"web_root"`
	FilterInfoEndpoint string        `mapstructure:"filter_info_endpoint"`
	Token              string        `mapstructure:"token"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	Limit        int           `mapstructure:"limit"`
	SampleLimit  int           `mapstructure:"sample_limit"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

type HeatmapConfig struct {
	SampleLimit      int `mapstructure:"sample_limit"`
	Radius           int `mapstructure:"radius"`
	BlurRadius       int `mapstructure:"blur_radius"`
	BinDecimalPlaces int `mapstructure:"bin_decimal_places"`
	DotPageSize      int `mapstructure:"dot_page_size"`
	DotLimit         int `mapstructure:"dot_limit"`
}

type FiltersConfig struct {
	DefaultStringKeys    []string `mapstructure:"default_string_keys"`
	DefaultNumericalKeys []string `mapstructure:"default_numerical_keys"`
	TimestampKey         string   `mapstructure:"timestamp_key"`
}

type ThumbnailsConfig struct {
	Formats      []string      `mapstructure:"formats"`
	Width        int           `mapstructure:"width"`
	Height       int           `mapstructure:"height"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
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
	Addr     string `mapstructure:"addr"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("girder.api_root", "http://localhost:8080/api/v1")
	v.SetDefault("girder.web_root", "http://localhost:8080/")
	v.SetDefault("girder.filter_info_endpoint", "http://localhost:8080/api/v1/item/geometa")
	v.SetDefault("girder.token", "")
	v.SetDefault("girder.timeout", 30*time.Second)
	v.SetDefault("search.limit", 50)
	v.SetDefault("search.sample_limit", 1000)
	v.SetDefault("search.session_ttl", 30*time.Minute)
	v.SetDefault("search.reap_interval", time.Minute)
	v.SetDefault("heatmap.sample_limit", 1000)
	v.SetDefault("heatmap.radius", 25)
	v.SetDefault("heatmap.blur_radius", 15)
	v.SetDefault("heatmap.bin_decimal_places", 1)
	v.SetDefault("heatmap.dot_page_size", 50)
	v.SetDefault("heatmap.dot_limit", 10000)
	v.SetDefault("filters.default_string_keys", []string{"sensorModality"})
	v.SetDefault("filters.default_numerical_keys", []string{})
	v.SetDefault("filters.timestamp_key", "timestamp")
	v.SetDefault("thumbnails.formats", []string{"png", "tif", "tiff"})
	v.SetDefault("thumbnails.width", 100)
	v.SetDefault("thumbnails.height", 100)
	v.SetDefault("thumbnails.initial_delay", 500*time.Millisecond)
	v.SetDefault("thumbnails.poll_interval", time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "geofacet")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "geofacet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.cache_ttl", 300)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "geofacet-thumbnails")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOFACET_GIRDER_API_ROOT → girder.api_root
	v.SetEnvPrefix("GEOFACET")
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
	if c.Girder.APIRoot == "" {
		errs = append(errs, "girder.api_root is required")
	}
	if c.Girder.FilterInfoEndpoint == "" {
		errs = append(errs, "girder.filter_info_endpoint is required")
	}
	if c.Search.Limit <= 0 {
		errs = append(errs, fmt.Sprintf("search.limit must be positive, got %d", c.Search.Limit))
	}
	if c.Search.SampleLimit <= 0 {
		errs = append(errs, fmt.Sprintf("search.sample_limit must be positive, got %d", c.Search.SampleLimit))
	}
	if c.Heatmap.SampleLimit <= 0 {
		errs = append(errs, fmt.Sprintf("heatmap.sample_limit must be positive, got %d", c.Heatmap.SampleLimit))
	}
	if c.Heatmap.BinDecimalPlaces < 0 {
		errs = append(errs, "heatmap.bin_decimal_places must not be negative")
	}
	if c.Thumbnails.Width <= 0 || c.Thumbnails.Height <= 0 {
		errs = append(errs, "thumbnails.width and thumbnails.height must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
