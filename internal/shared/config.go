package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	QueuePolicyQueue  = "queue"
	QueuePolicyReject = "reject"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendRedis  = "redis"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Downloads DownloadsConfig `toml:"downloads"`
	Tools     ToolsConfig     `toml:"tools"`
	Store     StoreConfig     `toml:"store"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Retention RetentionConfig `toml:"retention"`
	Log       LogConfig       `toml:"log"`
	Client    ClientConfig    `toml:"client"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string        `toml:"host"`
	Port         int           `toml:"port"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	RateLimit    float64       `toml:"rate_limit"` // requests per second, 0 disables
	Burst        int           `toml:"burst"`
	CORSOrigins  []string      `toml:"cors_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DownloadsConfig controls the worker pool and the audio pipeline.
type DownloadsConfig struct {
	OutputDir     string  `toml:"output_dir"`
	MaxConcurrent int     `toml:"max_concurrent"`
	QueueSize     int     `toml:"queue_size"`
	QueuePolicy   string  `toml:"queue_policy"`
	ProgressStep  float64 `toml:"progress_step"`
	VerifySSL     bool    `toml:"verify_ssl"`
	AudioBitrate  string  `toml:"audio_bitrate"`
	SampleRate    int     `toml:"sample_rate"`
	HeadersFile   string  `toml:"headers_file"`
}

// ToolsConfig locates the external binaries.
type ToolsConfig struct {
	YTDLPPath      string        `toml:"ytdlp_path"`
	FFmpegPath     string        `toml:"ffmpeg_path"`
	ResolveTimeout time.Duration `toml:"resolve_timeout"`
	ConvertTimeout time.Duration `toml:"convert_timeout"`
}

// StoreConfig selects the job journal backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains redis connection settings.
type RedisConfig struct {
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	DB       int           `toml:"db"`
	TTL      time.Duration `toml:"ttl"`
}

// RetentionConfig controls pruning of finished jobs. A zero MaxAge disables it.
type RetentionConfig struct {
	MaxAge   time.Duration `toml:"max_age"`
	Interval time.Duration `toml:"interval"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ClientConfig is used by the CLI commands that talk to a running server.
type ClientConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values that the service cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case strings.TrimSpace(c.Downloads.OutputDir) == "":
		return fmt.Errorf("%w: downloads.output_dir is required", ErrInvalidConfig)
	case c.Downloads.MaxConcurrent < 1:
		return fmt.Errorf("%w: downloads.max_concurrent must be at least 1", ErrInvalidConfig)
	case c.Downloads.QueueSize < 1:
		return fmt.Errorf("%w: downloads.queue_size must be at least 1", ErrInvalidConfig)
	case c.Downloads.ProgressStep <= 0 || c.Downloads.ProgressStep > 100:
		return fmt.Errorf("%w: downloads.progress_step must be in (0, 100]", ErrInvalidConfig)
	}

	switch c.Downloads.QueuePolicy {
	case QueuePolicyQueue, QueuePolicyReject:
	default:
		return fmt.Errorf("%w: unknown downloads.queue_policy %q", ErrInvalidConfig, c.Downloads.QueuePolicy)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendPebble, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Retention.MaxAge > 0 && c.Retention.Interval <= 0 {
		return fmt.Errorf("%w: retention.interval is required when retention.max_age is set", ErrInvalidConfig)
	}
	return nil
}
