package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix shared by every environment override.
const EnvPrefix = "YTMP3_"

// LoadEnv loads the given dotenv files in order; later files win. Missing files are skipped.
func LoadEnv(files ...string) error {
	for i, name := range files {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		load := godotenv.Load
		if i > 0 {
			load = godotenv.Overload
		}
		if err := load(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from YTMP3_* environment variables.
func ApplyEnv(c *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, key, v))
				return
			}
			*dst = d
		}
	}

	str("HOST", &c.Server.Host)
	integer("PORT", &c.Server.Port)
	float("RATE_LIMIT", &c.Server.RateLimit)
	if v, ok := os.LookupEnv(EnvPrefix + "CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}

	str("OUTPUT_DIR", &c.Downloads.OutputDir)
	integer("MAX_CONCURRENT", &c.Downloads.MaxConcurrent)
	integer("QUEUE_SIZE", &c.Downloads.QueueSize)
	str("QUEUE_POLICY", &c.Downloads.QueuePolicy)
	boolean("VERIFY_SSL", &c.Downloads.VerifySSL)
	str("AUDIO_BITRATE", &c.Downloads.AudioBitrate)
	str("HEADERS_FILE", &c.Downloads.HeadersFile)

	str("YTDLP_PATH", &c.Tools.YTDLPPath)
	str("FFMPEG_PATH", &c.Tools.FFmpegPath)

	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_PATH", &c.Store.Path)
	str("DATABASE_PATH", &c.Database.Path)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	integer("REDIS_DB", &c.Redis.DB)

	duration("RETENTION_MAX_AGE", &c.Retention.MaxAge)
	str("LOG_LEVEL", &c.Log.Level)
	str("BASE_URL", &c.Client.BaseURL)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
