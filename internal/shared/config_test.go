package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 8000 {
			t.Errorf("expected server port 8000, got %d", config.Server.Port)
		}
		if config.Downloads.MaxConcurrent != 3 {
			t.Errorf("expected max_concurrent 3, got %d", config.Downloads.MaxConcurrent)
		}
		if config.Downloads.QueuePolicy != QueuePolicyQueue {
			t.Errorf("expected queue policy %q, got %q", QueuePolicyQueue, config.Downloads.QueuePolicy)
		}
		if config.Store.Backend != BackendMemory {
			t.Errorf("expected memory backend, got %s", config.Store.Backend)
		}
		if config.Tools.ResolveTimeout != 45*time.Second {
			t.Errorf("expected resolve timeout 45s, got %v", config.Tools.ResolveTimeout)
		}
		if config.Client.Timeout != 10*time.Second {
			t.Errorf("expected client timeout 10s, got %v", config.Client.Timeout)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Downloads.OutputDir != DefaultConfig().Downloads.OutputDir {
			t.Errorf("created config output dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[server]
port = 9090

[downloads]
output_dir = "/srv/music"
max_concurrent = 5
queue_policy = "reject"

[store]
backend = "sqlite"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 9090 {
			t.Errorf("expected server port 9090, got %d", config.Server.Port)
		}
		if config.Downloads.OutputDir != "/srv/music" {
			t.Errorf("expected output dir /srv/music, got %s", config.Downloads.OutputDir)
		}
		if config.Downloads.QueuePolicy != QueuePolicyReject {
			t.Errorf("expected reject policy, got %s", config.Downloads.QueuePolicy)
		}

		t.Run("keeps defaults for missing keys", func(t *testing.T) {
			if config.Downloads.QueueSize != 256 {
				t.Errorf("expected default queue size 256, got %d", config.Downloads.QueueSize)
			}
			if config.Tools.FFmpegPath != "ffmpeg" {
				t.Errorf("expected default ffmpeg path, got %s", config.Tools.FFmpegPath)
			}
		})
	})

	t.Run("LoadConfig errors", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}

		bad := filepath.Join(t.TempDir(), "bad.toml")
		os.WriteFile(bad, []byte("[server\nport = "), 0644)
		if _, err := LoadConfig(bad); err == nil {
			t.Error("expected error for malformed TOML")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(c *Config)
		}{
			{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
			{"empty output dir", func(c *Config) { c.Downloads.OutputDir = " " }},
			{"zero concurrency", func(c *Config) { c.Downloads.MaxConcurrent = 0 }},
			{"zero queue", func(c *Config) { c.Downloads.QueueSize = 0 }},
			{"bad progress step", func(c *Config) { c.Downloads.ProgressStep = 0 }},
			{"unknown policy", func(c *Config) { c.Downloads.QueuePolicy = "drop" }},
			{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
			{"retention without interval", func(c *Config) {
				c.Retention.MaxAge = time.Hour
				c.Retention.Interval = 0
			}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				c := DefaultConfig()
				tt.mutate(c)
				if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}

func TestEnv(t *testing.T) {
	t.Run("ApplyEnv overrides", func(t *testing.T) {
		t.Setenv("YTMP3_PORT", "9000")
		t.Setenv("YTMP3_OUTPUT_DIR", "/data/mp3")
		t.Setenv("YTMP3_MAX_CONCURRENT", "7")
		t.Setenv("YTMP3_VERIFY_SSL", "false")
		t.Setenv("YTMP3_CORS_ORIGINS", "http://a.local, http://b.local")
		t.Setenv("YTMP3_RETENTION_MAX_AGE", "48h")

		c := DefaultConfig()
		if err := ApplyEnv(c); err != nil {
			t.Fatalf("ApplyEnv failed: %v", err)
		}

		if c.Server.Port != 9000 {
			t.Errorf("expected port 9000, got %d", c.Server.Port)
		}
		if c.Downloads.OutputDir != "/data/mp3" {
			t.Errorf("expected output dir override, got %s", c.Downloads.OutputDir)
		}
		if c.Downloads.MaxConcurrent != 7 {
			t.Errorf("expected max_concurrent 7, got %d", c.Downloads.MaxConcurrent)
		}
		if c.Downloads.VerifySSL {
			t.Error("expected verify_ssl false")
		}
		if len(c.Server.CORSOrigins) != 2 || c.Server.CORSOrigins[1] != "http://b.local" {
			t.Errorf("unexpected cors origins %v", c.Server.CORSOrigins)
		}
		if c.Retention.MaxAge != 48*time.Hour {
			t.Errorf("expected max age 48h, got %v", c.Retention.MaxAge)
		}
	})

	t.Run("ApplyEnv rejects malformed numbers", func(t *testing.T) {
		t.Setenv("YTMP3_PORT", "eighty")
		t.Setenv("YTMP3_VERIFY_SSL", "maybe")

		err := ApplyEnv(DefaultConfig())
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadEnv later files win", func(t *testing.T) {
		dir := t.TempDir()
		base := filepath.Join(dir, ".env")
		local := filepath.Join(dir, ".env.local")
		os.WriteFile(base, []byte("YTMP3_TEST_LOADENV=base\n"), 0644)
		os.WriteFile(local, []byte("YTMP3_TEST_LOADENV=local\n"), 0644)
		t.Cleanup(func() { os.Unsetenv("YTMP3_TEST_LOADENV") })

		if err := LoadEnv(base, filepath.Join(dir, "missing.env"), local); err != nil {
			t.Fatalf("LoadEnv failed: %v", err)
		}
		if got := os.Getenv("YTMP3_TEST_LOADENV"); got != "local" {
			t.Errorf("expected local override, got %q", got)
		}
	})
}
