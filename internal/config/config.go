package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the pipeline options.
const (
	DefaultMinBuffer         = 2
	DefaultMaxBuffer         = 5
	DefaultSegmentDurationMs = 2000
	DefaultProxyPrefix       = "/proxy?url="
)

// Config holds the fully processed application configuration for one
// pipeline run.
type Config struct {
	// ManifestURL is the playlist the producer polls for new segments.
	ManifestURL string `json:"manifest_url"`
	// ProxyPrefix is prepended to every outbound fetch. The target URL
	// is appended query-escaped. Empty means fetch directly.
	ProxyPrefix string `json:"proxy_prefix"`
	// UserAgent is sent on all outbound requests when non-empty.
	UserAgent string `json:"user_agent"`
	// MinBuffer is the warm-up threshold: the consumer does not emit
	// until the queue has held at least this many segments.
	MinBuffer int `json:"min_buffer"`
	// MaxBuffer is the backpressure ceiling on queue occupancy.
	MaxBuffer int `json:"max_buffer"`
	// SegmentDurationMs is the steady-state pacing interval.
	SegmentDurationMs int `json:"segment_duration_ms"`
	// FFmpegPath is the transform engine binary. Empty selects the
	// passthrough engine.
	FFmpegPath string `json:"ffmpeg_path"`
	// FFmpegArgs are output options placed between input and output.
	FFmpegArgs []string `json:"ffmpeg_args"`
}

// LoadEnv reads a .env file into the environment. A missing file is
// not an error; system env and defaults still apply.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key,
// or fallback if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named
// by key, or fallback if unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// Load reads and parses the configuration file from the given path,
// applies defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config JSON: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ProxyPrefix == "" {
		c.ProxyPrefix = DefaultProxyPrefix
	}
	if c.MinBuffer == 0 {
		c.MinBuffer = DefaultMinBuffer
	}
	if c.MaxBuffer == 0 {
		c.MaxBuffer = DefaultMaxBuffer
	}
	if c.SegmentDurationMs == 0 {
		c.SegmentDurationMs = DefaultSegmentDurationMs
	}
}

func (c *Config) applyEnv() {
	c.ManifestURL = GetEnv("HLSPIPED_MANIFEST_URL", c.ManifestURL)
	c.ProxyPrefix = GetEnv("HLSPIPED_PROXY_PREFIX", c.ProxyPrefix)
	c.UserAgent = GetEnv("HLSPIPED_USER_AGENT", c.UserAgent)
	c.MinBuffer = GetEnvInt("HLSPIPED_MIN_BUFFER", c.MinBuffer)
	c.MaxBuffer = GetEnvInt("HLSPIPED_MAX_BUFFER", c.MaxBuffer)
	c.SegmentDurationMs = GetEnvInt("HLSPIPED_SEGMENT_DURATION_MS", c.SegmentDurationMs)
	c.FFmpegPath = GetEnv("HLSPIPED_FFMPEG_PATH", c.FFmpegPath)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ManifestURL == "" {
		return fmt.Errorf("config: manifest_url is required")
	}
	if c.MinBuffer < 1 {
		return fmt.Errorf("config: min_buffer must be at least 1, got %d", c.MinBuffer)
	}
	if c.MaxBuffer < c.MinBuffer {
		return fmt.Errorf("config: max_buffer (%d) must be >= min_buffer (%d)", c.MaxBuffer, c.MinBuffer)
	}
	if c.SegmentDurationMs <= 0 {
		return fmt.Errorf("config: segment_duration_ms must be positive, got %d", c.SegmentDurationMs)
	}
	return nil
}

// SegmentDuration returns the steady-state pacing interval.
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.SegmentDurationMs) * time.Millisecond
}
