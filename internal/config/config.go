package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-animator/internal/engine"
)

//go:embed filters.yaml
var filtersYAML []byte

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Images   ImagesConfig
	Sessions SessionsConfig
	Log      LogConfig
	Filters  FiltersConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS/WebSocket origins; localhost is always allowed
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional, expression logs stay in memory without it)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ImagesConfig struct {
	Dir     string // where uploaded stills are written (default ./data/images)
	MaxSize int    // longest edge after downsizing (default 1920)
}

type SessionsConfig struct {
	InactiveThreshold time.Duration // expression logs idle this long are timed out (default 30m)
	CleanupInterval   time.Duration // sweeper period (default 10m)
}

type LogConfig struct {
	Level  string // zap level name (default info)
	Format string // json or console (default json)
}

type FiltersConfig struct {
	Expressions map[string]FilterValues `yaml:"expressions"`
}

type FilterValues struct {
	Brightness float64 `yaml:"brightness"`
	Contrast   float64 `yaml:"contrast"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString returns the env var or the default when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated env var, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var filters FiltersConfig
	if err := yaml.Unmarshal(filtersYAML, &filters); err != nil {
		// Embedded file, so this only fails on a broken build
		panic("failed to unmarshal embedded filters.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 3000),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Images: ImagesConfig{
			Dir:     envString("IMAGE_DIR", "./data/images"),
			MaxSize: envInt("IMAGE_MAX_SIZE", 1920),
		},
		Sessions: SessionsConfig{
			InactiveThreshold: time.Duration(envInt("SESSION_INACTIVE_MINUTES", 30)) * time.Minute,
			CleanupInterval:   time.Duration(envInt("SESSION_CLEANUP_MINUTES", 10)) * time.Minute,
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Filters: filters,
	}
}

// EngineFilters converts the configured filter table for the engine.
// Unknown expression names are ignored.
func (c *Config) EngineFilters() engine.FilterTable {
	table := engine.DefaultFilters()
	for name, v := range c.Filters.Expressions {
		e := engine.Expression(name)
		if _, known := table[e]; !known {
			continue
		}
		table[e] = engine.Filter{Brightness: v.Brightness, Contrast: v.Contrast}
	}
	return table
}
