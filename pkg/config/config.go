package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"wikidatago/pkg/wikidata"
)

// EnvPrefix prefixes every environment override, e.g. WIKIDATAGO_PARSER_MODE.
const EnvPrefix = "WIKIDATAGO_"

// Config holds the application configuration.
type Config struct {
	Parser  ParserConfig  `yaml:"parser" toml:"parser"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	DB      DBConfig      `yaml:"db" toml:"db"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Request RequestConfig `yaml:"request" toml:"request"`
	Fetch   FetchConfig   `yaml:"fetch" toml:"fetch"`
	Ingest  IngestConfig  `yaml:"ingest" toml:"ingest"`
}

// ParserConfig holds entity parser settings.
type ParserConfig struct {
	Mode string `yaml:"mode" toml:"mode"` // "strict", "lenient"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server      LogSettings `yaml:"server" toml:"server"`
	Requests    LogSettings `yaml:"requests" toml:"requests"`
	EnableTrace bool        `yaml:"enable_trace" toml:"enable_trace"`
}

// LogSettings holds settings for a specific log file.
type LogSettings struct {
	Path  string `yaml:"path" toml:"path"`
	Level string `yaml:"level" toml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path     string `yaml:"path" toml:"path"`
	KeepRuns int    `yaml:"keep_runs" toml:"keep_runs"` // ingest runs kept by maintenance
}

// CacheConfig holds HTTP response cache settings.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	TTL     Duration `yaml:"ttl" toml:"ttl"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries   int           `yaml:"retries" toml:"retries"`
	Timeout   Duration      `yaml:"timeout" toml:"timeout"`
	MinGap    Duration      `yaml:"min_gap" toml:"min_gap"`
	UserAgent string        `yaml:"user_agent" toml:"user_agent"`
	Backoff   BackoffConfig `yaml:"backoff" toml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay" toml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay" toml:"max_delay"`
}

// FetchConfig holds Wikidata endpoint settings.
type FetchConfig struct {
	APIEndpoint   string `yaml:"api_endpoint" toml:"api_endpoint"`
	EntityDataURL string `yaml:"entity_data_url" toml:"entity_data_url"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
}

// IngestConfig holds batch ingest settings.
type IngestConfig struct {
	Workers     int  `yaml:"workers" toml:"workers"`
	StopOnError bool `yaml:"stop_on_error" toml:"stop_on_error"`
	StoreRaw    bool `yaml:"store_raw" toml:"store_raw"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Parser: ParserConfig{
			Mode: "lenient",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/wdparse.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:     "./data/wikidata.db",
			KeepRuns: 50,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(7 * Day),
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(60 * time.Second),
			MinGap:  Duration(100 * time.Millisecond),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Fetch: FetchConfig{
			APIEndpoint:   "https://www.wikidata.org/w/api.php",
			EntityDataURL: "https://www.wikidata.org/wiki/Special:EntityData/",
			BatchSize:     50,
		},
		Ingest: IngestConfig{
			Workers:  4,
			StoreRaw: true,
		},
	}
}

// ParserMode returns the configured parser mode.
func (c *Config) ParserMode() (wikidata.Mode, error) {
	return wikidata.ParseMode(c.Parser.Mode)
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if _, err := c.ParserMode(); err != nil {
		return fmt.Errorf("invalid parser.mode '%s': must be 'strict' or 'lenient'", c.Parser.Mode)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("invalid ingest.workers %d: must be at least 1", c.Ingest.Workers)
	}
	if c.Fetch.BatchSize < 1 || c.Fetch.BatchSize > 50 {
		return fmt.Errorf("invalid fetch.batch_size %d: must be between 1 and 50", c.Fetch.BatchSize)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads the config at path (YAML, or TOML for *.toml files). A missing
// file is created with defaults. Environment overrides are applied on top but
// never written back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if isTOML(path) {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		// If file does not exist, save defaults
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("PARSER_MODE", &cfg.Parser.Mode)
	str("DB_PATH", &cfg.DB.Path)
	str("LOG_LEVEL", &cfg.Log.Server.Level)
	str("USER_AGENT", &cfg.Request.UserAgent)
	str("API_ENDPOINT", &cfg.Fetch.APIEndpoint)

	if v := os.Getenv(EnvPrefix + "INGEST_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sINGEST_WORKERS %q: %w", EnvPrefix, v, err)
		}
		cfg.Ingest.Workers = n
	}
	if v := os.Getenv(EnvPrefix + "CACHE_TTL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_TTL %q: %w", EnvPrefix, v, err)
		}
		cfg.Cache.TTL = Duration(d)
	}
	return nil
}

const header = `# wikidatago configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Environment variables prefixed with WIKIDATAGO_ override values at runtime.

`

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append([]byte(header), data...)

	// Inject option hints above enum-like keys, keeping indentation.
	reMode := regexp.MustCompile(`(?m)^([ \t]*)mode[ \t]*[:=]`)
	data = reMode.ReplaceAll(data, []byte("${1}# Options: strict, lenient\n$0"))
	reLevel := regexp.MustCompile(`(?m)^([ \t]*)level[ \t]*[:=]`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n$0"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write default config
	return Save(path, DefaultConfig())
}
