package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/galois26/eventclash/internal/engine"
)

type Server struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EngineConfig mirrors engine.Config with YAML-friendly names.
type EngineConfig struct {
	TimeBuffer           time.Duration `yaml:"time_buffer"`
	AssumedEventDuration time.Duration `yaml:"assumed_event_duration"`
	BaseThresholdKm      float64       `yaml:"base_threshold_km"`
	DensitySampleSize    int           `yaml:"density_sample_size"`
}

type CommonHTTP struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type SourceConfig struct {
	Name string `yaml:"name"` // reported in per-source counts, defaults to type
	Type string `yaml:"type"` // feed | file

	// feed
	BaseURL      string     `yaml:"base_url"`
	APIKey       string     `yaml:"api_key"`
	APIKeyHeader string     `yaml:"api_key_header"` // default X-API-Key
	HTTP         CommonHTTP `yaml:"http"`

	// file
	Path string `yaml:"path"`

	// Per-source rate limiting & retries
	RatePerSecond float64       `yaml:"rate_per_second"` // e.g. 1.0 = 1 req/sec, 0 = unlimited
	Burst         int           `yaml:"burst"`           // token bucket burst (e.g. 2)
	MaxRetries    int           `yaml:"max_retries"`     // retry attempts (e.g. 3)
	Backoff       time.Duration `yaml:"backoff"`         // initial backoff (e.g. 500ms)
	MaxBackoff    time.Duration `yaml:"max_backoff"`     // cap (e.g. 5s)
}

type CacheConfig struct {
	Enable   bool          `yaml:"enable"`
	TTL      time.Duration `yaml:"ttl"`       // e.g. 5m
	MaxKeys  int           `yaml:"max_keys"`  // cap to bound memory
	RedisURL string        `yaml:"redis_url"` // redis://host:6379/0 or host:port; empty = in-memory
}

type LokiConfig struct {
	URL       string        `yaml:"url"`       // http://loki:3100
	TenantID  string        `yaml:"tenant_id"` // optional multi-tenancy
	Job       string        `yaml:"job"`       // label value, default: eventclash
	Timeout   time.Duration `yaml:"timeout"`   // request timeout
	UserAgent string        `yaml:"user_agent"`
}

type VictoriaConfig struct {
	URL       string        `yaml:"url"`     // http://victoria-metrics:8428
	Timeout   time.Duration `yaml:"timeout"` // request timeout
	UserAgent string        `yaml:"user_agent"`
}

type KeywordRule struct {
	When   []string `yaml:"when"`   // substrings (case-insensitive) that must all appear in the event name
	Genres []string `yaml:"genres"` // genres to add when matched
}

type RegexRule struct {
	Field  string   `yaml:"field"` // name|venue|source
	Expr   string   `yaml:"expr"`
	Genres []string `yaml:"genres"`
}

type MapRule struct {
	Field   string            `yaml:"field"`   // e.g. venue
	Mapping map[string]string `yaml:"mapping"` // e.g. "blue note": "jazz"
}

type PostProcessConfig struct {
	Keywords []KeywordRule `yaml:"keywords"`
	Regex    []RegexRule   `yaml:"regex"`
	Maps     []MapRule     `yaml:"maps"`
}

type LocationConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
	MaxRadiusKm     float64 `yaml:"max_radius_km"`
}

type Config struct {
	Server   Server            `yaml:"server"`
	Engine   EngineConfig      `yaml:"engine"`
	Sources  []SourceConfig    `yaml:"sources"`
	Cache    CacheConfig       `yaml:"cache"`
	Loki     LokiConfig        `yaml:"loki"`
	Victoria VictoriaConfig    `yaml:"victoria"`
	Post     PostProcessConfig `yaml:"postprocess"`
	Location LocationConfig    `yaml:"location"`
}

// envOverrides are applied after the YAML file. Unset variables leave the
// file value untouched.
type envOverrides struct {
	ListenAddress *string        `env:"EVENTCLASH_LISTEN_ADDRESS"`
	TimeBuffer    *time.Duration `env:"EVENTCLASH_TIME_BUFFER"`
	BaseThreshold *float64       `env:"EVENTCLASH_BASE_THRESHOLD_KM"`
	CacheEnable   *bool          `env:"EVENTCLASH_CACHE_ENABLE"`
	CacheTTL      *time.Duration `env:"EVENTCLASH_CACHE_TTL"`
	RedisURL      *string        `env:"EVENTCLASH_REDIS_URL"`
	LokiURL       *string        `env:"EVENTCLASH_LOKI_URL"`
	LokiTenantID  *string        `env:"EVENTCLASH_LOKI_TENANT_ID"`
	VictoriaURL   *string        `env:"EVENTCLASH_VICTORIA_URL"`
	RadiusKm      *float64       `env:"EVENTCLASH_DEFAULT_RADIUS_KM"`
}

// Load reads the YAML file at path, fills defaults, applies EVENTCLASH_*
// environment overrides and validates the result. An empty path skips the
// file and yields defaults plus environment.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	def := engine.DefaultConfig()
	if c.Engine.TimeBuffer == 0 {
		c.Engine.TimeBuffer = def.DefaultTimeBuffer
	}
	if c.Engine.AssumedEventDuration == 0 {
		c.Engine.AssumedEventDuration = def.AssumedEventDuration
	}
	if c.Engine.BaseThresholdKm == 0 {
		c.Engine.BaseThresholdKm = def.BaseThresholdKm
	}
	if c.Engine.DensitySampleSize == 0 {
		c.Engine.DensitySampleSize = def.DensitySampleSize
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Name == "" {
			s.Name = s.Type
		}
		if s.APIKeyHeader == "" {
			s.APIKeyHeader = "X-API-Key"
		}
		if s.HTTP.Timeout == 0 {
			s.HTTP.Timeout = 10 * time.Second
		}
		if s.Burst == 0 {
			s.Burst = 1
		}
		if s.MaxRetries == 0 {
			s.MaxRetries = 3
		}
		if s.Backoff == 0 {
			s.Backoff = 500 * time.Millisecond
		}
		if s.MaxBackoff == 0 {
			s.MaxBackoff = 5 * time.Second
		}
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.MaxKeys == 0 {
		c.Cache.MaxKeys = 10000
	}
	if c.Loki.Job == "" {
		c.Loki.Job = "eventclash"
	}
	if c.Loki.Timeout == 0 {
		c.Loki.Timeout = 10 * time.Second
	}
	if c.Victoria.Timeout == 0 {
		c.Victoria.Timeout = 10 * time.Second
	}
	if c.Location.DefaultRadiusKm == 0 {
		c.Location.DefaultRadiusKm = 5
	}
	if c.Location.MaxRadiusKm == 0 {
		c.Location.MaxRadiusKm = 50
	}
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.ListenAddress != nil {
		c.Server.ListenAddress = *o.ListenAddress
	}
	if o.TimeBuffer != nil {
		c.Engine.TimeBuffer = *o.TimeBuffer
	}
	if o.BaseThreshold != nil {
		c.Engine.BaseThresholdKm = *o.BaseThreshold
	}
	if o.CacheEnable != nil {
		c.Cache.Enable = *o.CacheEnable
	}
	if o.CacheTTL != nil {
		c.Cache.TTL = *o.CacheTTL
	}
	if o.RedisURL != nil {
		c.Cache.RedisURL = *o.RedisURL
	}
	if o.LokiURL != nil {
		c.Loki.URL = *o.LokiURL
	}
	if o.LokiTenantID != nil {
		c.Loki.TenantID = *o.LokiTenantID
	}
	if o.VictoriaURL != nil {
		c.Victoria.URL = *o.VictoriaURL
	}
	if o.RadiusKm != nil {
		c.Location.DefaultRadiusKm = *o.RadiusKm
	}
	return nil
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if s.Type == "" {
			return fmt.Errorf("sources[%d]: type is required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
		switch s.Type {
		case "feed":
			if strings.TrimSpace(s.BaseURL) == "" {
				return fmt.Errorf("sources[%d] %s: base_url is required", i, s.Name)
			}
		case "file":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("sources[%d] %s: path is required", i, s.Name)
			}
		}
		if s.RatePerSecond < 0 {
			return fmt.Errorf("sources[%d] %s: rate_per_second cannot be negative", i, s.Name)
		}
	}

	if c.Cache.Enable && c.Cache.TTL < 0 {
		return errors.New("cache: ttl cannot be negative")
	}
	if c.Location.DefaultRadiusKm <= 0 {
		return fmt.Errorf("location: default_radius_km must be positive (got %.2f)", c.Location.DefaultRadiusKm)
	}
	if c.Location.MaxRadiusKm < c.Location.DefaultRadiusKm {
		return fmt.Errorf("location: max_radius_km %.2f is below default_radius_km %.2f", c.Location.MaxRadiusKm, c.Location.DefaultRadiusKm)
	}
	return nil
}

// EngineConfig converts the engine section into an engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		AssumedEventDuration: c.Engine.AssumedEventDuration,
		BaseThresholdKm:      c.Engine.BaseThresholdKm,
		DensitySampleSize:    c.Engine.DensitySampleSize,
		DefaultTimeBuffer:    c.Engine.TimeBuffer,
	}
}
