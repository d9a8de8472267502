package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Countries CountriesConfig `yaml:"countries" mapstructure:"countries"`
	GeoIP     GeoIPConfig     `yaml:"geoip" mapstructure:"geoip"`
	Region    RegionConfig    `yaml:"region" mapstructure:"region"`
	Postcode  PostcodeConfig  `yaml:"postcode" mapstructure:"postcode"`
	Direct    DirectConfig    `yaml:"direct" mapstructure:"direct"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistent cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisURL    string `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CountriesConfig configures the country catalog and its directory service.
type CountriesConfig struct {
	BaseURL       string   `yaml:"base_url" mapstructure:"base_url"`
	CacheKey      string   `yaml:"cache_key" mapstructure:"cache_key"`
	CacheTTLHours int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	Priority      []string `yaml:"priority" mapstructure:"priority"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit     float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeoIPConfig configures the IP geolocation service.
type GeoIPConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// RegionConfig configures region detection.
type RegionConfig struct {
	AutoDetect        bool    `yaml:"auto_detect" mapstructure:"auto_detect"`
	Force             string  `yaml:"force" mapstructure:"force"`
	IPThreshold       float64 `yaml:"ip_threshold" mapstructure:"ip_threshold"`
	TimezoneThreshold float64 `yaml:"timezone_threshold" mapstructure:"timezone_threshold"`
}

// PostcodeConfig configures the Korean postal lookup widget.
type PostcodeConfig struct {
	ScriptURL   string `yaml:"script_url" mapstructure:"script_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DirectConfig configures free-text address entry.
type DirectConfig struct {
	DefaultCountry string `yaml:"default_country" mapstructure:"default_country"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADDRKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "addrkit.db")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("countries.base_url", "https://restcountries.com/v3.1")
	v.SetDefault("countries.cache_key", "countries-cache")
	v.SetDefault("countries.cache_ttl_hours", 24)
	v.SetDefault("countries.priority", []string{"KR", "US", "JP", "CN", "GB", "CA", "AU", "DE", "FR"})
	v.SetDefault("countries.timeout_secs", 15)
	v.SetDefault("countries.rate_limit", 5.0)
	v.SetDefault("geoip.base_url", "https://ipapi.co")
	v.SetDefault("geoip.timeout_secs", 5)
	v.SetDefault("geoip.rate_limit", 10.0)
	v.SetDefault("geoip.failure_threshold", 3)
	v.SetDefault("geoip.reset_timeout_secs", 60)
	v.SetDefault("region.auto_detect", true)
	v.SetDefault("region.force", "")
	v.SetDefault("region.ip_threshold", 0.8)
	v.SetDefault("region.timezone_threshold", 0.6)
	v.SetDefault("postcode.script_url", "https://t1.daumcdn.net/mapjsapi/bundle/postcode/prod/postcode.v2.js")
	v.SetDefault("postcode.timeout_secs", 10)
	v.SetDefault("direct.default_country", "KR")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)

// Validate checks the configuration for the given run mode ("serve" or "cli").
// All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, fmt.Sprintf("store.database_url is required for driver %s", c.Store.Driver))
		}
	case "redis":
		if c.Store.RedisURL == "" {
			problems = append(problems, "store.redis_url is required for driver redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of memory, sqlite, postgres, redis", c.Store.Driver))
	}

	if c.Countries.CacheKey == "" {
		problems = append(problems, "countries.cache_key is required")
	}
	if c.Countries.CacheTTLHours <= 0 {
		problems = append(problems, "countries.cache_ttl_hours must be > 0")
	}
	for _, code := range c.Countries.Priority {
		if !countryCodePattern.MatchString(code) {
			problems = append(problems, fmt.Sprintf("countries.priority entry %q is not an uppercase country code", code))
		}
	}

	for name, v := range map[string]float64{
		"region.ip_threshold":       c.Region.IPThreshold,
		"region.timezone_threshold": c.Region.TimezoneThreshold,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}
	if f := strings.TrimSpace(c.Region.Force); f != "" && f != "korea" && f != "global" {
		problems = append(problems, fmt.Sprintf("region.force %q must be korea or global", f))
	}

	if !countryCodePattern.MatchString(c.Direct.DefaultCountry) {
		problems = append(problems, fmt.Sprintf("direct.default_country %q is not an uppercase country code", c.Direct.DefaultCountry))
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
