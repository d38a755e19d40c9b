package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cascade    CascadeConfig    `yaml:"cascade" mapstructure:"cascade"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CascadeConfig configures source orchestration.
type CascadeConfig struct {
	SpacingMs         int    `yaml:"spacing_ms" mapstructure:"spacing_ms"`
	SourceTimeoutSecs int    `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	BudgetSecs        int    `yaml:"budget_secs" mapstructure:"budget_secs"`
	SourcesFile       string `yaml:"sources_file" mapstructure:"sources_file"`
}

// Spacing returns the minimum gap between source invocations.
func (c CascadeConfig) Spacing() time.Duration {
	return time.Duration(c.SpacingMs) * time.Millisecond
}

// SourceTimeout returns the per-source deadline.
func (c CascadeConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSecs) * time.Second
}

// Budget returns the overall source budget; zero means unbounded.
func (c CascadeConfig) Budget() time.Duration {
	return time.Duration(c.BudgetSecs) * time.Second
}

// RulesConfig configures the fallback rule engine.
type RulesConfig struct {
	MinVintage int `yaml:"min_vintage" mapstructure:"min_vintage"`
}

// ExtractConfig bounds extracted years relative to the vintage.
type ExtractConfig struct {
	MaxYearsBeforeVintage int `yaml:"max_years_before_vintage" mapstructure:"max_years_before_vintage"`
	MaxYearsAfterVintage  int `yaml:"max_years_after_vintage" mapstructure:"max_years_after_vintage"`
}

// CacheConfig configures the result cache backend.
type CacheConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	Shards   int    `yaml:"shards" mapstructure:"shards"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerHost  float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// BreakerConfig configures per-source circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CELLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("cascade.spacing_ms", 1000)
	v.SetDefault("cascade.source_timeout_secs", 15)
	v.SetDefault("cascade.budget_secs", 0)
	v.SetDefault("cascade.sources_file", "")
	v.SetDefault("rules.min_vintage", 1800)
	v.SetDefault("extract.max_years_before_vintage", 5)
	v.SetDefault("extract.max_years_after_vintage", 80)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.shards", 16)
	v.SetDefault("cache.max_conns", 4)
	v.SetDefault("cache.min_conns", 0)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; cellar-cli/1.0)")
	v.SetDefault("http.timeout_secs", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.max_body_bytes", 4<<20)
	v.SetDefault("http.rate_per_host", 1.0)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.reset_timeout_secs", 60)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a command mode needs. Modes are "resolve",
// "batch" and "serve"; every mode checks the shared cascade settings.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "resolve":
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			problems = append(problems, "batch.concurrency must be between 1 and 64")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Cache.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Cache.DSN == "" {
			problems = append(problems, "cache.dsn is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.driver %q is not one of memory, sqlite, postgres", c.Cache.Driver))
	}
	if c.Cascade.SpacingMs < 0 || c.Cascade.BudgetSecs < 0 {
		problems = append(problems, "cascade.spacing_ms and cascade.budget_secs must be >= 0")
	}
	if c.Cascade.SourceTimeoutSecs <= 0 {
		problems = append(problems, "cascade.source_timeout_secs must be > 0")
	}
	if c.Extract.MaxYearsBeforeVintage < 0 || c.Extract.MaxYearsAfterVintage <= 0 {
		problems = append(problems, "extract bounds must be >= 0 before and > 0 after the vintage")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
