package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the docextract server.
type Config struct {
	Server   ServerConfig
	Jobs     JobsConfig
	Analyzer AnalyzerConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port           int    `validate:"min=1,max=65535"`
	Env            string `validate:"required"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	MaxUploadBytes int64  `validate:"min=1"`
	CORSOrigins    []string
}

type JobsConfig struct {
	MaxConcurrent int `validate:"min=1"`
	Retention     time.Duration
	SweepInterval time.Duration
	IncludeText   bool
}

type AnalyzerConfig struct {
	Provider string `validate:"oneof=azure mock"`
	Timeout  time.Duration
	Azure    AzureConfig
}

type AzureConfig struct {
	Endpoint     string `validate:"omitempty,url"`
	Key          string
	Model        string `validate:"required"`
	APIVersion   string `validate:"required"`
	PollInterval time.Duration
}

// RedisConfig configures the optional analysis result cache. An empty URL
// disables caching.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// Enabled reports whether a Redis cache is configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// env maps config keys to the environment variables they are read from.
var env = map[string]string{
	"server.port":             "DOCEXTRACT_PORT",
	"server.env":              "DOCEXTRACT_ENV",
	"server.log_level":        "DOCEXTRACT_LOG_LEVEL",
	"server.max_upload_bytes": "DOCEXTRACT_MAX_UPLOAD_BYTES",
	"server.cors_origins":     "DOCEXTRACT_CORS_ORIGINS",
	"jobs.max_concurrent":     "DOCEXTRACT_MAX_CONCURRENT_JOBS",
	"jobs.retention":          "DOCEXTRACT_JOB_RETENTION",
	"jobs.sweep_interval":     "DOCEXTRACT_JOB_SWEEP_INTERVAL",
	"jobs.include_text":       "DOCEXTRACT_INCLUDE_TEXT",
	"analyzer.provider":       "DOCEXTRACT_ANALYZER",
	"analyzer.timeout":        "DOCEXTRACT_ANALYZE_TIMEOUT",
	"azure.endpoint":          "AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT",
	"azure.key":               "AZURE_DOCUMENT_INTELLIGENCE_KEY",
	"azure.model":             "AZURE_DOCUMENT_INTELLIGENCE_MODEL",
	"azure.api_version":       "AZURE_DOCUMENT_INTELLIGENCE_API_VERSION",
	"azure.poll_interval":     "AZURE_DOCUMENT_INTELLIGENCE_POLL_INTERVAL",
	"redis.url":               "REDIS_URL",
	"redis.cache_ttl":         "DOCEXTRACT_CACHE_TTL",
}

// Load reads configuration from environment variables (and an optional
// config.yaml in the working directory) and returns a validated Config.
// Returns an error with a descriptive message if any value is missing or invalid.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.cors_origins", "http://localhost:3000")
	v.SetDefault("jobs.max_concurrent", 4)
	v.SetDefault("jobs.retention", time.Hour)
	v.SetDefault("jobs.sweep_interval", 5*time.Minute)
	v.SetDefault("jobs.include_text", false)
	v.SetDefault("analyzer.provider", "azure")
	v.SetDefault("analyzer.timeout", 5*time.Minute)
	v.SetDefault("azure.model", "prebuilt-document")
	v.SetDefault("azure.api_version", "2023-07-31")
	v.SetDefault("azure.poll_interval", time.Second)
	v.SetDefault("redis.cache_ttl", 24*time.Hour)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			Env:            v.GetString("server.env"),
			LogLevel:       strings.ToLower(v.GetString("server.log_level")),
			MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
			CORSOrigins:    splitList(v.GetString("server.cors_origins")),
		},
		Jobs: JobsConfig{
			MaxConcurrent: v.GetInt("jobs.max_concurrent"),
			Retention:     v.GetDuration("jobs.retention"),
			SweepInterval: v.GetDuration("jobs.sweep_interval"),
			IncludeText:   v.GetBool("jobs.include_text"),
		},
		Analyzer: AnalyzerConfig{
			Provider: strings.ToLower(v.GetString("analyzer.provider")),
			Timeout:  v.GetDuration("analyzer.timeout"),
			Azure: AzureConfig{
				Endpoint:     v.GetString("azure.endpoint"),
				Key:          v.GetString("azure.key"),
				Model:        v.GetString("azure.model"),
				APIVersion:   v.GetString("azure.api_version"),
				PollInterval: v.GetDuration("azure.poll_interval"),
			},
		},
		Redis: RedisConfig{
			URL:      v.GetString("redis.url"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("DOCEXTRACT_JOB_RETENTION must be positive, got %s", c.Jobs.Retention)
	}
	if c.Jobs.SweepInterval <= 0 {
		return fmt.Errorf("DOCEXTRACT_JOB_SWEEP_INTERVAL must be positive, got %s", c.Jobs.SweepInterval)
	}
	if c.Analyzer.Timeout <= 0 {
		return fmt.Errorf("DOCEXTRACT_ANALYZE_TIMEOUT must be positive, got %s", c.Analyzer.Timeout)
	}

	if c.Analyzer.Provider == "azure" {
		if c.Analyzer.Azure.Endpoint == "" {
			return fmt.Errorf("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT is required when DOCEXTRACT_ANALYZER is azure")
		}
		if !strings.HasPrefix(c.Analyzer.Azure.Endpoint, "https://") && !strings.HasPrefix(c.Analyzer.Azure.Endpoint, "http://") {
			return fmt.Errorf("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT must start with http:// or https://, got %q", c.Analyzer.Azure.Endpoint)
		}
		if c.Analyzer.Azure.Key == "" {
			return fmt.Errorf("AZURE_DOCUMENT_INTELLIGENCE_KEY is required when DOCEXTRACT_ANALYZER is azure")
		}
	}

	if c.Redis.Enabled() {
		if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
			return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
		}
		if c.Redis.CacheTTL <= 0 {
			return fmt.Errorf("DOCEXTRACT_CACHE_TTL must be positive, got %s", c.Redis.CacheTTL)
		}
	}

	return nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
