package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// BreakerConfig holds circuit breaker tuning. As a top-level section it is
// the default policy; nested under a dependency it overrides the defaults
// for that dependency only.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
	HalfOpenMaxCalls int    `mapstructure:"half_open_max_calls"`
}

// DependencyConfig describes one downstream analysis service.
type DependencyConfig struct {
	Name     string         `mapstructure:"name"`
	URL      string         `mapstructure:"url"`
	Critical bool           `mapstructure:"critical"`
	Timeout  string         `mapstructure:"timeout"`
	Breaker  *BreakerConfig `mapstructure:"breaker"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type InsightConfig struct {
	DailyTokenLimit int64 `mapstructure:"daily_token_limit"`
}

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Breaker      BreakerConfig      `mapstructure:"breaker"`
	Dependencies []DependencyConfig `mapstructure:"dependencies"`
	HealthCheck  HealthCheckConfig  `mapstructure:"health_check"`
	Insight      InsightConfig      `mapstructure:"insight"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.recovery_timeout", "30s")
	viper.SetDefault("breaker.half_open_max_calls", 3)
	viper.SetDefault("health_check.interval", "10s")
	viper.SetDefault("insight.daily_token_limit", 1_000_000)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(validateBreakerConfig),
		),
		validation.Field(&c.Dependencies,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateDependencyConfig)),
			validation.By(validateUniqueNames),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Insight,
			validation.By(func(value interface{}) error {
				ic, ok := value.(InsightConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an InsightConfig")
				}
				if ic.DailyTokenLimit < 1 {
					return validation.NewError("validation_invalid_limit", "daily token limit must be at least 1")
				}
				return nil
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateBreakerConfig(value interface{}) error {
	var bc BreakerConfig
	switch v := value.(type) {
	case BreakerConfig:
		bc = v
	case *BreakerConfig:
		if v == nil {
			return nil
		}
		bc = *v
	default:
		return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
	}

	if bc.FailureThreshold < 1 {
		return validation.NewError("validation_invalid_threshold", "failure threshold must be at least 1")
	}

	if bc.HalfOpenMaxCalls < 1 {
		return validation.NewError("validation_invalid_half_open", "half open max calls must be at least 1")
	}

	return validateDuration(bc.RecoveryTimeout)
}

func validateDependencyConfig(value interface{}) error {
	dep, ok := value.(DependencyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DependencyConfig")
	}

	if dep.Name == "" {
		return validation.NewError("validation_empty_name", "dependency name cannot be empty")
	}

	if dep.URL == "" {
		return validation.NewError("validation_empty_url", "dependency URL cannot be empty")
	}

	parsedURL, err := url.Parse(dep.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if dep.Timeout != "" {
		if err := validateDuration(dep.Timeout); err != nil {
			return err
		}
	}

	if dep.Breaker != nil {
		if err := validateBreakerConfig(dep.Breaker); err != nil {
			return err
		}
	}

	return nil
}

func validateUniqueNames(value interface{}) error {
	deps, ok := value.([]DependencyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of DependencyConfig")
	}

	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		if seen[dep.Name] {
			return validation.NewError("validation_duplicate_name", "dependency names must be unique")
		}
		seen[dep.Name] = true
	}

	return nil
}
