package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Environment variables override file values, e.g. INDEXOPT_SEARCH_MAX_STEPS
const envPrefix = "INDEXOPT"

type Config struct {
	Env     string `validate:"oneof=development production"`
	Log     LogConfig
	Search  SearchConfig
	Metrics MetricsConfig
}

type LogConfig struct {
	Level  string
	Format string `validate:"oneof=json console"`
}

// SearchConfig bounds every optimizer run.
type SearchConfig struct {
	DefaultLimit         int    `validate:"min=1"`
	MaxLimit             int    `validate:"gtefield=DefaultLimit"`
	MaxSteps             uint64 // 0 disables the step budget
	Timeout              time.Duration
	EnumerationThreshold int    `validate:"min=1"`
	UnknownCourses       string `validate:"oneof=skip reject"`
}

type MetricsConfig struct {
	Textfile string // Prometheus text exposition written after each CLI run when set
}

// Load reads an optional YAML/JSON file at path, then applies INDEXOPT_* environment overrides
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
		}
	}

	cfg := &Config{
		Env: v.GetString("env"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Search: SearchConfig{
			DefaultLimit:         v.GetInt("search.default_limit"),
			MaxLimit:             v.GetInt("search.max_limit"),
			MaxSteps:             v.GetUint64("search.max_steps"),
			Timeout:              v.GetDuration("search.timeout"),
			EnumerationThreshold: v.GetInt("search.enumeration_threshold"),
			UnknownCourses:       strings.ToLower(v.GetString("search.unknown_courses")),
		},
		Metrics: MetricsConfig{
			Textfile: v.GetString("metrics.textfile"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("search.default_limit", 1)
	v.SetDefault("search.max_limit", 50)
	v.SetDefault("search.max_steps", 2_000_000)
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.enumeration_threshold", 1000)
	v.SetDefault("search.unknown_courses", "skip")
	v.SetDefault("metrics.textfile", "")
}
