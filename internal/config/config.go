package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"causalbench/domain/scm"
	"causalbench/internal/builder"
	"causalbench/internal/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CAUSALBENCH_"

var validate = validator.New()

// Config represents the complete application configuration
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BuildConfig mirrors builder.Options in file form
type BuildConfig struct {
	N                    int     `yaml:"n" validate:"gte=0"`
	Seed                 int64   `yaml:"seed"`
	SCMKinds             string  `yaml:"scm_kinds"`
	BalanceLabels        bool    `yaml:"balance_labels"`
	StratifyMotifLabel   bool    `yaml:"stratify_motif_label"`
	NPromptObsSamples    int     `yaml:"n_prompt_obs_samples" validate:"gt=0"`
	NObsSamples          int     `yaml:"n_obs_samples" validate:"gt=0"`
	NMCSamples           int     `yaml:"n_mc_samples" validate:"gt=0"`
	Tol                  float64 `yaml:"tol" validate:"gte=0"`
	EqMargin             float64 `yaml:"eq_margin" validate:"gte=0"`
	DirMargin            float64 `yaml:"dir_margin" validate:"gte=0"`
	DiscardAmbiguous     bool    `yaml:"discard_ambiguous"`
	DoValue              float64 `yaml:"do_value"`
	XBand                float64 `yaml:"x_band" validate:"gt=0"`
	MaxAttemptMultiplier int     `yaml:"max_attempt_multiplier" validate:"gt=0"`
	Workers              int     `yaml:"workers" validate:"gte=0,lte=256"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=ERROR WARN INFO DEBUG TRACE error warn info debug trace"`
}

// MetricsConfig controls the build telemetry dump
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	opts := builder.DefaultOptions()
	return &Config{
		Build: BuildConfig{
			N:                    opts.N,
			Seed:                 opts.Seed,
			SCMKinds:             "confounding",
			BalanceLabels:        opts.BalanceLabels,
			StratifyMotifLabel:   opts.StratifyMotifLabel,
			NPromptObsSamples:    opts.NPromptObsSamples,
			NObsSamples:          opts.NObsSamples,
			NMCSamples:           opts.NMCSamples,
			Tol:                  opts.Tol,
			EqMargin:             opts.EqMargin,
			DirMargin:            opts.DirMargin,
			DiscardAmbiguous:     opts.DiscardAmbiguous,
			DoValue:              opts.DoValue,
			XBand:                opts.XBand,
			MaxAttemptMultiplier: opts.MaxAttemptMultiplier,
			Workers:              opts.Workers,
		},
		Logging: LoggingConfig{Level: "INFO"},
		Metrics: MetricsConfig{Path: "causalbench_metrics.prom"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and CAUSALBENCH_* environment overrides, then validates it
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigInvalidf(err, "failed to read config file %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.ConfigInvalidf(err, "failed to parse config file %s", path)
	}
	return nil
}

func applyEnv(config *Config) {
	b := &config.Build
	b.N = getEnvIntOrDefault(EnvPrefix+"N", b.N)
	b.Seed = getEnvInt64OrDefault(EnvPrefix+"SEED", b.Seed)
	b.SCMKinds = getEnvOrDefault(EnvPrefix+"SCM_KINDS", b.SCMKinds)
	b.BalanceLabels = getEnvBoolOrDefault(EnvPrefix+"BALANCE_LABELS", b.BalanceLabels)
	b.StratifyMotifLabel = getEnvBoolOrDefault(EnvPrefix+"STRATIFY_MOTIF_LABEL", b.StratifyMotifLabel)
	b.NPromptObsSamples = getEnvIntOrDefault(EnvPrefix+"N_PROMPT_OBS_SAMPLES", b.NPromptObsSamples)
	b.NObsSamples = getEnvIntOrDefault(EnvPrefix+"N_OBS_SAMPLES", b.NObsSamples)
	b.NMCSamples = getEnvIntOrDefault(EnvPrefix+"N_MC_SAMPLES", b.NMCSamples)
	b.Tol = getEnvFloatOrDefault(EnvPrefix+"TOL", b.Tol)
	b.EqMargin = getEnvFloatOrDefault(EnvPrefix+"EQ_MARGIN", b.EqMargin)
	b.DirMargin = getEnvFloatOrDefault(EnvPrefix+"DIR_MARGIN", b.DirMargin)
	b.DiscardAmbiguous = getEnvBoolOrDefault(EnvPrefix+"DISCARD_AMBIGUOUS", b.DiscardAmbiguous)
	b.DoValue = getEnvFloatOrDefault(EnvPrefix+"DO_VALUE", b.DoValue)
	b.XBand = getEnvFloatOrDefault(EnvPrefix+"X_BAND", b.XBand)
	b.MaxAttemptMultiplier = getEnvIntOrDefault(EnvPrefix+"MAX_ATTEMPT_MULTIPLIER", b.MaxAttemptMultiplier)
	b.Workers = getEnvIntOrDefault(EnvPrefix+"WORKERS", b.Workers)

	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", config.Logging.Level)

	config.Metrics.Enabled = getEnvBoolOrDefault(EnvPrefix+"METRICS_ENABLED", config.Metrics.Enabled)
	config.Metrics.Path = getEnvOrDefault(EnvPrefix+"METRICS_PATH", config.Metrics.Path)
}

// Validate checks struct constraints and the motif list
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if _, err := scm.ParseMotifKinds(c.Build.SCMKinds); err != nil {
		return errors.ConfigInvalidf(err, "build.scm_kinds")
	}
	return nil
}

// BuildOptions converts the build section to builder options
func (c *Config) BuildOptions() (builder.Options, error) {
	kinds, err := scm.ParseMotifKinds(c.Build.SCMKinds)
	if err != nil {
		return builder.Options{}, errors.ConfigInvalidf(err, "build.scm_kinds")
	}
	b := c.Build
	return builder.Options{
		N:                    b.N,
		Seed:                 b.Seed,
		SCMKinds:             kinds,
		BalanceLabels:        b.BalanceLabels,
		StratifyMotifLabel:   b.StratifyMotifLabel,
		NPromptObsSamples:    b.NPromptObsSamples,
		NObsSamples:          b.NObsSamples,
		NMCSamples:           b.NMCSamples,
		Tol:                  b.Tol,
		EqMargin:             b.EqMargin,
		DirMargin:            b.DirMargin,
		DiscardAmbiguous:     b.DiscardAmbiguous,
		DoValue:              b.DoValue,
		XBand:                b.XBand,
		MaxAttemptMultiplier: b.MaxAttemptMultiplier,
		Workers:              b.Workers,
	}, nil
}

// formatValidationError reports the first failed constraint
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return errors.ConfigInvalidf(err, "invalid configuration")
	}
	e := validationErrs[0]
	field := e.Namespace()
	switch e.Tag() {
	case "required", "required_if":
		return errors.ConfigInvalid(fmt.Sprintf("%s: field is required", field))
	case "gt":
		return errors.ConfigInvalid(fmt.Sprintf("%s: must be greater than %s, got %v", field, e.Param(), e.Value()))
	case "gte":
		return errors.ConfigInvalid(fmt.Sprintf("%s: must be at least %s, got %v", field, e.Param(), e.Value()))
	case "lte":
		return errors.ConfigInvalid(fmt.Sprintf("%s: must not exceed %s, got %v", field, e.Param(), e.Value()))
	case "oneof":
		return errors.ConfigInvalid(fmt.Sprintf("%s: must be one of [%s], got %v", field, e.Param(), e.Value()))
	}
	return errors.ConfigInvalid(fmt.Sprintf("%s: validation failed (%s)", field, e.Tag()))
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
