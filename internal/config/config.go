// Package config loads command line settings from flags, DISTMATRIX_*
// environment variables (optionally seeded from a .env file) and an optional
// distmatrix.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/csvio"
	"github.com/utkarsh5026/distmatrix/matrix"
)

// EnvPrefix prefixes every environment variable, e.g. DISTMATRIX_WORKERS.
const EnvPrefix = "DISTMATRIX"

// Configuration keys. Flags use the same names.
const (
	InputKey         = "input"
	OutputKey        = "output"
	StrategyKey      = "strategy"
	FormulaKey       = "formula"
	RadiusKey        = "radius-km"
	WorkersKey       = "workers"
	BufferKey        = "buffer"
	FailurePolicyKey = "failure-policy"
	RateLimitKey     = "rate-limit"
	CPUAffinityKey   = "cpu-affinity"
	DatabaseURLKey   = "database-url"
	MetricsAddrKey   = "metrics-addr"
	LogFormatKey     = "log-format"
	LogLevelKey      = "log-level"
)

// Config is the raw, unvalidated configuration.
type Config struct {
	Input         string
	Output        string
	Strategy      string
	Formula       string
	RadiusKm      float64
	Workers       int
	Buffer        int
	FailurePolicy string
	RateLimit     float64
	CPUAffinity   bool
	DatabaseURL   string
	MetricsAddr   string
	LogFormat     string
	LogLevel      string
}

// Setup prepares v: defaults, environment binding and the optional config
// file search path. It returns an error only for an unreadable config file
// that does exist.
func Setup(v *viper.Viper) error {
	v.SetConfigName("distmatrix")
	v.SetConfigType("yaml")
	for _, path := range []string{"/etc/distmatrix", "$HOME/.distmatrix", "."} {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(StrategyKey, matrix.Pooled.String())
	v.SetDefault(FormulaKey, geo.Haversine.String())
	v.SetDefault(RadiusKey, geo.DefaultEarthRadiusKm)
	v.SetDefault(WorkersKey, runtime.GOMAXPROCS(0))
	v.SetDefault(FailurePolicyKey, matrix.FailFast.String())
	v.SetDefault(LogFormatKey, "text")
	v.SetDefault(LogLevelKey, "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads environment variables from the given files, or ".env"
// when none are named. Missing files are ignored; variables already set in
// the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromViper reads every key from v.
func FromViper(v *viper.Viper) Config {
	return Config{
		Input:         v.GetString(InputKey),
		Output:        v.GetString(OutputKey),
		Strategy:      v.GetString(StrategyKey),
		Formula:       v.GetString(FormulaKey),
		RadiusKm:      v.GetFloat64(RadiusKey),
		Workers:       v.GetInt(WorkersKey),
		Buffer:        v.GetInt(BufferKey),
		FailurePolicy: v.GetString(FailurePolicyKey),
		RateLimit:     v.GetFloat64(RateLimitKey),
		CPUAffinity:   v.GetBool(CPUAffinityKey),
		DatabaseURL:   v.GetString(DatabaseURLKey),
		MetricsAddr:   v.GetString(MetricsAddrKey),
		LogFormat:     v.GetString(LogFormatKey),
		LogLevel:      v.GetString(LogLevelKey),
	}
}

// Settings is a validated Config with every enumeration parsed.
type Settings struct {
	Config

	Strategy   matrix.Strategy
	Calculator geo.Calculator
	Policy     matrix.FailurePolicy
	OutputPath string
}

// Resolve validates c. Problems come back as *geo.ValidationError.
func (c Config) Resolve() (Settings, error) {
	s := Settings{Config: c}

	if c.Input == "" {
		return s, &geo.ValidationError{Field: InputKey, Reason: "is required"}
	}

	strategy, err := matrix.ParseStrategy(c.Strategy)
	if err != nil {
		return s, &geo.ValidationError{Field: StrategyKey, Value: c.Strategy, Reason: err.Error()}
	}
	formula, err := geo.ParseFormula(c.Formula)
	if err != nil {
		return s, err
	}
	policy, err := matrix.ParseFailurePolicy(c.FailurePolicy)
	if err != nil {
		return s, &geo.ValidationError{Field: FailurePolicyKey, Value: c.FailurePolicy, Reason: err.Error()}
	}

	switch {
	case c.RadiusKm <= 0:
		return s, &geo.ValidationError{Field: RadiusKey, Value: c.RadiusKm, Reason: "must be positive"}
	case c.Workers < 1:
		return s, &geo.ValidationError{Field: WorkersKey, Value: c.Workers, Reason: "must be at least 1"}
	case c.Buffer < 0:
		return s, &geo.ValidationError{Field: BufferKey, Value: c.Buffer, Reason: "must not be negative"}
	case c.RateLimit < 0:
		return s, &geo.ValidationError{Field: RateLimitKey, Value: c.RateLimit, Reason: "must not be negative"}
	}

	s.Strategy = strategy
	s.Calculator = geo.Calculator{Formula: formula, RadiusKm: c.RadiusKm}
	s.Policy = policy
	s.OutputPath = c.Output
	if s.OutputPath == "" {
		s.OutputPath = csvio.DefaultOutputPath(c.Input)
	}
	return s, nil
}
