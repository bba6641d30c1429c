package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/signalforge/internal/analysis/options"
	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/logger"
	"github.com/newthinker/signalforge/internal/pipeline"
	"github.com/newthinker/signalforge/internal/scorer"
	"github.com/newthinker/signalforge/internal/tracing"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Providers ProvidersConfig `mapstructure:"providers"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Store     StoreConfig     `mapstructure:"store"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Log       logger.Config   `mapstructure:"log"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	APIKey  string `mapstructure:"api_key"`
	Explain bool   `mapstructure:"explain"` // attach an explanation to API responses
}

// PipelineConfig holds scoring and timing parameters
type PipelineConfig struct {
	Timeout            time.Duration     `mapstructure:"timeout"`
	CallTimeout        time.Duration     `mapstructure:"call_timeout"`
	HistoryDays        int               `mapstructure:"history_days"`
	OptionExpiries     int               `mapstructure:"option_expiries"`
	RiskFreeRate       float64           `mapstructure:"risk_free_rate"`
	OptionSide         string            `mapstructure:"option_side"` // "short" or "long"
	PEThreshold        float64           `mapstructure:"pe_threshold"`
	InsiderWindowDays  int               `mapstructure:"insider_window_days"`
	CongressWindowDays int               `mapstructure:"congress_window_days"`
	Weights            scorer.Weights    `mapstructure:"weights"`
	Thresholds         scorer.Thresholds `mapstructure:"thresholds"`
}

// ProvidersConfig holds per-category priority and per-provider settings
type ProvidersConfig struct {
	Order        map[string][]string `mapstructure:"order"`
	Yahoo        ProviderConfig      `mapstructure:"yahoo"`
	FMP          ProviderConfig      `mapstructure:"fmp"`
	AlphaVantage ProviderConfig      `mapstructure:"alphavantage"`
	Quiver       ProviderConfig      `mapstructure:"quiver"`
}

type ProviderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	RateLimit int    `mapstructure:"rate_limit"` // requests/second, 0 uses the client default
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Claude   ClaudeConfig  `mapstructure:"claude"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig selects where produced signals are archived. An empty type
// disables archiving.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// StoreConfig bounds the in-memory recent-signal store
type StoreConfig struct {
	MaxSignals int `mapstructure:"max_signals"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyCredentialEnv()
	return cfg, nil
}

// ApplyCredentialEnv fills empty credentials from the conventional
// environment variables (FMP_API_KEY, ALPHAVANTAGE_API_KEY, QUIVER_API_KEY,
// ANTHROPIC_API_KEY, OPENAI_API_KEY).
func (c *Config) ApplyCredentialEnv() {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&c.Providers.FMP.APIKey, "FMP_API_KEY")
	fill(&c.Providers.AlphaVantage.APIKey, "ALPHAVANTAGE_API_KEY")
	fill(&c.Providers.Quiver.APIKey, "QUIVER_API_KEY")
	fill(&c.LLM.Claude.APIKey, "ANTHROPIC_API_KEY")
	fill(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
}

// DefaultOrder returns the default provider priority per data category
func DefaultOrder() map[string][]string {
	return map[string][]string{
		"price_history": {"yahoo", "alphavantage"},
		"fundamentals":  {"fmp", "alphavantage", "yahoo"},
		"options_chain": {"yahoo"},
		"insider":       {"yahoo", "fmp"},
		"institutional": {"yahoo", "fmp"},
		"congress":      {"quiver"},
	}
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Pipeline: PipelineConfig{
			Timeout:            30 * time.Second,
			CallTimeout:        10 * time.Second,
			HistoryDays:        400,
			OptionExpiries:     1,
			RiskFreeRate:       options.DefaultRiskFreeRate,
			OptionSide:         string(options.Short),
			PEThreshold:        25,
			InsiderWindowDays:  90,
			CongressWindowDays: 30,
			Weights:            scorer.DefaultWeights(),
			Thresholds:         scorer.DefaultThresholds(),
		},
		Providers: ProvidersConfig{
			Order:        DefaultOrder(),
			Yahoo:        ProviderConfig{Enabled: true},
			FMP:          ProviderConfig{Enabled: true},
			AlphaVantage: ProviderConfig{Enabled: true},
			Quiver:       ProviderConfig{Enabled: true},
		},
		LLM: LLMConfig{
			Timeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Store: StoreConfig{
			MaxSignals: 1000,
		},
		Tracing: tracing.Config{
			ServiceName: "signalforge",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if err := c.Pipeline.validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	for category, ids := range c.Providers.Order {
		if !knownCategory(category) {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown data category %q in providers.order", category))
		}
		for _, id := range ids {
			if !knownProvider(id) {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("unknown provider %q in providers.order.%s", id, category))
			}
		}
	}

	switch c.Archive.Type {
	case "", "localfs", "s3":
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}
	if c.Archive.Type == "localfs" && c.Archive.Path == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive path required for localfs"))
	}
	if c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive s3 bucket required for s3"))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	return nil
}

func (p PipelineConfig) validate() error {
	if p.Timeout <= 0 || p.CallTimeout <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive, got timeout=%s call_timeout=%s", p.Timeout, p.CallTimeout)
	}
	w := p.Weights
	if w.Technical < 0 || w.Fundamental < 0 || w.Options < 0 || w.SmartMoney < 0 {
		return fmt.Errorf("category weights cannot be negative: %+v", w)
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("category weights must have a positive sum")
	}
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if p.RiskFreeRate < 0 || p.RiskFreeRate > 1 {
		return fmt.Errorf("risk_free_rate must be between 0 and 1, got %f", p.RiskFreeRate)
	}
	switch options.Side(p.OptionSide) {
	case "", options.Short, options.Long:
	default:
		return fmt.Errorf("option_side must be short or long, got %q", p.OptionSide)
	}
	if p.PEThreshold <= 0 {
		return fmt.Errorf("pe_threshold must be positive, got %f", p.PEThreshold)
	}
	if p.InsiderWindowDays < 0 || p.CongressWindowDays < 0 || p.HistoryDays < 0 || p.OptionExpiries < 0 {
		return fmt.Errorf("windows, history_days and option_expiries cannot be negative")
	}
	return nil
}

// PipelineOptions converts the pipeline section into pipeline.Config
func (c *Config) PipelineOptions() pipeline.Config {
	p := c.Pipeline
	return pipeline.Config{
		Timeout:        p.Timeout,
		Weights:        p.Weights,
		Thresholds:     p.Thresholds,
		RiskFreeRate:   p.RiskFreeRate,
		OptionSide:     options.Side(p.OptionSide),
		PEThreshold:    p.PEThreshold,
		InsiderWindow:  days(p.InsiderWindowDays),
		CongressWindow: days(p.CongressWindowDays),
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
