package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML and ENV.
type Config struct {
	Version   string                    `mapstructure:"version"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Models    map[string]ModelConfig    `mapstructure:"models"`
	Agent     AgentConfig               `mapstructure:"agent"`
	Eval      EvalConfig                `mapstructure:"eval"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Server    ServerConfig              `mapstructure:"server"`
}

// ProviderConfig represents chat-completion provider configuration such as
// OpenAI, Azure OpenAI, or OpenAI-compatible gateways.
type ProviderConfig struct {
	Type       string        `mapstructure:"type"`        // openai, azure, custom
	BaseURL    string        `mapstructure:"base_url"`    // API base URL or Azure endpoint
	APIKey     string        `mapstructure:"api_key"`     // optional API key
	APIVersion string        `mapstructure:"api_version"` // Azure api-version query parameter
	Deployment string        `mapstructure:"deployment"`  // Azure deployment name
	Timeout    time.Duration `mapstructure:"timeout"`     // request timeout
}

// ModelConfig binds a logical model name to a provider entry and model parameters.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Default     bool    `mapstructure:"default"`
}

// AgentConfig describes chat agent runtime parameters.
type AgentConfig struct {
	Name         string  `mapstructure:"name"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	MaxHistory   int     `mapstructure:"max_history"` // message bound per session, 0 = unbounded
}

// EvalConfig configures the evaluation harness.
type EvalConfig struct {
	RegistryPath string  `mapstructure:"registry_path"` // root of evals/, modelgraded/, data/
	PassingScore float64 `mapstructure:"passing_score"` // per-sample pass threshold
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// ServerConfig describes daemon settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Transport      string `mapstructure:"transport"` // connect or ndjson
}

// Load reads configuration from the provided path or defaults to configs/config.yaml.
// Environment variables override file values (prefix: PLANFORGE_, dots replaced with underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PLANFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			v.SetConfigName("config.example")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates sensible defaults for optional fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("agent.name", "Lesson Plan Designer")
	v.SetDefault("agent.temperature", 0.7)
	v.SetDefault("agent.max_tokens", 1024)
	v.SetDefault("agent.max_history", 50)

	v.SetDefault("eval.registry_path", "registry")
	v.SetDefault("eval.passing_score", 0.6)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.transport", "connect")
}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}

	if len(c.Models) == 0 {
		return errors.New("at least one model must be defined")
	}

	for name, p := range c.Providers {
		switch p.Type {
		case "":
			return fmt.Errorf("provider %q must define type", name)
		case "openai", "azure", "custom":
		default:
			return fmt.Errorf("provider %q has unknown type %q", name, p.Type)
		}
		if p.Type == "azure" && strings.TrimSpace(p.BaseURL) == "" {
			return fmt.Errorf("provider %q requires base_url for azure type", name)
		}
	}

	var defaultFound bool
	for name, m := range c.Models {
		if m.Provider == "" {
			return fmt.Errorf("model %q must reference provider", name)
		}

		if _, ok := c.Providers[m.Provider]; !ok {
			return fmt.Errorf("model %q references unknown provider %q", name, m.Provider)
		}

		if m.Temperature < 0 || m.Temperature > 2 {
			return fmt.Errorf("model %q temperature must be within [0,2]", name)
		}

		if m.MaxTokens < 0 {
			return fmt.Errorf("model %q max_tokens cannot be negative", name)
		}

		if m.Default {
			defaultFound = true
		}
	}

	if !defaultFound {
		return errors.New("at least one model should be marked as default")
	}

	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		return errors.New("agent.temperature must be within [0,2]")
	}

	if c.Agent.MaxTokens < 0 {
		return errors.New("agent.max_tokens must be >= 0")
	}

	if c.Agent.MaxHistory < 0 {
		return errors.New("agent.max_history must be >= 0")
	}

	if c.Eval.PassingScore < 0 || c.Eval.PassingScore > 1 {
		return errors.New("eval.passing_score must be within [0,1]")
	}

	switch strings.ToLower(strings.TrimSpace(c.Server.Transport)) {
	case "", "connect", "ndjson":
	default:
		return fmt.Errorf("server.transport must be one of connect or ndjson, got %q", c.Server.Transport)
	}

	return nil
}
