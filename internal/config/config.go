// Package config loads attack-tui settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ethanolivertroy/attack-tui/internal/api"
)

// EnvPrefix prefixes every environment override, e.g. ATTACK_TUI_LOGGER_LEVEL
const EnvPrefix = "ATTACK_TUI"

// Config holds all configuration for the application
type Config struct {
	Sources SourcesConfig `mapstructure:"sources"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	API     APIConfig     `mapstructure:"api"`
	Agent   AgentConfig   `mapstructure:"agent"`
	LLM     LLMConfig     `mapstructure:"llm"`
}

type SourcesConfig struct {
	Enterprise string `mapstructure:"enterprise"`
	PreAttack  string `mapstructure:"pre_attack"`
	Mobile     string `mapstructure:"mobile"`
	Tactics    string `mapstructure:"tactics"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
	// File receives logs while the TUI owns the terminal. Empty disables TUI logging.
	File string `mapstructure:"file"`
}

type APIConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port for the REST listener
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AgentConfig struct {
	Port int `mapstructure:"port"`
}

type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	OllamaURL      string `mapstructure:"ollama_url"`
	VertexProject  string `mapstructure:"vertex_project"`
	VertexLocation string `mapstructure:"vertex_location"`
}

func setDefaults(v *viper.Viper) {
	d := api.DefaultSources()
	v.SetDefault("sources.enterprise", d.Enterprise)
	v.SetDefault("sources.pre_attack", d.PreAttack)
	v.SetDefault("sources.mobile", d.Mobile)
	v.SetDefault("sources.tactics", d.Tactics)

	v.SetDefault("http.timeout", 60*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)
	v.SetDefault("logger.file", "")

	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8090)
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.read_timeout", 15*time.Second)
	v.SetDefault("api.write_timeout", 60*time.Second)

	v.SetDefault("agent.port", 8001)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.vertex_project", "")
	v.SetDefault("llm.vertex_location", "")
}

// Load reads configuration. An explicit configPath must exist; otherwise
// attack-tui.yaml is looked up in the usual places and is optional.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("attack-tui")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "attack-tui"))
		}
		v.AddConfigPath("/etc/attack-tui")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// provider-specific variables used by the LLM SDKs
	_ = v.BindEnv("llm.provider", EnvPrefix+"_LLM_PROVIDER", "LLM_PROVIDER")
	_ = v.BindEnv("llm.model", EnvPrefix+"_LLM_MODEL", "LLM_MODEL")
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("llm.ollama_url", EnvPrefix+"_LLM_OLLAMA_URL", "OLLAMA_URL")
	_ = v.BindEnv("llm.vertex_project", EnvPrefix+"_LLM_VERTEX_PROJECT", "VERTEX_PROJECT")
	_ = v.BindEnv("llm.vertex_location", EnvPrefix+"_LLM_VERTEX_LOCATION", "VERTEX_LOCATION")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	if c.Sources.Enterprise == "" || c.Sources.PreAttack == "" || c.Sources.Mobile == "" || c.Sources.Tactics == "" {
		return errors.New("config: all four sources must be set")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("config: http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port out of range: %d", c.API.Port)
	}
	return nil
}

// Apply points the client at the configured dataset locations
func (c *Config) Apply(client *api.Client) {
	client.SetURLs(c.Sources.Enterprise, c.Sources.PreAttack, c.Sources.Mobile, c.Sources.Tactics)
}
