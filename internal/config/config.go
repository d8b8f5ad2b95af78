package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

const envPrefix = "SANCTUARY"

// Config holds all configuration for the sanctuary binaries.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Session  SessionConfig  `mapstructure:"session"`
	Document DocumentConfig `mapstructure:"document"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// LLMConfig holds provider configuration
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SessionConfig selects where server sessions live.
type SessionConfig struct {
	Store         string        `mapstructure:"store"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type DocumentConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

type UIConfig struct {
	Language string `mapstructure:"language"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML/TOML/JSON path. Empty searches for
	// config.yaml in the working directory and ./config.
	ConfigFile string
	// EnvFile is loaded into the process environment before anything else.
	// Variables already set win. Defaults to ".env"; a missing file is fine.
	EnvFile string
}

// Load loads configuration from the env file, config file and environment.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Common provider variable names are honoured as fallbacks.
	_ = v.BindEnv("llm.api_key", envPrefix+"_LLM_API_KEY", "GEMINI_API_KEY", "API_KEY")
	_ = v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
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

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "3m")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("llm.provider", llm.ProviderGemini)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", "2m")

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_password", "")
	v.SetDefault("session.redis_db", 0)

	v.SetDefault("document.max_bytes", document.DefaultMaxBytes)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.format", "json")

	v.SetDefault("ui.language", string(i18n.English))
}

// Validate rejects values the binaries cannot act on.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not one of gemini, openai", c.LLM.Provider))
	}
	switch strings.ToLower(c.Session.Store) {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("session.store %q is not one of memory, redis", c.Session.Store))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not one of json, console", c.Log.Format))
	}
	if _, err := i18n.Parse(c.UI.Language); err != nil {
		problems = append(problems, fmt.Sprintf("ui.language: %v", err))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.LLM.Timeout <= 0 {
		problems = append(problems, "llm.timeout must be positive")
	}
	if c.Document.MaxBytes <= 0 {
		problems = append(problems, "document.max_bytes must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Language returns the configured default language.
func (c *Config) Language() i18n.Language {
	lang, err := i18n.Parse(c.UI.Language)
	if err != nil {
		return i18n.English
	}
	return lang
}

// ClientConfig converts the llm section for llm.New.
func (c LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		Provider: c.Provider,
		Model:    c.Model,
		Endpoint: c.Endpoint,
		APIKey:   c.APIKey,
	}
}
