// Package config loads CodeSphere settings from codesphere.yaml, CODESPHERE_*
// environment variables and built-in defaults, in that order of precedence
// (environment wins over the file).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/sakif/codesphere/internal/language"
)

// Backends accepted by executor.backend.
const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// ExecTimeout replaces executor.timeout when it is zero, so the HTTP
	// server never runs a program without a deadline.
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type ExecutorConfig struct {
	Backend  string        `mapstructure:"backend"`
	WorkRoot string        `mapstructure:"work_root"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// MaxOutput is a size such as "1 MiB" or "512kB".
	MaxOutput string `mapstructure:"max_output"`
}

type DockerConfig struct {
	Images      map[string]string `mapstructure:"images"`
	MemoryLimit string            `mapstructure:"memory_limit"`
	CPULimit    float64           `mapstructure:"cpu_limit"`
	PoolSize    int               `mapstructure:"pool_size"`
}

type AuthConfig struct {
	// TokenSecret enables bearer token checks on /api when set.
	TokenSecret string `mapstructure:"token_secret"`
}

type Config struct {
	Log        LogConfig                    `mapstructure:"log"`
	Server     ServerConfig                 `mapstructure:"server"`
	Storage    StorageConfig                `mapstructure:"storage"`
	Executor   ExecutorConfig               `mapstructure:"executor"`
	Toolchains map[string]language.Override `mapstructure:"toolchains"`
	Docker     DockerConfig                 `mapstructure:"docker"`
	Auth       AuthConfig                   `mapstructure:"auth"`
}

// Load reads the configuration. path names an explicit file; when empty,
// codesphere.yaml is searched in . and $HOME/.codesphere and a missing file
// is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("codesphere")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.codesphere")
	}

	v.SetEnvPrefix("CODESPHERE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.exec_timeout", 5*time.Second)
	v.SetDefault("storage.db_path", filepath.Join(home, ".codesphere", "codesphere.db"))
	v.SetDefault("executor.backend", BackendLocal)
	v.SetDefault("executor.work_root", "")
	v.SetDefault("executor.timeout", time.Duration(0))
	v.SetDefault("executor.max_output", "1 MiB")
	v.SetDefault("docker.memory_limit", "256 MiB")
	v.SetDefault("docker.cpu_limit", 0.5)
	v.SetDefault("docker.pool_size", 2)
	v.SetDefault("auth.token_secret", "")
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Executor.Backend {
	case BackendLocal, BackendDocker:
	default:
		return fmt.Errorf("config: executor.backend must be %q or %q, got %q",
			BackendLocal, BackendDocker, c.Executor.Backend)
	}
	if c.Executor.Timeout < 0 {
		return fmt.Errorf("config: executor.timeout must not be negative")
	}
	if _, err := c.MaxOutputBytes(); err != nil {
		return err
	}
	if _, err := c.DockerMemoryBytes(); err != nil {
		return err
	}
	if _, err := language.NewRegistry(c.Toolchains); err != nil {
		return fmt.Errorf("config: toolchains: %w", err)
	}
	for tag := range c.Docker.Images {
		if _, ok := language.Parse(tag); !ok {
			return fmt.Errorf("config: docker.images: unknown language %q", tag)
		}
	}
	return nil
}

// MaxOutputBytes parses executor.max_output.
func (c *Config) MaxOutputBytes() (int, error) {
	n, err := humanize.ParseBytes(c.Executor.MaxOutput)
	if err != nil {
		return 0, fmt.Errorf("config: executor.max_output: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("config: executor.max_output must be positive")
	}
	return int(n), nil
}

// DockerMemoryBytes parses docker.memory_limit.
func (c *Config) DockerMemoryBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Docker.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("config: docker.memory_limit: %w", err)
	}
	return int64(n), nil
}

// DockerImages returns docker.images keyed by canonical language.
func (c *Config) DockerImages() map[language.Language]string {
	out := make(map[language.Language]string, len(c.Docker.Images))
	for tag, image := range c.Docker.Images {
		if lang, ok := language.Parse(tag); ok {
			out[lang] = image
		}
	}
	return out
}
