/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	envconfig "github.com/gobeaver/beaver-kit/config"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/digest"
	"github.com/ssargent/characterize/pkg/logging"
	"github.com/ssargent/characterize/pkg/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHARZ_"

// Config represents the characterize configuration
type Config struct {
	DataDir      string       `yaml:"data_dir"`
	Port         int          `yaml:"port"`
	Bind         string       `yaml:"bind"`
	Security     Security     `yaml:"security"`
	Logging      Logging      `yaml:"logging"`
	Reader       Reader       `yaml:"reader"`
	Characterize Characterize `yaml:"characterize"`
	Store        Store        `yaml:"store"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Reader controls how sources are read
type Reader struct {
	BufferKind string `yaml:"buffer_kind"`
	BufferSize int    `yaml:"buffer_size"`
}

// Characterize tunes the engine
type Characterize struct {
	FailFastLimit   int      `yaml:"fail_fast_limit"`
	Workers         int      `yaml:"workers"`
	MaxNesting      int      `yaml:"max_nesting"`
	TempDir         string   `yaml:"temp_dir"`
	Digests         []string `yaml:"digests,omitempty"`
	MaxInflatedSize int64    `yaml:"max_inflated_size"`
}

// Store contains report store configuration
type Store struct {
	Compression string `yaml:"compression"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Reader: Reader{
			BufferKind: bytereader.Native.String(),
			BufferSize: bytereader.DefaultBufferSize,
		},
		Characterize: Characterize{
			FailFastLimit: 100,
			Workers:       1,
			MaxNesting:    8,
		},
		Store: Store{
			Compression: "zstd",
		},
	}
}

// Validate rejects values the engine cannot use
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return err
	}
	if _, err := bytereader.ParseBufferKind(c.Reader.BufferKind); err != nil {
		return err
	}
	if c.Reader.BufferSize < 0 {
		return fmt.Errorf("invalid reader buffer size %d", c.Reader.BufferSize)
	}
	if c.Characterize.FailFastLimit < 0 {
		return fmt.Errorf("invalid fail fast limit %d", c.Characterize.FailFastLimit)
	}
	if c.Characterize.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", c.Characterize.Workers)
	}
	if c.Characterize.MaxNesting < 0 {
		return fmt.Errorf("invalid max nesting %d", c.Characterize.MaxNesting)
	}
	if c.Characterize.MaxInflatedSize < 0 {
		return fmt.Errorf("invalid max inflated size %d", c.Characterize.MaxInflatedSize)
	}
	if _, err := digest.ParseAlgorithms(c.Characterize.Digests); err != nil {
		return err
	}
	if _, err := store.ParseCompressionTag(c.Store.Compression); err != nil {
		return err
	}
	return nil
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Env holds the environment overrides. Zero values mean "not set".
type Env struct {
	DataDir         string `env:"DATA_DIR"`
	Port            int    `env:"PORT"`
	Bind            string `env:"BIND"`
	APIKey          string `env:"API_KEY"`
	LogLevel        string `env:"LOG_LEVEL"`
	LogFormat       string `env:"LOG_FORMAT"`
	BufferKind      string `env:"BUFFER_KIND"`
	BufferSize      int    `env:"BUFFER_SIZE"`
	FailFastLimit   int    `env:"FAIL_FAST_LIMIT"`
	Workers         int    `env:"WORKERS"`
	MaxNesting      int    `env:"MAX_NESTING"`
	TempDir         string `env:"TEMP_DIR"`
	Digests         string `env:"DIGESTS"` // comma-separated
	MaxInflatedSize int64  `env:"MAX_INFLATED_SIZE"`
	Compression     string `env:"STORE_COMPRESSION"`
}

// LoadEnv reads the CHARZ_ prefixed environment.
func LoadEnv() (*Env, error) {
	env := &Env{}
	if err := envconfig.Load(env, envconfig.LoadOptions{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	return env, nil
}

// Apply overlays the set environment values onto c.
func (e *Env) Apply(c *Config) {
	setString(&c.DataDir, e.DataDir)
	setInt(&c.Port, e.Port)
	setString(&c.Bind, e.Bind)
	setString(&c.Security.APIKey, e.APIKey)
	setString(&c.Logging.Level, e.LogLevel)
	setString(&c.Logging.Format, e.LogFormat)
	setString(&c.Reader.BufferKind, e.BufferKind)
	setInt(&c.Reader.BufferSize, e.BufferSize)
	setInt(&c.Characterize.FailFastLimit, e.FailFastLimit)
	setInt(&c.Characterize.Workers, e.Workers)
	setInt(&c.Characterize.MaxNesting, e.MaxNesting)
	setString(&c.Characterize.TempDir, e.TempDir)
	if e.Digests != "" {
		c.Characterize.Digests = nil
		for _, d := range strings.Split(e.Digests, ",") {
			if d = strings.TrimSpace(d); d != "" {
				c.Characterize.Digests = append(c.Characterize.Digests, d)
			}
		}
	}
	if e.MaxInflatedSize != 0 {
		c.Characterize.MaxInflatedSize = e.MaxInflatedSize
	}
	setString(&c.Store.Compression, e.Compression)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./characterize.yaml"
	}

	// For Linux/macOS, use ~/.config/characterize/config.yaml
	configDir := filepath.Join(homeDir, ".config", "characterize")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// StoreDir is where the report database lives under DataDir.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "reports")
}
