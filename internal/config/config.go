// Package config handles MacroAI server configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/macroai/config.yaml, /etc/macroai/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "macroai", "config.yaml"))
	}

	paths = append(paths, "/etc/macroai/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all server configuration.
type Config struct {
	Listen     ListenConfig `yaml:"listen"`
	Auth       AuthConfig   `yaml:"auth"`
	Agent      AgentConfig  `yaml:"agent"`
	DataDir    string       `yaml:"data_dir"`
	LogLevel   string       `yaml:"log_level"`
	LogFormat  string       `yaml:"log_format"` // "text" (default) or "json"
	SingleUser bool         `yaml:"single_user_mode"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AuthConfig defines token verification settings.
type AuthConfig struct {
	// Secret is the HMAC key used to verify access tokens. Token issuance
	// happens elsewhere; this server only validates.
	Secret string `yaml:"secret"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	// MaxToolCallsPerTurn caps tool executions within one user turn.
	// Zero means the default of 20.
	MaxToolCallsPerTurn int `yaml:"max_tool_calls_per_turn"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		Agent:   AgentConfig{MaxToolCallsPerTurn: 20},
		DataDir: "data",
	}
}
