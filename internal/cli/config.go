package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ToolConfig is the CLI's own configuration file (~/.flagbeam/config.yaml).
type ToolConfig struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig is the connection info for one environment.
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".flagbeam", "config.yaml"), nil
}

// LoadToolConfig loads the CLI config; a missing file yields an empty config.
func LoadToolConfig() (*ToolConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ToolConfig{
				DefaultEnv:   "prod",
				Environments: make(map[string]EnvConfig),
			}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ToolConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveToolConfig writes the CLI config, creating the directory if needed.
func SaveToolConfig(cfg *ToolConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ResolveEnv resolves connection info for an environment.
// Priority: command flags > environment variables > config file.
func ResolveEnv(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, string, error) {
	if baseURLFlag != "" && apiKeyFlag != "" {
		if envName == "" {
			return nil, "", fmt.Errorf("--env is required when using --base-url and --api-key")
		}
		return &EnvConfig{BaseURL: baseURLFlag, APIKey: apiKeyFlag}, envName, nil
	}

	envBaseURL := os.Getenv("FLAGBEAM_BASE_URL")
	envAPIKey := os.Getenv("FLAGBEAM_API_KEY")
	if envBaseURL != "" && envAPIKey != "" {
		if envName == "" {
			return nil, "", fmt.Errorf("--env is required when using FLAGBEAM_BASE_URL and FLAGBEAM_API_KEY")
		}
		return &EnvConfig{BaseURL: envBaseURL, APIKey: envAPIKey}, envName, nil
	}

	cfg, err := LoadToolConfig()
	if err != nil {
		return nil, "", err
	}
	if envName == "" {
		envName = cfg.DefaultEnv
	}

	envCfg, ok := cfg.Environments[envName]
	if !ok {
		return nil, "", fmt.Errorf("environment '%s' not found in config", envName)
	}

	if baseURLFlag != "" {
		envCfg.BaseURL = baseURLFlag
	} else if envBaseURL != "" {
		envCfg.BaseURL = envBaseURL
	}
	if apiKeyFlag != "" {
		envCfg.APIKey = apiKeyFlag
	} else if envAPIKey != "" {
		envCfg.APIKey = envAPIKey
	}

	if envCfg.BaseURL == "" || envCfg.APIKey == "" {
		return nil, "", fmt.Errorf("base_url and api_key must be configured for environment '%s'", envName)
	}
	return &envCfg, envName, nil
}
