package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}

// LoadConfig loads the configuration from the config.toml file.
// It returns a pointer to the Config struct or an error if loading fails.
func LoadConfig() (*Config, error) {
	var config Config
	configPath := "config.toml"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// Get absolute path for better error messages
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		absPath = configPath
	}

	_, err = toml.DecodeFile(configPath, &config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", absPath, err)
	}

	// The map key is the canonical network name
	for name, network := range config.Networks {
		network.NetworkName = name
		config.Networks[name] = network
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}
