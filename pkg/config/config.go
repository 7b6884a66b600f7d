// Package config loads and saves the YAML configuration that parameterizes
// the five index engines and the demo HTTP server: node orders, error
// budgets, radix width, and the RMI model artifact path.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/indexlab/learnedindex/pkg/fitingtree"
)

// Config is the top-level configuration document.
type Config struct {
	Server  Server  `yaml:"server"`
	Engines Engines `yaml:"engines"`
	Logging Logging `yaml:"logging"`
}

// Server configures the demo inspection/comparison HTTP server.
type Server struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Engines holds the tunable build parameters for every index engine.
type Engines struct {
	BTreeOrder           int    `yaml:"btree_order"`
	BPlusTreeOrder       int    `yaml:"bptree_order"`
	FITingTreeEpsilon    int    `yaml:"fitingtree_epsilon"`
	FITingTreeInsertMode string `yaml:"fitingtree_insert_mode"`
	RadixSplineRadixBits int    `yaml:"radixspline_radix_bits"`
	RMIModelPath         string `yaml:"rmi_model_path"`
}

// InsertMode resolves the configured FITing-Tree insertion mode string to
// its fitingtree.InsertMode value. An unrecognized value falls back to
// InPlace.
func (e Engines) InsertMode() fitingtree.InsertMode {
	if e.FITingTreeInsertMode == "delta_buffered" {
		return fitingtree.DeltaBuffered
	}
	return fitingtree.InPlace
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with every engine at its
// reference default.
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Engines: Engines{
			BTreeOrder:           5,
			BPlusTreeOrder:       4,
			FITingTreeEpsilon:    32,
			FITingTreeInsertMode: "in_place",
			RadixSplineRadixBits: 18,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

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

// SaveConfig saves the configuration to the specified path.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./indexlab.yaml"
	}
	configDir := filepath.Join(homeDir, ".config", "indexlab")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
