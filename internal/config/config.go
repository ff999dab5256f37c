package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Batch  BatchConfig  `json:"batch"`
	Vision VisionConfig `json:"vision"`
	Send   SendConfig   `json:"send"`
	Output OutputConfig `json:"output"`
}

// BatchConfig holds configuration for the image batch
type BatchConfig struct {
	MaxImages int `json:"max_images"`
}

// VisionConfig holds configuration for the detection backend
type VisionConfig struct {
	Backend string `json:"backend"` // ollama or llamacpp
	URL     string `json:"url"`
	Model   string `json:"model"`
}

// SendConfig holds configuration for images sent to the vision model
type SendConfig struct {
	Format  string `json:"format"` // jpg or png
	MaxDim  int    `json:"max_dim"`
	Quality int    `json:"quality"`
}

// OutputConfig holds configuration for result output
type OutputConfig struct {
	Path   string `json:"path"`
	Pretty bool   `json:"pretty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Batch: BatchConfig{
			MaxImages: 10,
		},
		Vision: VisionConfig{
			Backend: "llamacpp",
			URL:     "",
			Model:   "openbmb/minicpm-v4.5",
		},
		Send: SendConfig{
			Format:  "jpg",
			MaxDim:  1536,
			Quality: 85,
		},
		Output: OutputConfig{
			Path:   "",
			Pretty: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Batch.MaxImages < 1 {
		return fmt.Errorf("batch.max_images must be positive")
	}

	switch c.Vision.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("vision.backend must be 'ollama' or 'llamacpp'")
	}

	if c.Vision.Model == "" {
		return fmt.Errorf("vision.model cannot be empty")
	}

	switch c.Send.Format {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("send.format must be 'jpg', 'jpeg' or 'png'")
	}

	if c.Send.Quality < 1 || c.Send.Quality > 100 {
		return fmt.Errorf("send.quality must be between 1 and 100")
	}

	if c.Send.MaxDim < 0 {
		return fmt.Errorf("send.max_dim cannot be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "batch-analyzer", "config.json")
}
