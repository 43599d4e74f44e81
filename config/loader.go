package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

func errUnknownFailurePolicy(s string) error {
	return fmt.Errorf("unknown failure policy %q", s)
}

// Load reads configuration from a YAML file, expanding environment
// variables in its content and applying defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Endpoint.URL == "" {
		return nil, fmt.Errorf("endpoint.url is required")
	}
	switch cfg.Endpoint.Protocol {
	case "http", "grpc":
	default:
		return nil, fmt.Errorf("unknown endpoint protocol %q", cfg.Endpoint.Protocol)
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Endpoint.Protocol == "" {
		cfg.Endpoint.Protocol = "http"
	}

	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = Duration(time.Second)
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = 2.0
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = Duration(60 * time.Second)
	}
	if cfg.Retry.Deadline == 0 && !cfg.Retry.Disabled {
		cfg.Retry.Deadline = Duration(120 * time.Second)
	}

	if cfg.Transfer.PartSize == 0 {
		cfg.Transfer.PartSize = 32 << 20
	}
	if cfg.Transfer.Concurrency == 0 {
		cfg.Transfer.Concurrency = 8
	}
	if cfg.Transfer.Checksum == "" {
		cfg.Transfer.Checksum = "auto"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
