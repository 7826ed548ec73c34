package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes yaml scalars like "30s" or "5m". yaml.v3 does not
// parse duration strings into time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Database holds the metadata store connection settings
type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// Limits bounds accepted uploads and transform targets
type Limits struct {
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	MaxWidth       int   `yaml:"maxWidth"`
	MaxHeight      int   `yaml:"maxHeight"`
}

// Detection holds the external object detection service settings.
// An empty endpoint disables the detection routes.
type Detection struct {
	Endpoint       string   `yaml:"endpoint"`
	RequestTimeout Duration `yaml:"requestTimeout"`
}

// Cache holds the optional redis content cache settings.
// An empty address disables caching.
type Cache struct {
	Address string   `yaml:"address"`
	TTL     Duration `yaml:"ttl"`
}

type ServiceConfig struct {
	Port           int       `yaml:"port"`
	VaultRoot      string    `yaml:"vaultRoot"`
	Database       Database  `yaml:"database"`
	Limits         Limits    `yaml:"limits"`
	AllowedFormats []string  `yaml:"allowedFormats"`
	Detection      Detection `yaml:"detection"`
	Cache          Cache     `yaml:"cache"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func applyDefaults(config *ServiceConfig) {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}
	if config.Limits.MaxUploadBytes == 0 {
		config.Limits.MaxUploadBytes = 25 * 1024 * 1024
	}
	if config.Limits.MaxWidth == 0 {
		config.Limits.MaxWidth = 8192
	}
	if config.Limits.MaxHeight == 0 {
		config.Limits.MaxHeight = 8192
	}
	if len(config.AllowedFormats) == 0 {
		config.AllowedFormats = []string{"png", "jpeg", "gif", "bmp", "tiff", "webp", "svg"}
	}
	if config.Detection.RequestTimeout == 0 {
		config.Detection.RequestTimeout = Duration(30 * time.Second)
	}
	if config.Cache.TTL == 0 {
		config.Cache.TTL = Duration(5 * time.Minute)
	}
}

// validateConfig rejects configurations the service cannot run with.
// The loaded configuration is immutable for the process lifetime.
func validateConfig(config *ServiceConfig) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}
	if config.VaultRoot == "" {
		return fmt.Errorf("vaultRoot must not be empty")
	}
	if config.Database.ConnectionString == "" {
		return fmt.Errorf("database connectionString must not be empty")
	}
	if config.Limits.MaxUploadBytes < 0 {
		return fmt.Errorf("maxUploadBytes must not be negative, got %d", config.Limits.MaxUploadBytes)
	}
	if config.Limits.MaxWidth < 1 {
		return fmt.Errorf("maxWidth must be positive, got %d", config.Limits.MaxWidth)
	}
	if config.Limits.MaxHeight < 1 {
		return fmt.Errorf("maxHeight must be positive, got %d", config.Limits.MaxHeight)
	}

	knownFormats := map[string]bool{
		"png":  true,
		"jpeg": true,
		"gif":  true,
		"bmp":  true,
		"tiff": true,
		"webp": true,
		"svg":  true,
	}
	seenFormats := make(map[string]bool)
	for _, format := range config.AllowedFormats {
		if !knownFormats[format] {
			return fmt.Errorf("unsupported format in allowedFormats: %s", format)
		}
		if seenFormats[format] {
			return fmt.Errorf("duplicate format in allowedFormats: %s", format)
		}
		seenFormats[format] = true
	}

	return nil
}
