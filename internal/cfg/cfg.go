// Package cfg loads and validates service configuration from a YAML file
// with environment-variable overrides. The model list is static
// configuration: it is read once at startup and handed to the registry.
package cfg

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"modelserve/internal/model"
)

const defaultConfigPath = "config.yaml"

type Settings struct {
	HTTPPort        int
	DatabasePath    string
	ExplanationPath string
	LogLevel        string
	Models          []ModelConfig
}

// ModelConfig describes one (name, version) entry served by the registry.
type ModelConfig struct {
	Name         string           `yaml:"name"`
	Version      string           `yaml:"version"`
	Type         string           `yaml:"type"`
	Flavor       string           `yaml:"flavor"`
	ArtifactURI  string           `yaml:"artifactURI"`
	ExplainerURI string           `yaml:"explainerURI"`
	Labels       []string         `yaml:"labels"`
	Features     []string         `yaml:"features"`
	Threshold    *model.Threshold `yaml:"threshold"`
}

type configFile struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Storage struct {
		DatabasePath    string `yaml:"databasePath"`
		ExplanationPath string `yaml:"explanationPath"`
	} `yaml:"storage"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Models []ModelConfig `yaml:"models"`
}

// Load reads the file named by CONFIG_FILE (default config.yaml), applies
// environment overrides, and validates the result.
func Load() (Settings, error) {
	path := getEnvOrDefault("CONFIG_FILE", defaultConfigPath)
	return LoadFile(path)
}

func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config configFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		HTTPPort:        getIntFromEnvOrConfig("HTTP_PORT", config.Server.Port, 8080),
		DatabasePath:    getEnvOrDefault("DATABASE_PATH", config.Storage.DatabasePath),
		ExplanationPath: getEnvOrDefault("EXPLANATION_PATH", config.Storage.ExplanationPath),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", config.Log.Level),
		Models:          config.Models,
	}
	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func validateSettings(settings *Settings) error {
	if settings.HTTPPort < 1024 || settings.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1024 and 65535, got %d", settings.HTTPPort)
	}
	if settings.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if len(settings.Models) == 0 {
		return fmt.Errorf("at least one model must be configured")
	}

	seen := make(map[string]bool, len(settings.Models))
	for i := range settings.Models {
		if err := validateModel(&settings.Models[i]); err != nil {
			return err
		}
		key := settings.Models[i].Name + "/" + settings.Models[i].Version
		if seen[key] {
			return fmt.Errorf("duplicate model entry %s", key)
		}
		seen[key] = true
	}

	return nil
}

func validateModel(mc *ModelConfig) error {
	if mc.Name == "" || mc.Version == "" {
		return fmt.Errorf("model name and version are required")
	}
	if mc.ArtifactURI == "" {
		return fmt.Errorf("model %s/%s: artifact URI is required", mc.Name, mc.Version)
	}
	if mc.Flavor == "" {
		return fmt.Errorf("model %s/%s: flavor is required", mc.Name, mc.Version)
	}

	switch model.Type(mc.Type) {
	case model.Classification:
		if len(mc.Labels) == 0 {
			return fmt.Errorf("model %s/%s: classification models require labels", mc.Name, mc.Version)
		}
		if err := validateThreshold(mc); err != nil {
			return err
		}
	case model.Regression:
		if mc.Threshold != nil {
			return fmt.Errorf("model %s/%s: regression models cannot declare a threshold", mc.Name, mc.Version)
		}
	default:
		return fmt.Errorf("model %s/%s: unknown model type %q", mc.Name, mc.Version, mc.Type)
	}

	return nil
}

func validateThreshold(mc *ModelConfig) error {
	t := mc.Threshold
	if t == nil {
		return nil // direct-prediction classifiers never consult a threshold
	}
	if t.Value < 0 || t.Value > 1 {
		return fmt.Errorf("model %s/%s: threshold value must be between 0 and 1, got %f", mc.Name, mc.Version, t.Value)
	}
	members := make(map[string]bool, len(mc.Labels))
	for _, l := range mc.Labels {
		members[l] = true
	}
	for _, outcome := range []string{t.Above, t.Equal, t.Below} {
		if !members[outcome] {
			return fmt.Errorf("model %s/%s: threshold outcome %q is not a declared label", mc.Name, mc.Version, outcome)
		}
	}
	return nil
}
