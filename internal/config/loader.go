package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles Viper-based configuration loading.
//
// Create instances with [NewLoader], then call [Loader.Load] for the standard
// search path or [Loader.LoadFromFile] for an explicit file.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment bindings applied.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PRODFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short-form alias matching the documented PRODFLOW_AGENT_PATH override.
	v.BindEnv("agent.binary_path", "PRODFLOW_AGENT_PATH", "PRODFLOW_AGENT_BINARY_PATH")

	setDefaults(v)

	return &Loader{v: v}
}

// Load reads configuration from the standard search path.
//
// Search order: PRODFLOW_CONFIG_PATH, then the platform user config directory,
// then ./config/prodflow.yaml and ./prodflow.yaml. A missing config file is
// not an error; defaults apply. Environment variables override file values.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv("PRODFLOW_CONFIG_PATH"); path != "" {
		return l.LoadFromFile(path)
	}

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return l.LoadFromFile(path)
		}
	}

	return l.unmarshal()
}

// LoadFromFile reads configuration from an explicit file path. The file must
// exist and parse; environment variables still take precedence over its
// values.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("feature.root", def.Feature.Root)
	v.SetDefault("feature.tasks_dir", def.Feature.TasksDir)
	v.SetDefault("feature.artifacts_dir", def.Feature.ArtifactsDir)
	v.SetDefault("feature.state_dir", def.Feature.StateDir)
	v.SetDefault("feature.policy_path", def.Feature.PolicyPath)
	v.SetDefault("agent.binary_path", def.Agent.BinaryPath)
	v.SetDefault("agent.output_format", def.Agent.OutputFormat)
	v.SetDefault("output.color", def.Output.Color)
	v.SetDefault("output.width", def.Output.Width)
}

func searchPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "prodflow", "config.yaml"))
	}
	paths = append(paths,
		filepath.Join("config", "prodflow.yaml"),
		"prodflow.yaml",
	)
	return paths
}
