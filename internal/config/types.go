// Package config provides configuration loading and management for prodflow.
//
// Configuration is loaded using Viper, supporting YAML config files and
// environment variable overrides. The package provides sensible defaults that
// work out of the box inside any feature directory, with the ability to
// customize directory layout, agent invocation, and terminal output.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [FeatureConfig] defines the on-disk layout of a feature directory
//   - [AgentConfig] contains coding-agent CLI settings
//
// Configuration priority (highest to lowest):
//  1. Environment variables (PRODFLOW_ prefix)
//  2. Config file specified by PRODFLOW_CONFIG_PATH
//  3. User config directory (platform-standard):
//     - Linux: ~/.config/prodflow/config.yaml
//     - macOS: ~/Library/Application Support/prodflow/config.yaml
//     - Windows: %APPDATA%\prodflow\config.yaml
//  4. ./config/prodflow.yaml (legacy fallback)
//  5. ./prodflow.yaml (legacy fallback)
//  6. [DefaultConfig] defaults
package config

import "path/filepath"

// Config represents the root configuration structure.
//
// This is the main configuration container loaded by [Loader] and used
// throughout the application. Use [DefaultConfig] to get sensible defaults.
type Config struct {
	// Feature contains the on-disk layout of a feature directory.
	Feature FeatureConfig `mapstructure:"feature"`

	// Agent contains coding-agent CLI configuration.
	Agent AgentConfig `mapstructure:"agent"`

	// Output contains terminal output formatting configuration.
	Output OutputConfig `mapstructure:"output"`
}

// FeatureConfig defines where a feature keeps its tasks, artifacts, policy,
// and persisted state. All paths are relative to Root unless absolute.
type FeatureConfig struct {
	// Root is the feature directory. Default: "." (current directory).
	Root string `mapstructure:"root"`

	// TasksDir holds the task descriptor files. Default: "tasks".
	TasksDir string `mapstructure:"tasks_dir"`

	// ArtifactsDir holds the stage artifacts (prd.md, design.md, tasks.md).
	// Default: "docs".
	ArtifactsDir string `mapstructure:"artifacts_dir"`

	// StateDir holds persisted snapshots. Default: ".prodflow".
	StateDir string `mapstructure:"state_dir"`

	// PolicyPath is the approval-gate policy document.
	// Default: ".prodflow/policy.json".
	PolicyPath string `mapstructure:"policy_path"`
}

// AgentConfig contains coding-agent CLI configuration.
//
// These settings control how the external agent binary is invoked for each
// task step.
type AgentConfig struct {
	// BinaryPath is the path to the agent CLI binary.
	// Default: "claude" (assumes the binary is in PATH).
	// Can be overridden with the PRODFLOW_AGENT_PATH environment variable.
	BinaryPath string `mapstructure:"binary_path"`

	// Args are extra arguments prepended to every agent invocation.
	Args []string `mapstructure:"args"`

	// OutputFormat is the output format requested from the agent CLI.
	// Should be "stream-json" for structured event parsing.
	OutputFormat string `mapstructure:"output_format"`
}

// OutputConfig contains terminal output formatting configuration.
type OutputConfig struct {
	// Color controls whether styled output is rendered.
	// Default: true.
	Color bool `mapstructure:"color"`

	// Width is the column width for the status board.
	// Default: 80.
	Width int `mapstructure:"width"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
//
// The defaults assume the standard feature layout (tasks/, docs/, .prodflow/)
// rooted at the current directory and an agent binary available in PATH.
// They work out of the box without any configuration file.
func DefaultConfig() *Config {
	return &Config{
		Feature: FeatureConfig{
			Root:         ".",
			TasksDir:     "tasks",
			ArtifactsDir: "docs",
			StateDir:     ".prodflow",
			PolicyPath:   filepath.Join(".prodflow", "policy.json"),
		},
		Agent: AgentConfig{
			BinaryPath:   "claude",
			OutputFormat: "stream-json",
		},
		Output: OutputConfig{
			Color: true,
			Width: 80,
		},
	}
}

// TasksPath returns the absolute-or-root-relative tasks directory.
func (c *Config) TasksPath() string {
	return c.featurePath(c.Feature.TasksDir)
}

// ArtifactsPath returns the artifacts directory.
func (c *Config) ArtifactsPath() string {
	return c.featurePath(c.Feature.ArtifactsDir)
}

// StatePath returns the snapshot state directory.
func (c *Config) StatePath() string {
	return c.featurePath(c.Feature.StateDir)
}

// PolicyFile returns the policy document path.
func (c *Config) PolicyFile() string {
	return c.featurePath(c.Feature.PolicyPath)
}

func (c *Config) featurePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Feature.Root, p)
}
