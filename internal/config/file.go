package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/kshell/internal/constants"
)

// ConfigFileName is the name of the config file
const ConfigFileName = "config.yaml"

// HistoryFileName is the name of the persistent history database
const HistoryFileName = "history.db"

// FileConfig represents the configuration file structure. Pointer fields
// distinguish "unset" from an explicit false or zero.
type FileConfig struct {
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"` // "text" or "json"

	MaxJobsPerTab int `yaml:"max_jobs_per_tab,omitempty"`

	History *HistoryConfig `yaml:"history,omitempty"`

	LocalAccess *bool  `yaml:"local_access,omitempty"`
	Prompt      string `yaml:"prompt,omitempty"`
	Render      *bool  `yaml:"render,omitempty"`
	Spinner     *bool  `yaml:"spinner,omitempty"`

	Shell *ShellConfig `yaml:"shell,omitempty"`
}

// HistoryConfig holds command history settings
type HistoryConfig struct {
	File       string `yaml:"file,omitempty"`
	MaxEntries int    `yaml:"max_entries,omitempty"`
	Persist    *bool  `yaml:"persist,omitempty"`
}

// ShellConfig holds the policy for lines run through the system shell
type ShellConfig struct {
	Allow            []string `yaml:"allow,omitempty"`
	Deny             []string `yaml:"deny,omitempty"`
	DangerousEnabled bool     `yaml:"dangerous_enabled,omitempty"`
	AutoAllowSafe    *bool    `yaml:"auto_allow_safe,omitempty"`
	PassThrough      *bool    `yaml:"pass_through,omitempty"`
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("could not determine config directory: %w", herr)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, constants.AppName), nil
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	var paths []string

	// 1. Current directory
	paths = append(paths, filepath.Join(".", "."+constants.AppName, ConfigFileName))

	// 2. User config directory ($XDG_CONFIG_HOME on Linux)
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, constants.AppName, ConfigFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", constants.AppName, ConfigFileName))
	}

	return paths
}

// LoadConfigFile attempts to load configuration from the first file found
func LoadConfigFile() (*FileConfig, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return loadConfigFromPath(path)
		}
	}

	// No config file found, return empty config
	return &FileConfig{}, nil
}

// loadConfigFromPath loads config from a specific path
func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyFileConfig applies file configuration to the main Config.
// File config has lower priority than environment variables and CLI flags.
func (c *Config) ApplyFileConfig(fc *FileConfig) {
	if fc == nil {
		return
	}

	if c.LogLevel == "" && fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if c.LogFormat == "" && fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if c.MaxJobsPerTab == 0 && fc.MaxJobsPerTab != 0 {
		c.MaxJobsPerTab = fc.MaxJobsPerTab
	}
	if c.Prompt == "" && fc.Prompt != "" {
		c.Prompt = fc.Prompt
	}
	if fc.LocalAccess != nil {
		c.LocalAccess = *fc.LocalAccess
	}
	if fc.Render != nil {
		c.Render = *fc.Render
	}
	if fc.Spinner != nil {
		c.Spinner = *fc.Spinner
	}

	if h := fc.History; h != nil {
		if c.HistoryFile == "" && h.File != "" {
			c.HistoryFile = h.File
		}
		if c.HistoryMaxEntries == 0 && h.MaxEntries != 0 {
			c.HistoryMaxEntries = h.MaxEntries
		}
		if h.Persist != nil {
			c.PersistHistory = *h.Persist
		}
	}

	if s := fc.Shell; s != nil {
		c.ShellAllow = append(c.ShellAllow, s.Allow...)
		c.ShellDeny = append(c.ShellDeny, s.Deny...)
		if s.DangerousEnabled {
			c.DangerousEnabled = true
		}
		if s.AutoAllowSafe != nil {
			c.AutoAllowSafe = *s.AutoAllowSafe
		}
		if s.PassThrough != nil {
			c.PassThrough = *s.PassThrough
		}
	}
}

// CreateDefaultConfigFile creates a default config file at the user config directory
func CreateDefaultConfigFile() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

const defaultConfig = `# kshell Configuration
# Location: ~/.config/kshell/config.yaml

# Logging: debug, info, warn, error or none; text or json
# log_level: warn
# log_format: text

# Background job slots per tab (watch); the oldest job is evicted when full
# max_jobs_per_tab: 2

# Command history
# history:
#   file: ~/.config/kshell/history.db
#   max_entries: 1000
#   persist: true

# Allow commands that touch the local machine (cd, sh, watch, snapshot)
# local_access: true

# Interactive prompt prefix
# prompt: "kshell> "

# Render markdown output with glamour, show a spinner for slow commands
# render: true
# spinner: true

# Policy for lines run through the system shell
# shell:
#   pass_through: true      # run unknown commands that exist on PATH
#   auto_allow_safe: true   # read-only commands skip confirmation
#   dangerous_enabled: false
#   allow:
#     - git:*
#     - ls*
#   deny:
#     - rm -rf*
`
