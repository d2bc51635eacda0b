package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/policy"
)

// Environment variable names
const (
	EnvLogLevel    = "KSHELL_LOG_LEVEL"
	EnvLogFormat   = "KSHELL_LOG_FORMAT"
	EnvMaxJobs     = "KSHELL_MAX_JOBS"
	EnvHistoryFile = "KSHELL_HISTORY_FILE"
	// EnvNoLocal disables commands that touch the local machine when truthy
	EnvNoLocal = "KSHELL_NO_LOCAL"
)

// Defaults - re-exported from constants for convenience
const (
	DefaultMaxJobsPerTab = constants.DefaultMaxJobsPerTab
	DefaultHistorySize   = constants.DefaultHistorySize
	DefaultPrompt        = constants.DefaultPrompt
	DefaultLogLevel      = constants.DefaultLogLevel
	DefaultLogFormat     = "text"
)

// Errors
var (
	ErrInvalidMaxJobs   = errors.New("invalid max_jobs_per_tab: must be a positive integer")
	ErrInvalidLogFormat = errors.New("invalid log format. Use 'text' or 'json'")
	ErrInvalidHistory   = errors.New("invalid history max_entries: must not be negative")
)

// Config holds the application configuration
type Config struct {
	// ConfigPath names an explicit config file; searched for when empty
	ConfigPath string

	LogLevel  string
	LogFormat string

	MaxJobsPerTab int

	// History settings
	HistoryFile       string
	HistoryMaxEntries int
	PersistHistory    bool

	// LocalAccess enables commands that touch the local machine
	LocalAccess bool
	Prompt      string
	Render      bool
	Spinner     bool

	// Shell command policy
	ShellAllow       []string
	ShellDeny        []string
	DangerousEnabled bool
	AutoAllowSafe    bool
	PassThrough      bool

	// Flags
	Verbose     bool
	NoRender    bool
	Interactive bool
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{
		PersistHistory: true,
		LocalAccess:    true,
		Render:         true,
		Spinner:        true,
		AutoAllowSafe:  true,
		PassThrough:    true,
	}
}

// Validate loads the config file and environment, fills in defaults and
// checks the result. Values already set by flags take precedence over the
// environment, which takes precedence over the file.
func (c *Config) Validate() error {
	flagFormat := c.LogFormat

	// Load from config file first (lowest priority)
	if c.ConfigPath != "" {
		fc, err := loadConfigFromPath(c.ConfigPath)
		if err != nil {
			return err
		}
		c.ApplyFileConfig(fc)
	} else if fc, err := LoadConfigFile(); err == nil {
		c.ApplyFileConfig(fc)
	}
	// Errors loading a searched config file are ignored - env vars and flags take precedence

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" && flagFormat == "" {
		c.LogFormat = v
	}
	if v := os.Getenv(EnvMaxJobs); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return ErrInvalidMaxJobs
		}
		c.MaxJobsPerTab = n
	}
	if v := os.Getenv(EnvHistoryFile); v != "" {
		c.HistoryFile = v
	}
	if v := os.Getenv(EnvNoLocal); v != "" {
		if noLocal, err := strconv.ParseBool(v); err == nil && noLocal {
			c.LocalAccess = false
		}
	}

	if c.Verbose {
		c.LogLevel = "debug"
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if _, ok := logging.ParseFormat(c.LogFormat); !ok {
		return ErrInvalidLogFormat
	}

	if c.MaxJobsPerTab == 0 {
		c.MaxJobsPerTab = DefaultMaxJobsPerTab
	}
	if c.MaxJobsPerTab < 0 {
		return ErrInvalidMaxJobs
	}

	if c.HistoryMaxEntries == 0 {
		c.HistoryMaxEntries = DefaultHistorySize
	}
	if c.HistoryMaxEntries < 0 {
		return ErrInvalidHistory
	}
	if c.HistoryFile == "" {
		c.HistoryFile = DefaultHistoryFile()
	}
	c.HistoryFile = expandHome(c.HistoryFile)

	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.NoRender {
		c.Render = false
	}
	return nil
}

// Policy returns the shell command policy settings.
func (c *Config) Policy() policy.Config {
	return policy.Config{
		Allow:            c.ShellAllow,
		Deny:             c.ShellDeny,
		DangerousEnabled: c.DangerousEnabled,
		AutoAllowSafe:    c.AutoAllowSafe,
	}
}

// DefaultHistoryFile returns the bbolt history path in the user config
// directory, or "" when no such directory can be determined.
func DefaultHistoryFile() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, HistoryFileName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
